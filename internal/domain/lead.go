package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Recipient is one concrete addressee inside a lead. Lead documents carry
// free-form fields (name, company, provider, ...) used by the renderer, so
// the shape stays loose with typed accessors on top.
type Recipient map[string]interface{}

// Get returns the named field as a string, or "" when absent or non-string.
func (r Recipient) Get(key string) string {
	if r == nil {
		return ""
	}
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		if v != nil {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// Email returns the recipient's email address, "" when missing.
func (r Recipient) Email() string {
	return r.Get("email")
}

// Recipients normalizes lead_data, which is persisted either as a single
// recipient object or as an ordered array of recipient objects.
type Recipients struct {
	// IsList preserves which shape the document had on disk.
	IsList bool
	List   []Recipient
}

// Total is the number of recipients a step must reach before it advances:
// the array length for list leads, 1 for single-object leads.
func (r Recipients) Total() int {
	if r.IsList {
		return len(r.List)
	}
	if len(r.List) == 0 {
		return 0
	}
	return 1
}

// At returns the recipient at index i, or nil when out of range.
func (r Recipients) At(i int) Recipient {
	if i < 0 || i >= len(r.List) {
		return nil
	}
	return r.List[i]
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (r *Recipients) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*r = Recipients{}
		return nil
	case bson.TypeArray:
		var list []Recipient
		if err := bson.UnmarshalValue(t, data, &list); err != nil {
			return err
		}
		*r = Recipients{IsList: true, List: list}
		return nil
	case bson.TypeEmbeddedDocument:
		var single Recipient
		if err := bson.UnmarshalValue(t, data, &single); err != nil {
			return err
		}
		*r = Recipients{List: []Recipient{single}}
		return nil
	default:
		return fmt.Errorf("lead_data has unexpected bson type %s", t)
	}
}

// MarshalBSONValue implements bson.ValueMarshaler, writing back the shape
// the document originally had.
func (r Recipients) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if r.IsList {
		return bson.MarshalValue(r.List)
	}
	if len(r.List) == 0 {
		return bson.MarshalValue(Recipient{})
	}
	return bson.MarshalValue(r.List[0])
}

// ProcessedRecipient records one completed (step, recipient) send.
type ProcessedRecipient struct {
	ProcessedAt time.Time `bson:"processed_at"`
	Email       string    `bson:"email"`
	TemplateID  string    `bson:"template_id"`
}

// Progress is the mutable sequencing state of a lead. The worker is its only
// writer. current_step_order never decreases and stopped=true is terminal.
type Progress struct {
	CurrentStepOrder    FlexInt                       `bson:"current_step_order,omitempty"`
	Stopped             bool                          `bson:"stopped"`
	LastSentAt          *time.Time                    `bson:"last_sent_at,omitempty"`
	NextDueAt           *time.Time                    `bson:"next_due_at,omitempty"`
	ProcessedRecipients map[string]ProcessedRecipient `bson:"processed_recipients,omitempty"`
	Reason              string                        `bson:"reason,omitempty"`
}

// StepOrder returns the current step order, defaulting to 1.
func (p *Progress) StepOrder() int {
	if p == nil || p.CurrentStepOrder < 1 {
		return 1
	}
	return p.CurrentStepOrder.Int()
}

// RecipientKey is the processed_recipients map key for a (step, recipient)
// pair. Keys are set exactly once.
func RecipientKey(stepOrder, recipientIndex int) string {
	return fmt.Sprintf("step_%d_recipient_%d", stepOrder, recipientIndex)
}

// DoneInStep counts the recipients already processed for the given step.
func (p *Progress) DoneInStep(stepOrder int) int {
	if p == nil {
		return 0
	}
	prefix := fmt.Sprintf("step_%d_", stepOrder)
	done := 0
	for key := range p.ProcessedRecipients {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			done++
		}
	}
	return done
}

// NextUnprocessed returns the lowest recipient index not yet processed for
// the step, or ok=false when every recipient is done.
func (p *Progress) NextUnprocessed(stepOrder, total int) (int, bool) {
	for i := 0; i < total; i++ {
		key := RecipientKey(stepOrder, i)
		if p == nil || p.ProcessedRecipients == nil {
			return i, true
		}
		if _, processed := p.ProcessedRecipients[key]; !processed {
			return i, true
		}
	}
	return 0, false
}

// Lead is one unit of campaign work: one or more recipients plus progress.
// Everything but progress is immutable from the engine's point of view.
type Lead struct {
	ID         FlexID     `bson:"_id"`
	CampaignID FlexID     `bson:"campaign_id"`
	Data       Recipients `bson:"lead_data"`
	Progress   *Progress  `bson:"progress,omitempty"`
}
