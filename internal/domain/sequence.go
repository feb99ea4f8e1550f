package domain

// Sequence is the ordered list of steps attached to a campaign. Step orders
// are contiguous starting at 1.
type Sequence struct {
	CampaignID FlexID            `bson:"campaign_id"`
	Steps      []SequenceStepRef `bson:"steps"`
}

// StepByOrder returns the step reference with the given order, or nil when
// the order is past the end of the sequence.
func (s *Sequence) StepByOrder(order int) *SequenceStepRef {
	for i := range s.Steps {
		if s.Steps[i].Order.Int() == order {
			return &s.Steps[i]
		}
	}
	return nil
}

// SequenceStepRef is the embedded reference a sequence holds for each step:
// the step document id plus the delay (in days) before the next step is due.
type SequenceStepRef struct {
	Order          FlexInt `bson:"order"`
	ID             FlexID  `bson:"id"`
	NextMessageDay FlexInt `bson:"next_message_day"`
}

// SequenceStep is the step document referenced from a sequence.
type SequenceStep struct {
	ID             FlexID `bson:"_id"`
	ActiveTemplate FlexID `bson:"active_template"`
}

// Template holds the raw subject and body sources. The body lives in "html"
// for newer documents and "content" for older ones.
type Template struct {
	ID      FlexID `bson:"_id"`
	Subject string `bson:"subject"`
	HTML    string `bson:"html,omitempty"`
	Content string `bson:"content,omitempty"`
}

// BodySource returns the body template source, preferring html over content.
func (t *Template) BodySource() string {
	if t.HTML != "" {
		return t.HTML
	}
	return t.Content
}
