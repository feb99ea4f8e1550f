package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRecipientsUnmarshalSingleObject(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"lead_data": bson.M{"email": "lead@test.com", "name": "Test"},
	})
	require.NoError(t, err)

	var lead Lead
	require.NoError(t, bson.Unmarshal(raw, &lead))

	assert.False(t, lead.Data.IsList)
	assert.Equal(t, 1, lead.Data.Total())
	assert.Equal(t, "lead@test.com", lead.Data.At(0).Email())
	assert.Equal(t, "Test", lead.Data.At(0).Get("name"))
}

func TestRecipientsUnmarshalArray(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"lead_data": bson.A{
			bson.M{"email": "a@test.com"},
			bson.M{"email": "b@test.com"},
		},
	})
	require.NoError(t, err)

	var lead Lead
	require.NoError(t, bson.Unmarshal(raw, &lead))

	assert.True(t, lead.Data.IsList)
	assert.Equal(t, 2, lead.Data.Total())
	assert.Equal(t, "b@test.com", lead.Data.At(1).Email())
	assert.Nil(t, lead.Data.At(2))
}

func TestRecipientGetNonString(t *testing.T) {
	r := Recipient{"smtp_port": int32(587), "email": "x@test.com"}
	assert.Equal(t, "587", r.Get("smtp_port"))
	assert.Equal(t, "", r.Get("missing"))
}

func TestProgressStepOrderDefaults(t *testing.T) {
	var p *Progress
	assert.Equal(t, 1, p.StepOrder())

	p = &Progress{}
	assert.Equal(t, 1, p.StepOrder())

	p = &Progress{CurrentStepOrder: 3}
	assert.Equal(t, 3, p.StepOrder())
}

func TestRecipientKey(t *testing.T) {
	assert.Equal(t, "step_1_recipient_0", RecipientKey(1, 0))
	assert.Equal(t, "step_12_recipient_3", RecipientKey(12, 3))
}

func TestProgressNextUnprocessed(t *testing.T) {
	now := time.Now().UTC()
	p := &Progress{
		ProcessedRecipients: map[string]ProcessedRecipient{
			RecipientKey(1, 0): {ProcessedAt: now, Email: "a@test.com"},
		},
	}

	idx, ok := p.NextUnprocessed(1, 3)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	p.ProcessedRecipients[RecipientKey(1, 1)] = ProcessedRecipient{ProcessedAt: now}
	p.ProcessedRecipients[RecipientKey(1, 2)] = ProcessedRecipient{ProcessedAt: now}
	_, ok = p.NextUnprocessed(1, 3)
	assert.False(t, ok)

	// A fresh step starts over at index 0.
	idx, ok = p.NextUnprocessed(2, 3)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestProgressDoneInStep(t *testing.T) {
	now := time.Now().UTC()
	p := &Progress{
		ProcessedRecipients: map[string]ProcessedRecipient{
			RecipientKey(1, 0):  {ProcessedAt: now},
			RecipientKey(1, 1):  {ProcessedAt: now},
			RecipientKey(2, 0):  {ProcessedAt: now},
			RecipientKey(12, 0): {ProcessedAt: now},
		},
	}

	assert.Equal(t, 2, p.DoneInStep(1))
	// step_12_* keys must not count toward step 1
	assert.Equal(t, 1, p.DoneInStep(2))
	assert.Equal(t, 1, p.DoneInStep(12))
	assert.Equal(t, 0, p.DoneInStep(3))
}

func TestSequenceStepByOrder(t *testing.T) {
	seq := &Sequence{
		CampaignID: "c1",
		Steps: []SequenceStepRef{
			{Order: 1, ID: "s1", NextMessageDay: 0},
			{Order: 2, ID: "s2", NextMessageDay: 3},
		},
	}

	step := seq.StepByOrder(2)
	require.NotNil(t, step)
	assert.Equal(t, "s2", step.ID.String())
	assert.Nil(t, seq.StepByOrder(3))
}

func TestAccountPasswordFallback(t *testing.T) {
	a := &EmailAccount{SMTPPassword: "legacy"}
	assert.Equal(t, "legacy", a.Password())

	a.SMTPPasscode = "newer"
	assert.Equal(t, "newer", a.Password())
}

func TestSenderName(t *testing.T) {
	s := &AccountGeneralSettings{FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada Lovelace", s.SenderName())

	s = &AccountGeneralSettings{FirstName: "Ada"}
	assert.Equal(t, "Ada", s.SenderName())

	var nilSettings *AccountGeneralSettings
	assert.Equal(t, "", nilSettings.SenderName())
}
