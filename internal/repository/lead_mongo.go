package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coldpipe/coldpipe/internal/domain"
)

// LeadRepository selects due leads and persists lead progress.
type LeadRepository struct {
	db *mongo.Database
}

func NewLeadRepository(db *mongo.Database) *LeadRepository {
	return &LeadRepository{db: db}
}

// dueLeadFilter builds the due-lead selection predicate: leads never touched,
// or not stopped and either due now or never sent.
func dueLeadFilter(campaignID string, nowUTC time.Time) bson.M {
	filter := refFilter("campaign_id", campaignID)
	filter["$or"] = bson.A{
		bson.M{"progress": bson.M{"$exists": false}},
		bson.M{
			"progress.stopped": bson.M{"$ne": true},
			"$or": bson.A{
				bson.M{"progress.next_due_at": bson.M{"$lte": nowUTC}},
				bson.M{"progress.last_sent_at": bson.M{"$exists": false}},
			},
		},
	}
	return filter
}

func (r *LeadRepository) GetDueLeads(ctx context.Context, campaignID string, nowUTC time.Time, limit int) ([]*domain.Lead, error) {
	opts := options.Find().SetLimit(int64(limit))
	cursor, err := r.db.Collection(colLeads).Find(ctx, dueLeadFilter(campaignID, nowUTC), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query due leads for campaign %s: %w", campaignID, err)
	}
	defer cursor.Close(ctx)

	var leads []*domain.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode due leads: %w", err)
	}
	return leads, nil
}

func (r *LeadRepository) ListLeads(ctx context.Context, campaignID string) ([]*domain.Lead, error) {
	cursor, err := r.db.Collection(colLeads).Find(ctx, refFilter("campaign_id", campaignID))
	if err != nil {
		return nil, fmt.Errorf("failed to list leads for campaign %s: %w", campaignID, err)
	}
	defer cursor.Close(ctx)

	var leads []*domain.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode leads: %w", err)
	}
	return leads, nil
}

func (r *LeadRepository) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.Collection(colLeads).FindOne(ctx, idFilter(leadID)).Decode(&lead)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead %s: %w", leadID, err)
	}
	return &lead, nil
}

func (r *LeadRepository) UpdateProgress(ctx context.Context, leadID string, progress *domain.Progress) error {
	_, err := r.db.Collection(colLeads).UpdateOne(ctx, idFilter(leadID),
		bson.M{"$set": bson.M{"progress": progress}})
	if err != nil {
		return fmt.Errorf("failed to update progress for lead %s: %w", leadID, err)
	}
	return nil
}

// BackfillProgress gives a default progress to leads that were imported
// without one. Returns the number of modified leads.
func (r *LeadRepository) BackfillProgress(ctx context.Context, campaignID string) (int64, error) {
	filter := refFilter("campaign_id", campaignID)
	filter["progress"] = bson.M{"$exists": false}

	result, err := r.db.Collection(colLeads).UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"progress": bson.M{"current_step_order": 1, "stopped": false}}})
	if err != nil {
		return 0, fmt.Errorf("failed to backfill progress for campaign %s: %w", campaignID, err)
	}
	return result.ModifiedCount, nil
}

// MarkRecipientStatuses stamps lead_data[i].status for recipients already
// present in processed_recipients. Administrative only: sequencing never
// reads these fields.
func (r *LeadRepository) MarkRecipientStatuses(ctx context.Context, campaignID, status string) (int64, error) {
	leads, err := r.ListLeads(ctx, campaignID)
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, lead := range leads {
		if lead.Progress == nil || len(lead.Progress.ProcessedRecipients) == 0 {
			continue
		}

		changed := false
		for i := 0; i < len(lead.Data.List); i++ {
			if !recipientProcessed(lead.Progress, i) {
				continue
			}
			if lead.Data.List[i].Get("status") == status {
				continue
			}
			lead.Data.List[i]["status"] = status
			changed = true
		}
		if !changed {
			continue
		}

		_, err := r.db.Collection(colLeads).UpdateOne(ctx, idFilter(lead.ID.String()),
			bson.M{"$set": bson.M{"lead_data": lead.Data}})
		if err != nil {
			return updated, fmt.Errorf("failed to update statuses for lead %s: %w", lead.ID, err)
		}
		updated++
	}
	return updated, nil
}

// recipientProcessed reports whether any step processed the recipient index.
func recipientProcessed(p *domain.Progress, recipientIndex int) bool {
	for step := 1; step <= p.StepOrder(); step++ {
		if _, ok := p.ProcessedRecipients[domain.RecipientKey(step, recipientIndex)]; ok {
			return true
		}
	}
	return false
}
