package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates every index the engine queries against. Safe to run
// repeatedly.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{colCampaigns, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}}},
		{colCampaignOptions, mongo.IndexModel{Keys: bson.D{{Key: "campaign_id", Value: 1}}, Options: unique}},
		{colCampaignSchedule, mongo.IndexModel{Keys: bson.D{{Key: "campaign_id", Value: 1}}, Options: unique}},
		{colSequences, mongo.IndexModel{Keys: bson.D{{Key: "campaign_id", Value: 1}}, Options: unique}},
		{colSequenceSteps, mongo.IndexModel{Keys: bson.D{{Key: "sequence_id", Value: 1}, {Key: "_id", Value: 1}}}},
		{colLeads, mongo.IndexModel{Keys: bson.D{{Key: "campaign_id", Value: 1}}}},
		{colLeads, mongo.IndexModel{Keys: bson.D{{Key: "lead_data.email", Value: 1}}}},
		// Serves due-lead selection directly.
		{colLeads, mongo.IndexModel{Keys: bson.D{{Key: "progress.stopped", Value: 1}, {Key: "progress.next_due_at", Value: 1}}}},
		{colActivities, mongo.IndexModel{Keys: bson.D{{Key: "campaign_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		{colActivities, mongo.IndexModel{Keys: bson.D{{Key: "lead_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		{colActivities, mongo.IndexModel{Keys: bson.D{{Key: "email_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		// Required for the arbiter's atomic reserve upsert.
		{colRuntimeState, mongo.IndexModel{Keys: bson.D{{Key: "email_id", Value: 1}, {Key: "date_key", Value: 1}}, Options: unique}},
	}

	for _, idx := range indexes {
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.collection, err)
		}
	}

	return nil
}
