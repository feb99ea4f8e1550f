package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coldpipe/coldpipe/internal/domain"
)

// ActivityRepository appends and counts send activities.
type ActivityRepository struct {
	db *mongo.Database
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Insert(ctx context.Context, activity *domain.Activity) error {
	if _, err := r.db.Collection(colActivities).InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// sentSinceFilter counts sent activities for the campaign-level daily cap.
func sentSinceFilter(campaignID string, since time.Time) bson.M {
	filter := refFilter("campaign_id", campaignID)
	filter["type"] = domain.ActivityTypeSent
	filter["created_at"] = bson.M{"$gte": since}
	return filter
}

func (r *ActivityRepository) CountSentSince(ctx context.Context, campaignID string, since time.Time) (int64, error) {
	count, err := r.db.Collection(colActivities).CountDocuments(ctx, sentSinceFilter(campaignID, since))
	if err != nil {
		return 0, fmt.Errorf("failed to count sent activities for campaign %s: %w", campaignID, err)
	}
	return count, nil
}
