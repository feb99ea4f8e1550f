package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coldpipe/coldpipe/internal/domain"
)

// CampaignRepository reads campaign CRUD data from MongoDB.
type CampaignRepository struct {
	db *mongo.Database
}

func NewCampaignRepository(db *mongo.Database) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) GetQueue(ctx context.Context) ([]*domain.QueueEntry, error) {
	cursor, err := r.db.Collection(colCampaignQueue).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to read campaign queue: %w", err)
	}
	defer cursor.Close(ctx)

	var queue []*domain.QueueEntry
	if err := cursor.All(ctx, &queue); err != nil {
		return nil, fmt.Errorf("failed to decode campaign queue: %w", err)
	}
	return queue, nil
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := r.db.Collection(colCampaigns).FindOne(ctx, idFilter(campaignID)).Decode(&campaign)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign %s: %w", campaignID, err)
	}
	return &campaign, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	cursor, err := r.db.Collection(colCampaigns).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer cursor.Close(ctx)

	var campaigns []*domain.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, fmt.Errorf("failed to decode campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) GetOptions(ctx context.Context, campaignID string) (*domain.CampaignOptions, error) {
	var opts domain.CampaignOptions
	err := r.db.Collection(colCampaignOptions).FindOne(ctx, refFilter("campaign_id", campaignID)).Decode(&opts)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign options for %s: %w", campaignID, err)
	}
	return &opts, nil
}

func (r *CampaignRepository) GetSchedule(ctx context.Context, campaignID string) (*domain.CampaignSchedule, error) {
	var schedule domain.CampaignSchedule
	err := r.db.Collection(colCampaignSchedule).FindOne(ctx, refFilter("campaign_id", campaignID)).Decode(&schedule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign schedule for %s: %w", campaignID, err)
	}
	return &schedule, nil
}
