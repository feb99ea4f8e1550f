package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coldpipe/coldpipe/internal/domain"
)

// SequenceRepository resolves sequences and step documents.
type SequenceRepository struct {
	db *mongo.Database
}

func NewSequenceRepository(db *mongo.Database) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) GetSequence(ctx context.Context, campaignID string) (*domain.Sequence, error) {
	var sequence domain.Sequence
	err := r.db.Collection(colSequences).FindOne(ctx, refFilter("campaign_id", campaignID)).Decode(&sequence)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence for campaign %s: %w", campaignID, err)
	}
	return &sequence, nil
}

func (r *SequenceRepository) GetStep(ctx context.Context, stepID string) (*domain.SequenceStep, error) {
	var step domain.SequenceStep
	err := r.db.Collection(colSequenceSteps).FindOne(ctx, idFilter(stepID)).Decode(&step)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence step %s: %w", stepID, err)
	}
	return &step, nil
}
