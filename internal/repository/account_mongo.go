package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coldpipe/coldpipe/internal/domain"
)

// AccountRepository reads sending accounts and their settings.
type AccountRepository struct {
	db *mongo.Database
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetAccount(ctx context.Context, emailID string) (*domain.EmailAccount, error) {
	var account domain.EmailAccount
	err := r.db.Collection(colEmailAccounts).FindOne(ctx, idFilter(emailID)).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email account %s: %w", emailID, err)
	}
	return &account, nil
}

func (r *AccountRepository) ListActiveAccounts(ctx context.Context) ([]*domain.EmailAccount, error) {
	cursor, err := r.db.Collection(colEmailAccounts).Find(ctx, bson.M{"status": "active"})
	if err != nil {
		return nil, fmt.Errorf("failed to list email accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []*domain.EmailAccount
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode email accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) GetCampaignSettings(ctx context.Context, emailID string) (*domain.AccountCampaignSettings, error) {
	var settings domain.AccountCampaignSettings
	err := r.db.Collection(colCampaignSettings).FindOne(ctx, refFilter("email_id", emailID)).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign settings for account %s: %w", emailID, err)
	}
	return &settings, nil
}

func (r *AccountRepository) GetGeneralSettings(ctx context.Context, emailID string) (*domain.AccountGeneralSettings, error) {
	var settings domain.AccountGeneralSettings
	err := r.db.Collection(colGeneralSettings).FindOne(ctx, refFilter("email_id", emailID)).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get general settings for account %s: %w", emailID, err)
	}
	return &settings, nil
}
