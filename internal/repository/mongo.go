// Package repository implements the engine's persistence layer on MongoDB.
// All campaign CRUD data is read-only from here; the engine writes only lead
// progress, runtime state and activities.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	colCampaigns        = "campaigns"
	colCampaignOptions  = "campaign_options"
	colCampaignSchedule = "campaign_schedule"
	colCampaignQueue    = "campaign_queue"
	colSequences        = "campaign_sequences"
	colSequenceSteps    = "sequence_steps"
	colTemplates        = "templates"
	colLeads            = "campaign_leads"
	colActivities       = "campaign_activities"
	colRuntimeState     = "account_runtime_state"
	colEmailAccounts    = "email_accounts"
	colCampaignSettings = "email_campaign_settings"
	colGeneralSettings  = "email_general_settings"
)

const connectTimeout = 10 * time.Second

// Connect opens a client, verifies the connection and returns the database
// handle.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, client.Database(dbName), nil
}
