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

// RuntimeStateRepository owns the per-(account, day) throttling records. All
// cross-process contention is serialized by the atomic reserve upsert.
type RuntimeStateRepository struct {
	db *mongo.Database
}

func NewRuntimeStateRepository(db *mongo.Database) *RuntimeStateRepository {
	return &RuntimeStateRepository{db: db}
}

func stateFilter(emailID, dateKey string) bson.M {
	return bson.M{"email_id": emailID, "date_key": dateKey}
}

// reserveFilter is the availability predicate: under the daily cap, no live
// lock, cooldown elapsed.
func reserveFilter(emailID, dateKey string, nowUTC time.Time, dailyLimit int) bson.M {
	return bson.M{
		"email_id":   emailID,
		"date_key":   dateKey,
		"sent_count": bson.M{"$lt": dailyLimit},
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"locked_until": bson.M{"$exists": false}},
				bson.M{"locked_until": nil},
				bson.M{"locked_until": bson.M{"$lte": nowUTC}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"next_available_at": bson.M{"$exists": false}},
				bson.M{"next_available_at": bson.M{"$lte": nowUTC}},
			}},
		},
	}
}

// reserveUpdate installs the lock. Fresh records start with a zero sent
// count and are available from the start of the day; next_available_at is
// only ever moved by a commit.
func reserveUpdate(dateKey string, lockUntil time.Time) bson.M {
	startOfDay, _ := time.ParseInLocation("2006-01-02", dateKey, time.UTC)
	return bson.M{
		"$setOnInsert": bson.M{
			"sent_count":        0,
			"next_available_at": startOfDay,
		},
		"$set": bson.M{"locked_until": lockUntil},
	}
}

// AtomicReserve performs the single conditional-update-or-insert the arbiter
// contract requires. A losing race surfaces as a nil state, never an error:
// when the precondition fails against an existing record the upsert attempts
// an insert and trips the unique (email_id, date_key) index instead.
func (r *RuntimeStateRepository) AtomicReserve(ctx context.Context, emailID, dateKey string, nowUTC time.Time, dailyLimit int, lockUntil time.Time) (*domain.RuntimeState, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var state domain.RuntimeState
	err := r.db.Collection(colRuntimeState).FindOneAndUpdate(ctx,
		reserveFilter(emailID, dateKey, nowUTC, dailyLimit),
		reserveUpdate(dateKey, lockUntil),
		opts,
	).Decode(&state)
	if mongo.IsDuplicateKeyError(err) || errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve account %s on %s: %w", emailID, dateKey, err)
	}
	return &state, nil
}

// CommitSend increments the daily counter, pushes the cooldown forward and
// releases the lock. Called exactly once per reservation followed by a
// successful send.
func (r *RuntimeStateRepository) CommitSend(ctx context.Context, emailID, dateKey string, nextAvailableAt time.Time) error {
	_, err := r.db.Collection(colRuntimeState).UpdateOne(ctx, stateFilter(emailID, dateKey), bson.M{
		"$inc": bson.M{"sent_count": 1},
		"$set": bson.M{"next_available_at": nextAvailableAt, "locked_until": nil},
	})
	if err != nil {
		return fmt.Errorf("failed to commit send for account %s on %s: %w", emailID, dateKey, err)
	}
	return nil
}

// RollbackReservation releases the lock without touching sent_count or the
// cooldown.
func (r *RuntimeStateRepository) RollbackReservation(ctx context.Context, emailID, dateKey string) error {
	_, err := r.db.Collection(colRuntimeState).UpdateOne(ctx, stateFilter(emailID, dateKey),
		bson.M{"$set": bson.M{"locked_until": nil}})
	if err != nil {
		return fmt.Errorf("failed to rollback reservation for account %s on %s: %w", emailID, dateKey, err)
	}
	return nil
}

func (r *RuntimeStateRepository) GetState(ctx context.Context, emailID, dateKey string) (*domain.RuntimeState, error) {
	var state domain.RuntimeState
	err := r.db.Collection(colRuntimeState).FindOne(ctx, stateFilter(emailID, dateKey)).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime state for account %s on %s: %w", emailID, dateKey, err)
	}
	return &state, nil
}

func (r *RuntimeStateRepository) ListStates(ctx context.Context) ([]*domain.RuntimeState, error) {
	cursor, err := r.db.Collection(colRuntimeState).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list runtime states: %w", err)
	}
	defer cursor.Close(ctx)

	var states []*domain.RuntimeState
	if err := cursor.All(ctx, &states); err != nil {
		return nil, fmt.Errorf("failed to decode runtime states: %w", err)
	}
	return states, nil
}

// Recount rebuilds sent_count for (account, day) from the activity log.
func (r *RuntimeStateRepository) Recount(ctx context.Context, emailID, dateKey string) (int, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", dateKey, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid date key %q: %w", dateKey, err)
	}
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	count, err := r.db.Collection(colActivities).CountDocuments(ctx, bson.M{
		"email_id":   emailID,
		"type":       domain.ActivityTypeSent,
		"created_at": bson.M{"$gte": dayStart, "$lte": dayEnd},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count sent activities for account %s: %w", emailID, err)
	}

	_, err = r.db.Collection(colRuntimeState).UpdateOne(ctx, stateFilter(emailID, dateKey),
		bson.M{"$set": bson.M{"sent_count": count}},
		options.Update().SetUpsert(true))
	if err != nil {
		return 0, fmt.Errorf("failed to store recounted state for account %s: %w", emailID, err)
	}
	return int(count), nil
}

// FixStale repairs corrupt runtime records: next_available_at stuck in the
// distant past, or pushed into the future without any sends.
func (r *RuntimeStateRepository) FixStale(ctx context.Context, nowUTC time.Time) (int64, error) {
	startOfToday := nowUTC.Truncate(24 * time.Hour)
	reset := bson.M{"$set": bson.M{"next_available_at": startOfToday, "locked_until": nil}}

	// Anything before 2020 predates the system and is definitely wrong.
	ancient, err := r.db.Collection(colRuntimeState).UpdateMany(ctx,
		bson.M{"next_available_at": bson.M{"$lt": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}},
		reset)
	if err != nil {
		return 0, fmt.Errorf("failed to fix stale runtime states: %w", err)
	}

	future, err := r.db.Collection(colRuntimeState).UpdateMany(ctx,
		bson.M{
			"next_available_at": bson.M{"$gt": nowUTC.Add(time.Hour)},
			"sent_count":        0,
		},
		reset)
	if err != nil {
		return ancient.ModifiedCount, fmt.Errorf("failed to fix future runtime states: %w", err)
	}

	return ancient.ModifiedCount + future.ModifiedCount, nil
}
