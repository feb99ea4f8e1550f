package service

import (
	"context"
	"time"

	"github.com/coldpipe/coldpipe/internal/domain"
	"github.com/coldpipe/coldpipe/pkg/logger"
)

// AccountArbiter serializes access to sending accounts. Reservations are
// per-(account, day) and enforced by a single atomic store operation, so the
// guarantees hold across processes sharing the store.
type AccountArbiter struct {
	repo     domain.RuntimeStateRepository
	logger   logger.Logger
	lockTTL  time.Duration
	boundary *time.Location
}

// NewAccountArbiter creates an arbiter. lockTTL bounds how long a crashed
// holder can strand a reservation; boundary decides where days roll over.
func NewAccountArbiter(repo domain.RuntimeStateRepository, log logger.Logger, lockTTL time.Duration, boundary *time.Location) *AccountArbiter {
	return &AccountArbiter{repo: repo, logger: log, lockTTL: lockTTL, boundary: boundary}
}

// Reserve attempts to claim the account for one send. It returns true iff
// the daily cap has headroom, no live reservation exists and the cooldown
// has elapsed. Of two concurrent calls for the same (account, day) at most
// one returns true.
func (a *AccountArbiter) Reserve(ctx context.Context, emailID string, nowUTC time.Time, dailyLimit, minWaitMinutes int) (bool, error) {
	if dailyLimit <= 0 {
		return false, nil
	}

	dateKey := domain.DateKeyFor(nowUTC, a.boundary)
	lockUntil := nowUTC.Add(a.lockTTL)

	state, err := a.repo.AtomicReserve(ctx, emailID, dateKey, nowUTC, dailyLimit, lockUntil)
	if err != nil {
		return false, err
	}

	// Ownership is confirmed by reading back the lock we tried to install.
	// The tolerance absorbs store-side timestamp truncation.
	if state != nil && state.LockedUntil != nil {
		diff := state.LockedUntil.Sub(lockUntil)
		if diff < 0 {
			diff = -diff
		}
		if diff <= time.Second {
			a.logger.WithFields(map[string]interface{}{
				"email_id": emailID,
				"date_key": dateKey,
			}).Debug("account reserved")
			return true, nil
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"email_id":    emailID,
		"date_key":    dateKey,
		"daily_limit": dailyLimit,
	}).Debug("account reservation denied")
	return false, nil
}

// Commit records a successful send: bumps the daily counter, starts the
// cooldown and releases the lock. Call exactly once per granted Reserve
// followed by a successful send.
func (a *AccountArbiter) Commit(ctx context.Context, emailID string, nowUTC time.Time, minWaitMinutes int) error {
	dateKey := domain.DateKeyFor(nowUTC, a.boundary)
	nextAvailable := nowUTC.Add(time.Duration(minWaitMinutes) * time.Minute)

	if err := a.repo.CommitSend(ctx, emailID, dateKey, nextAvailable); err != nil {
		return err
	}
	a.logger.WithFields(map[string]interface{}{
		"email_id":       emailID,
		"next_available": nextAvailable,
	}).Debug("account send committed")
	return nil
}

// Rollback releases the reservation without consuming budget. Call for any
// granted Reserve not followed by Commit.
func (a *AccountArbiter) Rollback(ctx context.Context, emailID string, nowUTC time.Time) error {
	dateKey := domain.DateKeyFor(nowUTC, a.boundary)

	if err := a.repo.RollbackReservation(ctx, emailID, dateKey); err != nil {
		return err
	}
	a.logger.WithField("email_id", emailID).Debug("account reservation rolled back")
	return nil
}
