package consent

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/pkg/config"
	"xs2a-consent-engine/services/profile"
)

const defaultSweepBatchSize = 100

// AuthorisationCloser fails every open authorisation of the given records.
// Implemented by the authorisation service; declared here so the sweep can
// close payment authorisations without a package cycle.
type AuthorisationCloser interface {
	FailAllOpen(ctx context.Context, tx *gorm.DB, consentInternalIDs []int64) error
}

// Sweeper runs the periodic expiration sweeps. Each sweep loads bounded
// batches and commits one transaction per batch, so a single iteration
// never holds a long-lived transaction over the whole table and overlapping
// runs stay idempotent.
type Sweeper struct {
	db        *gorm.DB
	profile   profile.AspspProfile
	clock     clock.Clock
	closer    AuthorisationCloser
	batchSize int
}

type SweeperParams struct {
	fx.In
	DB      *gorm.DB
	Config  *config.Config
	Profile profile.AspspProfile
	Clock   clock.Clock
	Closer  AuthorisationCloser `optional:"true"`
}

func NewSweeper(p SweeperParams) *Sweeper {
	batchSize := p.Config.Scheduler.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &Sweeper{
		db:        p.DB,
		profile:   p.Profile,
		clock:     p.Clock,
		closer:    p.Closer,
		batchSize: batchSize,
	}
}

// ExpireByDate flips every non-finalised record whose validity window is
// over to EXPIRED.
func (s *Sweeper) ExpireByDate(ctx context.Context) error {
	now := s.clock.Now()
	total := 0

	for {
		var batch []*Consent
		err := s.db.WithContext(ctx).
			Where("consent_status NOT IN ?", FinalisedStatuses).
			Where("consent_type <> ?", TypePiisTpp).
			Where("valid_until < ?", startOfDay(now)).
			Limit(s.batchSize).
			Find(&batch).Error
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		expired := make([]int64, 0, len(batch))
		for _, c := range batch {
			if c.ShouldExpire(now) {
				expired = append(expired, c.InternalID)
			}
		}

		if err := s.expireBatch(ctx, expired, now); err != nil {
			return err
		}
		total += len(expired)

		if len(batch) < s.batchSize {
			break
		}
	}

	if total > 0 {
		zap.L().Info("expired consents past their validity date", zap.Int("count", total))
	}
	return nil
}

// ExpireNonRecurring flips one-off consents that were already exercised on
// a previous calendar day to EXPIRED.
func (s *Sweeper) ExpireNonRecurring(ctx context.Context) error {
	now := s.clock.Now()
	today := startOfDay(now)
	total := 0

	for {
		var batch []*Consent
		err := s.db.WithContext(ctx).
			Where("consent_status IN ?", []Status{StatusReceived, StatusValid}).
			Where("consent_type <> ?", TypePiisTpp).
			Where("recurring_indicator = ?", false).
			Where("internal_id IN (?)", s.db.Model(&Usage{}).
				Select("consent_internal_id").
				Where("usage_date < ?", today)).
			Limit(s.batchSize).
			Find(&batch).Error
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		expired := make([]int64, 0, len(batch))
		for _, c := range batch {
			expired = append(expired, c.InternalID)
		}

		if err := s.expireBatch(ctx, expired, now); err != nil {
			return err
		}
		total += len(expired)

		if len(batch) < s.batchSize {
			break
		}
	}

	if total > 0 {
		zap.L().Info("expired one-off consents used on a prior day", zap.Int("count", total))
	}
	return nil
}

// ExpireNotConfirmed closes records whose SCA was never completed within
// the bank's confirmation timeout. This sweep is the cancellation
// mechanism for abandoned authorisations: consents expire, payments are
// rejected and their open authorisations fail.
func (s *Sweeper) ExpireNotConfirmed(ctx context.Context) error {
	now := s.clock.Now()
	openStatuses := []Status{StatusReceived, StatusPartiallyAuthorised}

	// Consents first, payments second: the timeouts differ and payments
	// additionally fail their open authorisations.
	consentDeadline := now.Add(-s.profile.NotConfirmedConsentExpiration())
	for {
		ids, err := s.loadNotConfirmed(ctx, openStatuses, consentDeadline, false)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}
		if err := s.expireBatch(ctx, ids, now); err != nil {
			return err
		}
		if len(ids) < s.batchSize {
			break
		}
	}

	paymentDeadline := now.Add(-s.profile.NotConfirmedPaymentExpiration())
	for {
		ids, err := s.loadNotConfirmed(ctx, openStatuses, paymentDeadline, true)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}
		if err := s.rejectPaymentsBatch(ctx, ids, now); err != nil {
			return err
		}
		if len(ids) < s.batchSize {
			break
		}
	}
	return nil
}

func (s *Sweeper) loadNotConfirmed(ctx context.Context, statuses []Status, deadline time.Time, payments bool) ([]int64, error) {
	q := s.db.WithContext(ctx).Model(&Consent{}).
		Where("consent_status IN ?", statuses).
		Where("created_at < ?", deadline).
		Limit(s.batchSize)
	if payments {
		q = q.Where("consent_type = ?", TypePis)
	} else {
		q = q.Where("consent_type <> ?", TypePis)
	}

	var ids []int64
	if err := q.Pluck("internal_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// expireBatch flips one batch to EXPIRED inside its own transaction. The
// update is conditional on the status still being open, so records touched
// by a concurrent PSU action are skipped rather than clobbered.
func (s *Sweeper) expireBatch(ctx context.Context, ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&Consent{}).
			Where("internal_id IN ?", ids).
			Where("consent_status NOT IN ?", FinalisedStatuses).
			Updates(map[string]any{"consent_status": StatusExpired, "status_changed_at": now}).Error
	})
}

// rejectPaymentsBatch closes unconfirmed payments and fails their open
// authorisations in the same transaction.
func (s *Sweeper) rejectPaymentsBatch(ctx context.Context, ids []int64, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&Consent{}).
			Where("internal_id IN ?", ids).
			Where("consent_status NOT IN ?", FinalisedStatuses).
			Updates(map[string]any{"consent_status": StatusRejected, "status_changed_at": now}).Error
		if err != nil {
			return err
		}
		if s.closer != nil {
			return s.closer.FailAllOpen(ctx, tx, ids)
		}
		return nil
	})
}
