package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"xs2a-consent-engine/pkg/clock"
	"xs2a-consent-engine/pkg/config"
	"xs2a-consent-engine/services/profile"
	"xs2a-consent-engine/services/testutil"
)

type closerMock struct {
	FailAllOpenFn func(ctx context.Context, tx *gorm.DB, consentInternalIDs []int64) error
}

func (m *closerMock) FailAllOpen(ctx context.Context, tx *gorm.DB, consentInternalIDs []int64) error {
	if m.FailAllOpenFn != nil {
		return m.FailAllOpenFn(ctx, tx, consentInternalIDs)
	}
	return nil
}

func newTestSweeper(t *testing.T, cfg *config.Config, clk clock.Clock, closer AuthorisationCloser) (*Sweeper, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &Consent{}, &Usage{})
	s := NewSweeper(SweeperParams{
		DB:      db,
		Config:  cfg,
		Profile: profile.New(cfg),
		Clock:   clk,
		Closer:  closer,
	})
	return s, db
}

func seedConsent(t *testing.T, db *gorm.DB, id int64, typ Type, status Status, mutate ...func(*Consent)) {
	t.Helper()
	c := &Consent{
		InternalID: id,
		Type:       typ,
		Status:     status,
		CreatedAt:  noon.Add(-time.Hour),
		ValidUntil: noon.AddDate(0, 0, 30),
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, db.Create(c).Error)
}

func statusOf(t *testing.T, db *gorm.DB, id int64) Status {
	t.Helper()
	var c Consent
	require.NoError(t, db.First(&c, "internal_id = ?", id).Error)
	return c.Status
}

func TestExpireByDate(t *testing.T) {
	s, db := newTestSweeper(t, testConfig(), clock.Fixed{T: noon}, nil)
	ctx := context.Background()

	pastDate := func(c *Consent) { c.ValidUntil = noon.AddDate(0, 0, -2) }

	seedConsent(t, db, 1, TypeAis, StatusValid, pastDate)
	seedConsent(t, db, 2, TypePis, StatusReceived, pastDate)
	seedConsent(t, db, 3, TypeAis, StatusValid) // still valid
	seedConsent(t, db, 4, TypePiisTpp, StatusValid, pastDate)
	seedConsent(t, db, 5, TypeAis, StatusRevokedByPsu, pastDate)

	require.NoError(t, s.ExpireByDate(ctx))

	require.Equal(t, StatusExpired, statusOf(t, db, 1))
	require.Equal(t, StatusExpired, statusOf(t, db, 2))
	require.Equal(t, StatusValid, statusOf(t, db, 3))
	require.Equal(t, StatusValid, statusOf(t, db, 4), "TPP funds-confirmation consents are exempt")
	require.Equal(t, StatusRevokedByPsu, statusOf(t, db, 5), "finalised records stay untouched")

	// A second run finds nothing left to do.
	var before Consent
	require.NoError(t, db.First(&before, "internal_id = ?", 1).Error)
	require.NoError(t, s.ExpireByDate(ctx))
	var after Consent
	require.NoError(t, db.First(&after, "internal_id = ?", 1).Error)
	require.True(t, after.StatusChangedAt.Equal(before.StatusChangedAt))
}

func TestExpireNonRecurring(t *testing.T) {
	s, db := newTestSweeper(t, testConfig(), clock.Fixed{T: noon}, nil)
	ctx := context.Background()

	usedOn := func(day time.Time) func(*Consent) {
		return func(c *Consent) {
			c.Usages = []Usage{{UsageDate: day, Resource: "/accounts"}}
		}
	}

	seedConsent(t, db, 1, TypeAis, StatusValid, usedOn(noon.AddDate(0, 0, -1)))
	seedConsent(t, db, 2, TypeAis, StatusValid, usedOn(noon.Add(-time.Hour)))
	seedConsent(t, db, 3, TypeAis, StatusValid, usedOn(noon.AddDate(0, 0, -1)), func(c *Consent) {
		c.RecurringIndicator = true
	})
	seedConsent(t, db, 4, TypeAis, StatusValid) // never used

	require.NoError(t, s.ExpireNonRecurring(ctx))

	require.Equal(t, StatusExpired, statusOf(t, db, 1))
	require.Equal(t, StatusValid, statusOf(t, db, 2), "used today, still usable today")
	require.Equal(t, StatusValid, statusOf(t, db, 3), "recurring consents are unaffected")
	require.Equal(t, StatusValid, statusOf(t, db, 4))
}

func TestExpireNotConfirmed(t *testing.T) {
	var failed [][]int64
	closer := &closerMock{
		FailAllOpenFn: func(ctx context.Context, tx *gorm.DB, ids []int64) error {
			failed = append(failed, ids)
			return nil
		},
	}
	s, db := newTestSweeper(t, testConfig(), clock.Fixed{T: noon}, closer)
	ctx := context.Background()

	stale := func(c *Consent) { c.CreatedAt = noon.Add(-25 * time.Hour) }

	seedConsent(t, db, 1, TypeAis, StatusReceived, stale)
	seedConsent(t, db, 2, TypeAis, StatusReceived) // one hour old
	seedConsent(t, db, 3, TypePis, StatusReceived, stale)
	seedConsent(t, db, 4, TypePis, StatusPartiallyAuthorised, stale)
	seedConsent(t, db, 5, TypeAis, StatusValid, stale) // already confirmed

	require.NoError(t, s.ExpireNotConfirmed(ctx))

	require.Equal(t, StatusExpired, statusOf(t, db, 1))
	require.Equal(t, StatusReceived, statusOf(t, db, 2))
	require.Equal(t, StatusRejected, statusOf(t, db, 3))
	require.Equal(t, StatusRejected, statusOf(t, db, 4))
	require.Equal(t, StatusValid, statusOf(t, db, 5))

	require.Len(t, failed, 1)
	require.ElementsMatch(t, []int64{3, 4}, failed[0])
}

func TestSweepProcessesInBatches(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.BatchSize = 2
	s, db := newTestSweeper(t, cfg, clock.Fixed{T: noon}, nil)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		seedConsent(t, db, i, TypeAis, StatusValid, func(c *Consent) {
			c.ValidUntil = noon.AddDate(0, 0, -1)
		})
	}

	require.NoError(t, s.ExpireByDate(ctx))

	var count int64
	require.NoError(t, db.Model(&Consent{}).
		Where("consent_status = ?", StatusExpired).
		Count(&count).Error)
	require.EqualValues(t, 5, count)
}
