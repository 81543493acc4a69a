package consent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xs2a-consent-engine/services/testutil"
)

func TestBeforeCreateAlignsStatusChangedAt(t *testing.T) {
	db := testutil.NewTestDB(t, &Consent{}, &Usage{})

	record := &Consent{
		InternalID: 1,
		Type:       TypeAis,
		Status:     StatusReceived,
	}
	require.NoError(t, db.Create(record).Error)

	var loaded Consent
	require.NoError(t, db.First(&loaded, "internal_id = ?", record.InternalID).Error)
	require.False(t, loaded.CreatedAt.IsZero())
	require.True(t, loaded.StatusChangedAt.Equal(loaded.CreatedAt))
	require.NotEmpty(t, loaded.ExternalID)
}

func TestCreateRejectsEmptyStatus(t *testing.T) {
	db := testutil.NewTestDB(t, &Consent{}, &Usage{})

	err := db.Create(&Consent{InternalID: 2, Type: TypeAis}).Error
	require.ErrorIs(t, err, ErrStatusRequired)
}

func TestSaveBumpsStatusChangedAtOnRealChange(t *testing.T) {
	db := testutil.NewTestDB(t, &Consent{}, &Usage{})

	created := time.Now().Add(-time.Hour)
	record := &Consent{
		InternalID:      3,
		Type:            TypeAis,
		Status:          StatusReceived,
		CreatedAt:       created,
		StatusChangedAt: created,
	}
	require.NoError(t, db.Create(record).Error)

	var loaded Consent
	require.NoError(t, db.First(&loaded, "internal_id = ?", record.InternalID).Error)

	loaded.Status = StatusValid
	require.NoError(t, db.Save(&loaded).Error)
	require.True(t, loaded.StatusChangedAt.After(created))
}

func TestSaveSameStatusKeepsStatusChangedAt(t *testing.T) {
	db := testutil.NewTestDB(t, &Consent{}, &Usage{})

	created := time.Now().Add(-time.Hour)
	record := &Consent{
		InternalID:      4,
		Type:            TypeAis,
		Status:          StatusReceived,
		CreatedAt:       created,
		StatusChangedAt: created,
	}
	require.NoError(t, db.Create(record).Error)

	var loaded Consent
	require.NoError(t, db.First(&loaded, "internal_id = ?", record.InternalID).Error)

	loaded.PsuID = "psu-1"
	require.NoError(t, db.Save(&loaded).Error)
	require.True(t, loaded.StatusChangedAt.Equal(created))

	var reloaded Consent
	require.NoError(t, db.First(&reloaded, "internal_id = ?", record.InternalID).Error)
	require.Equal(t, StatusReceived, reloaded.Status)
}

func TestStatusFinalised(t *testing.T) {
	for _, s := range FinalisedStatuses {
		require.True(t, s.Finalised(), s.String())
	}
	for _, s := range []Status{StatusReceived, StatusPartiallyAuthorised, StatusValid} {
		require.False(t, s.Finalised(), s.String())
	}
}
