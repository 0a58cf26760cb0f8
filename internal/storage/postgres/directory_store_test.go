package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/openbusinessrecord/obr-registry/internal/registry"
)

func TestSaveRecordUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewDirectoryStoreWithPool(mock, "directory")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()

	rec := registry.AcceptedRecord{
		Domain:    "stonespizza.com",
		Slug:      "stone-s-pizza",
		Name:      "Stone's Pizza",
		URL:       "https://stonespizza.com",
		LastPulse: now.AddDate(0, -1, 0),
		SyncedAt:  now,
		Raw:       []byte(`{"name":"Stone's Pizza"}`),
	}

	mock.ExpectExec("INSERT INTO directory").
		WithArgs(
			rec.Domain,
			rec.Slug,
			rec.Name,
			rec.URL,
			rec.LastPulse,
			rec.SyncedAt,
			rec.Raw,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.SaveRecord(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRecordRequiresDomain(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewDirectoryStoreWithPool(mock, "directory")
	require.NoError(t, err)

	err = store.SaveRecord(context.Background(), registry.AcceptedRecord{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDirectoryStoreRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewDirectoryStoreWithPool(mock, "directory; DROP TABLE x")
	require.Error(t, err)
}
