package inmemdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-ledger/core"
	"github.com/trezcool/masomo-ledger/core/attendance"
	"github.com/trezcool/masomo-ledger/core/notification"
	inmemdb "github.com/trezcool/masomo-ledger/storage/database/inmem"
	"github.com/trezcool/masomo-ledger/tests"
)

func TestTransactor(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (core.Transactor, attendance.Repository, notification.Repository) {
		db, err := inmemdb.Open()
		require.NoError(t, err)
		return inmemdb.NewTransactor(db), inmemdb.NewAttendanceRepository(db), inmemdb.NewNotificationRepository(db)
	}
	write := func(t *testing.T, repo attendance.Repository, intents notification.Repository) error {
		rec := testutil.Record(t, testutil.StudentA, "2024-01-08", "morning", attendance.StatusAbsent)
		rec.ID = "rec-1"
		if _, err := repo.UpsertAttendance(ctx, rec); err != nil {
			return err
		}
		return intents.CreateIntents(ctx, []notification.Intent{{ID: "i1", AttendanceID: rec.ID}})
	}
	empty := func(t *testing.T, repo attendance.Repository, intents notification.Repository) {
		recs, err := repo.QueryAttendance(ctx, attendance.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, recs)
		ins, err := intents.QueryIntents(ctx, notification.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, ins)
	}

	t.Run("commit", func(t *testing.T) {
		tx, repo, intents := setup(t)
		err := tx.InTx(ctx, func(ctx context.Context, _ core.DBExecutor) error {
			return write(t, repo, intents)
		})
		require.NoError(t, err)

		rec, err := repo.GetAttendance(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusAbsent, rec.Status)
	})

	t.Run("rollback on error", func(t *testing.T) {
		tx, repo, intents := setup(t)
		err := tx.InTx(ctx, func(ctx context.Context, _ core.DBExecutor) error {
			if err := write(t, repo, intents); err != nil {
				return err
			}
			return errors.New("boom")
		})
		assert.EqualError(t, err, "boom")
		empty(t, repo, intents)
	})

	t.Run("rollback on panic", func(t *testing.T) {
		tx, repo, intents := setup(t)
		assert.Panics(t, func() {
			_ = tx.InTx(ctx, func(ctx context.Context, _ core.DBExecutor) error {
				_ = write(t, repo, intents)
				panic("boom")
			})
		})
		empty(t, repo, intents)
	})

	t.Run("rollback on cancellation", func(t *testing.T) {
		tx, repo, intents := setup(t)
		cctx, cancel := context.WithCancel(ctx)
		err := tx.InTx(cctx, func(ctx context.Context, _ core.DBExecutor) error {
			err := write(t, repo, intents)
			cancel()
			return err
		})
		assert.ErrorIs(t, err, context.Canceled)
		empty(t, repo, intents)
	})
}
