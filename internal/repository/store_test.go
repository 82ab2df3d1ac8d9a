package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

func TestInTx_CommitsOnSuccess(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("2026-03-20|AM").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx Store) error {
		return tx.Appointments().LockSlot(ctx, "2026-03-20", domain.SlotAM)
	})
	require.NoError(t, err)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE appointments SET specialist_id=NULL WHERE specialist_id=$1")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.InTx(context.Background(), func(ctx context.Context, tx Store) error {
		if _, err := tx.Appointments().ClearSpecialist(ctx, 3); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestInTx_RollsBackOnPanic(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.InTx(context.Background(), func(ctx context.Context, tx Store) error {
			panic("kaput")
		})
	})
}

func TestInTx_BeginError(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err := store.InTx(context.Background(), func(ctx context.Context, tx Store) error {
		called = true
		return nil
	})
	assert.EqualError(t, err, "no connection")
	assert.False(t, called)
}

func TestInTx_NestedReusesTransaction(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx Store) error {
		return tx.InTx(ctx, func(ctx context.Context, inner Store) error {
			assert.Same(t, tx, inner)
			return nil
		})
	})
	require.NoError(t, err)
}
