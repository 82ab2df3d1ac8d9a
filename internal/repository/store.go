package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx used by repositories. *pgxpool.Pool, pgx.Tx and
// pgxmock all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Users() UserRepository
	Appointments() AppointmentRepository
	// InTx runs fn inside one transaction, committing when fn returns nil.
	// Nested calls reuse the outer transaction.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// PostgresStore is the pgx backed Store.
type PostgresStore struct {
	db           TxBeginner
	users        UserRepository
	appointments AppointmentRepository
}

// NewPostgresStore wires repositories over the pool.
func NewPostgresStore(db TxBeginner) *PostgresStore {
	return &PostgresStore{
		db:           db,
		users:        NewUserRepository(db),
		appointments: NewAppointmentRepository(db),
	}
}

func (s *PostgresStore) Users() UserRepository               { return s.users }
func (s *PostgresStore) Appointments() AppointmentRepository { return s.appointments }

// InTx begins a transaction, runs fn and commits on success. Errors and
// panics roll back; panics are rethrown.
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) (err error) {
	if s.db == nil {
		return errors.New("postgres not configured")
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(ctx, &txStore{
		users:        NewUserRepository(tx),
		appointments: NewAppointmentRepository(tx),
	})
	return err
}

type txStore struct {
	users        UserRepository
	appointments AppointmentRepository
}

func (s *txStore) Users() UserRepository               { return s.users }
func (s *txStore) Appointments() AppointmentRepository { return s.appointments }

func (s *txStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, s)
}
