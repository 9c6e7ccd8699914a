package core

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}

	// TxFunc is a unit of work. Every statement it runs must go through exec.
	TxFunc func(ctx context.Context, exec DBExecutor) error

	// Transactor runs a TxFunc inside a transaction: committed when fn returns nil,
	// rolled back when it returns an error or panics.
	Transactor interface {
		InTx(ctx context.Context, fn TxFunc) error
		// InReadTx runs fn in a transaction meant for multi-statement reports.
		InReadTx(ctx context.Context, fn TxFunc) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

type sqlTransactor struct {
	db       DB
	readOpts *sql.TxOptions
}

var _ Transactor = (*sqlTransactor)(nil)

// NewTransactor returns a Transactor backed by db.
// readOpts are used by InReadTx; nil means driver defaults.
func NewTransactor(db DB, readOpts *sql.TxOptions) Transactor {
	return &sqlTransactor{db: db, readOpts: readOpts}
}

func (t *sqlTransactor) InTx(ctx context.Context, fn TxFunc) error {
	return t.run(ctx, nil, fn)
}

func (t *sqlTransactor) InReadTx(ctx context.Context, fn TxFunc) error {
	return t.run(ctx, t.readOpts, fn)
}

func (t *sqlTransactor) run(ctx context.Context, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := t.db.BeginTx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = errors.Wrapf(err, "rolling back transaction (%v)", rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = errors.Wrap(cErr, "committing transaction")
		}
	}()

	return fn(ctx, tx)
}
