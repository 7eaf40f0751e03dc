package core

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type (
	// DBExecutor is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
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
)

// RunInTx runs fn inside a transaction started on db, committing on success and rolling back otherwise.
// When exec is already a transaction, fn joins it and the caller keeps ownership of commit/rollback.
func RunInTx(ctx context.Context, exec DBExecutor, fn func(tx DBExecutor) error) error {
	if _, ok := exec.(DBTransactor); ok {
		return fn(exec)
	}
	db, ok := exec.(DB)
	if !ok {
		return fn(exec)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

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

// CleanOrdering drops the orderings whose field is not in allowed.
func CleanOrdering(ordering []DBOrdering, allowed ...string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if ord.Field == fld {
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	return cleaned
}
