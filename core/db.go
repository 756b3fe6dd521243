package core

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}
)

// RunInTx runs fn inside a transaction, committing if fn succeeds and rolling back otherwise.
func RunInTx(ctx context.Context, db DB, fn func(tx DBExecutor) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
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

// ParseOrdering parses "name,-created_at" into orderings, keeping only the allowed fields.
// allowed maps API field names to column names.
func ParseOrdering(raw string, allowed map[string]string) []DBOrdering {
	if raw == "" {
		return nil
	}
	var ords []DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if col, ok := allowed[field]; ok {
			ords = append(ords, DBOrdering{Field: col, Ascending: !descending})
		}
	}
	return ords
}

// Pagination limits the number of rows a query returns. A zero Limit means no limit.
type Pagination struct {
	Limit  int
	Offset int
}

// ListOptions groups the ordering and pagination of a list query.
type ListOptions struct {
	Ordering   string
	Pagination Pagination
}

// SoftDelete marks rows as deleted instead of removing them.
// Soft-deleted rows are excluded from every query.
type SoftDelete struct {
	DeletedAt   null.Time   `json:"-" db:"deleted_at"`
	DeletedByID null.String `json:"-" db:"deleted_by_id"`
}

func (sd SoftDelete) IsDeleted() bool { return sd.DeletedAt.Valid }
