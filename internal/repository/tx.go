package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	sqlStateUniqueViolation    = "23505"
	sqlStateExclusionViolation = "23P01"
)

// Transactor runs fn inside a single database transaction. A non-nil error
// from fn rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	// WithinSnapshot runs fn in a read-only repeatable-read transaction so
	// every query in fn sees the same committed state.
	WithinSnapshot(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

func (t *gormTransactor) WithinSnapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isUniqueViolation(err error) bool    { return hasSQLState(err, sqlStateUniqueViolation) }
func isExclusionViolation(err error) bool { return hasSQLState(err, sqlStateExclusionViolation) }

// conn prefers the caller's transaction and falls back to the pool.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
