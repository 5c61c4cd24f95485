package database

import (
	"context"

	"gorm.io/gorm"
)

type txCtxKey struct{}

// Transactor runs a function inside a single database transaction. The tx
// handle travels in the context so repositories participating in the same
// unit of work share it; a variant write and its history append either both
// commit or both roll back.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txCtxKey{}, tx))
	})
}

// FromContext returns the ambient transaction handle, or fallback when the
// caller is not inside one.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txCtxKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
