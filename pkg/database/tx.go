package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Querier is what repositories run statements against: the pool, or the
// transaction carried by the context.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// InTx runs fn inside a transaction and hands it a context carrying that
// transaction. Repository calls made with the context join it, so a service
// can compose several repository writes atomically:
//
//	err := s.db.InTx(ctx, func(ctx context.Context) error {
//	    if err := s.assignments.Close(ctx, ids, actor, now); err != nil {
//	        return err
//	    }
//	    return s.assignments.Open(ctx, ids, toShelf, actor, now)
//	})
//
// Nested calls reuse the outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(context.Context) error) error {
	if db.txFrom(ctx) != nil {
		return fn(ctx)
	}
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction carried by ctx, or the pool.
func (db *DB) Conn(ctx context.Context) Querier {
	if tx := db.txFrom(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// InTransaction reports whether ctx carries a transaction.
func (db *DB) InTransaction(ctx context.Context) bool {
	return db.txFrom(ctx) != nil
}

func (db *DB) txFrom(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
