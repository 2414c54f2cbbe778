package postgres

import (
	"context"
	"database/sql"
	"fmt"

	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/jmoiron/sqlx"
)

// Tx is a transaction carried on the context. Nested WithTx calls become savepoints.
type Tx struct {
	*sqlx.Tx
	depth int
	ID    string
}

// GetTx retrieves a transaction from the context if it exists
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(types.CtxDBTransaction).(*Tx)
	return tx, ok
}

func savepointName(depth int) string {
	return fmt.Sprintf("sp_%d", depth)
}

func (db *DB) begin(ctx context.Context) (context.Context, *Tx, error) {
	if tx, ok := GetTx(ctx); ok {
		tx.depth++
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepointName(tx.depth)); err != nil {
			tx.depth--
			return ctx, nil, ierr.WithError(err).WithHint("Failed to create savepoint").Mark(ierr.ErrDatabase)
		}
		return ctx, tx, nil
	}

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ctx, nil, ierr.WithError(err).WithHint("Failed to begin transaction").Mark(ierr.ErrDatabase)
	}

	tx := &Tx{Tx: sqlxTx, ID: types.GenerateUUID()}
	db.logger.Debugw("starting new transaction", "tx_id", tx.ID)
	return context.WithValue(ctx, types.CtxDBTransaction, tx), tx, nil
}

func (db *DB) commit(ctx context.Context, tx *Tx) error {
	if tx.depth > 0 {
		_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName(tx.depth))
		tx.depth--
		return err
	}
	db.logger.Debugw("committing transaction", "tx_id", tx.ID)
	return tx.Commit()
}

func (db *DB) rollback(ctx context.Context, tx *Tx) error {
	if tx.depth > 0 {
		_, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepointName(tx.depth))
		tx.depth--
		return err
	}
	db.logger.Debugw("rolling back transaction", "tx_id", tx.ID)
	return tx.Rollback()
}

// WithTx executes fn within a transaction, or a savepoint when one is already open
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, tx, err := db.begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = db.rollback(ctx, tx)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := db.rollback(ctx, tx); rbErr != nil {
			db.logger.Errorw("rollback failed", "tx_id", tx.ID, "error", rbErr, "cause", err)
		}
		return err
	}

	if err := db.commit(ctx, tx); err != nil {
		return ierr.WithError(err).WithHint("Failed to commit transaction").Mark(ierr.ErrDatabase)
	}
	return nil
}
