package storage

import (
	"context"

	"go.uber.org/zap"
)

// WithTransaction runs fn inside a physical transaction. Nested calls are
// collapsed: when the adapter is already inside a transaction, fn runs
// inline and joins the outer BEGIN/COMMIT pair. On error the transaction is
// rolled back and the original error is returned unchanged.
//
// The depth counter is per adapter instance, not per caller. Two concurrent
// call chains sharing one adapter will join each other's transaction;
// callers needing independent transactions must use separate adapters.
func (a *Adapter) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	a.txnMu.Lock()
	a.txnDepth++
	nested := a.txnDepth > 1
	a.txnMu.Unlock()

	// The depth always unwinds, even when COMMIT or ROLLBACK themselves
	// fail, so an error can never leave the adapter stuck in a transaction.
	defer func() {
		a.txnMu.Lock()
		a.txnDepth--
		a.txnMu.Unlock()
	}()

	if nested {
		return fn(ctx)
	}

	if _, err := a.exec.RunStatement(ctx, "BEGIN", nil); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := a.exec.RunStatement(ctx, "ROLLBACK", nil); rbErr != nil {
			a.log.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}

	_, err := a.exec.RunStatement(ctx, "COMMIT", nil)
	return err
}

// InTransaction reports whether the adapter currently holds an open
// transaction. Diagnostic only.
func (a *Adapter) InTransaction() bool {
	a.txnMu.Lock()
	defer a.txnMu.Unlock()
	return a.txnDepth > 0
}
