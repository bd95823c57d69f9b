package sync

import (
	"context"

	"ledgerlink/internal/models"
)

// Store is the persistence interface consumed by the engine. Implementations
// own durability; the engine owns cursor advancement logic but persists
// cursors only through BatchTx.CommitCursor, so no cursor state survives a
// process restart outside the store.
type Store interface {
	// GetItemsForUser returns all linked items for a user.
	GetItemsForUser(ctx context.Context, userID int64) ([]*models.Item, error)

	// GetItemInfo returns the item's credential, stored cursor, and owner.
	GetItemInfo(ctx context.Context, itemID string) (*models.Item, error)

	// ListTransactions returns a user's stored transactions, newest first.
	ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error)

	// WithBatch runs fn inside one store transaction. Every mutation made
	// through the BatchTx, including the cursor commit, becomes durable only
	// if fn returns nil; any error rolls the whole batch back.
	WithBatch(ctx context.Context, fn func(BatchTx) error) error
}

// BatchTx is the mutation surface available inside WithBatch. Each method
// reports whether it actually changed store state, so callers can count
// effective changes rather than attempts.
type BatchTx interface {
	// InsertTransactionIfAbsent inserts txn unless a row with its ID already
	// exists. Duplicate delivery is a no-op, not an error.
	InsertTransactionIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error)

	// UpsertTransactionIfChanged updates the row addressed by txn.ID, or
	// inserts it when missing (out-of-order delivery). Returns false when the
	// stored content already matches.
	UpsertTransactionIfChanged(ctx context.Context, txn *models.Transaction) (bool, error)

	// DeleteTransactionIfPresent deletes the row if it exists. Absence is not
	// an error.
	DeleteTransactionIfPresent(ctx context.Context, txnID string) (bool, error)

	// CommitCursor records the item's new sync cursor.
	CommitCursor(ctx context.Context, itemID, cursor string) error
}
