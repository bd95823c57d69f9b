package sync

import (
	"context"
	"fmt"
)

// Summary counts the records whose persistence actually changed store state
// during one run. Attempted writes that turned out to be no-ops (duplicate
// adds, identical modifies, removes of absent rows) do not count.
type Summary struct {
	ItemID   string `json:"itemId"`
	Added    int    `json:"added"`
	Modified int    `json:"modified"`
	Removed  int    `json:"removed"`
}

// reconcile applies one normalized batch through tx. Order matters: adds,
// then modifies, then removes. The provider can emit an add and a later
// modify for the same id inside one batch, and a record both modified and
// removed in the same batch must end up absent (deletion wins).
//
// reconcile runs inside a store transaction, so a failure here rolls back
// every prior write of the batch along with the cursor.
func reconcile(ctx context.Context, tx BatchTx, batch *Batch, userID int64, itemID string) (*Summary, error) {
	summary := &Summary{ItemID: itemID}

	for i := range batch.Added {
		txn := Normalize(&batch.Added[i], userID)
		changed, err := tx.InsertTransactionIfAbsent(ctx, txn)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		if changed {
			summary.Added++
		}
	}

	for i := range batch.Modified {
		txn := Normalize(&batch.Modified[i], userID)
		changed, err := tx.UpsertTransactionIfChanged(ctx, txn)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert transaction %s: %w", txn.ID, err)
		}
		if changed {
			summary.Modified++
		}
	}

	for _, removed := range batch.Removed {
		changed, err := tx.DeleteTransactionIfPresent(ctx, removed.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete transaction %s: %w", removed.TransactionID, err)
		}
		if changed {
			summary.Removed++
		}
	}

	return summary, nil
}
