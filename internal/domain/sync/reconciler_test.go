package sync

import (
	"context"
	"errors"
	"testing"

	"ledgerlink/internal/infrastructure/provider"
	"ledgerlink/internal/models"
)

// MockBatchTx implements BatchTx for testing. Every call is recorded in ops
// so tests can assert ordering.
type MockBatchTx struct {
	InsertFunc func(ctx context.Context, txn *models.Transaction) (bool, error)
	UpsertFunc func(ctx context.Context, txn *models.Transaction) (bool, error)
	DeleteFunc func(ctx context.Context, txnID string) (bool, error)
	CommitFunc func(ctx context.Context, itemID, cursor string) error

	ops []string
}

func (m *MockBatchTx) InsertTransactionIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	m.ops = append(m.ops, "insert:"+txn.ID)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, txn)
	}
	return true, nil
}

func (m *MockBatchTx) UpsertTransactionIfChanged(ctx context.Context, txn *models.Transaction) (bool, error) {
	m.ops = append(m.ops, "upsert:"+txn.ID)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, txn)
	}
	return true, nil
}

func (m *MockBatchTx) DeleteTransactionIfPresent(ctx context.Context, txnID string) (bool, error) {
	m.ops = append(m.ops, "delete:"+txnID)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, txnID)
	}
	return true, nil
}

func (m *MockBatchTx) CommitCursor(ctx context.Context, itemID, cursor string) error {
	m.ops = append(m.ops, "cursor:"+cursor)
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, itemID, cursor)
	}
	return nil
}

func TestReconcileAppliesInOrder(t *testing.T) {
	batch := &Batch{
		Added:    []provider.Transaction{txn("tx-1"), txn("tx-2")},
		Modified: []provider.Transaction{txn("tx-1")},
		Removed:  []provider.RemovedTransaction{{TransactionID: "tx-2"}},
	}

	tx := &MockBatchTx{}
	summary, err := reconcile(context.Background(), tx, batch, 1, "item-1")
	if err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}

	wantOps := []string{"insert:tx-1", "insert:tx-2", "upsert:tx-1", "delete:tx-2"}
	if len(tx.ops) != len(wantOps) {
		t.Fatalf("ops = %v, want %v", tx.ops, wantOps)
	}
	for i, op := range wantOps {
		if tx.ops[i] != op {
			t.Errorf("ops[%d] = %q, want %q", i, tx.ops[i], op)
		}
	}

	if summary.Added != 2 || summary.Modified != 1 || summary.Removed != 1 {
		t.Errorf("summary = %+v, want 2/1/1", summary)
	}
}

func TestReconcileCountsOnlyEffectiveChanges(t *testing.T) {
	batch := &Batch{
		Added:    []provider.Transaction{txn("tx-1"), txn("tx-dup")},
		Modified: []provider.Transaction{txn("tx-same")},
		Removed:  []provider.RemovedTransaction{{TransactionID: "tx-gone"}},
	}

	tx := &MockBatchTx{
		InsertFunc: func(ctx context.Context, txn *models.Transaction) (bool, error) {
			return txn.ID != "tx-dup", nil
		},
		UpsertFunc: func(ctx context.Context, txn *models.Transaction) (bool, error) {
			return false, nil
		},
		DeleteFunc: func(ctx context.Context, txnID string) (bool, error) {
			return false, nil
		},
	}

	summary, err := reconcile(context.Background(), tx, batch, 1, "item-1")
	if err != nil {
		t.Fatalf("reconcile returned error: %v", err)
	}

	if summary.Added != 1 || summary.Modified != 0 || summary.Removed != 0 {
		t.Errorf("summary = %+v, want added=1 modified=0 removed=0", summary)
	}
}

func TestReconcileStopsOnWriteFailure(t *testing.T) {
	batch := &Batch{
		Added:    []provider.Transaction{txn("tx-1")},
		Modified: []provider.Transaction{txn("tx-2")},
		Removed:  []provider.RemovedTransaction{{TransactionID: "tx-3"}},
	}

	wantErr := errors.New("disk full")
	tx := &MockBatchTx{
		UpsertFunc: func(ctx context.Context, txn *models.Transaction) (bool, error) {
			return false, wantErr
		},
	}

	_, err := reconcile(context.Background(), tx, batch, 1, "item-1")
	if !errors.Is(err, wantErr) {
		t.Fatalf("reconcile error = %v, want wrapped %v", err, wantErr)
	}

	for _, op := range tx.ops {
		if op == "delete:tx-3" {
			t.Errorf("delete ran after a failed upsert: %v", tx.ops)
		}
	}
}
