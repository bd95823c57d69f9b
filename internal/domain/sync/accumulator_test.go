package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ledgerlink/internal/infrastructure/provider"
)

// MockProviderClient implements provider.ClientInterface for testing
type MockProviderClient struct {
	SyncTransactionsFunc func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error)
}

func (m *MockProviderClient) SyncTransactions(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
	if m.SyncTransactionsFunc != nil {
		return m.SyncTransactionsFunc(ctx, accessToken, cursor, opts)
	}
	return &provider.SyncPage{}, nil
}

// pagedClient serves a fixed sequence of pages, advancing on the cursor the
// caller sends back.
func pagedClient(t *testing.T, pages []*provider.SyncPage) *MockProviderClient {
	t.Helper()
	return &MockProviderClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
			for i, page := range pages {
				want := ""
				if i > 0 {
					want = pages[i-1].NextCursor
				}
				if cursor == want {
					return page, nil
				}
			}
			t.Fatalf("unexpected cursor %q", cursor)
			return nil, nil
		},
	}
}

func txn(id string) provider.Transaction {
	return provider.Transaction{TransactionID: id, AccountID: "acc-1", Date: "2024-01-15", Name: "Coffee"}
}

func TestFetchAllAggregatesPages(t *testing.T) {
	pages := []*provider.SyncPage{
		{Added: []provider.Transaction{txn("tx-1"), txn("tx-2")}, NextCursor: "c1", HasMore: true},
		{Modified: []provider.Transaction{txn("tx-1")}, NextCursor: "c2", HasMore: true},
		{Removed: []provider.RemovedTransaction{{TransactionID: "tx-2"}}, NextCursor: "c3", HasMore: false},
	}

	acc := newAccumulator(pagedClient(t, pages), provider.SyncOptions{}, 0)
	batch, err := acc.fetchAll(context.Background(), "token", "")
	if err != nil {
		t.Fatalf("fetchAll returned error: %v", err)
	}

	if len(batch.Added) != 2 || len(batch.Modified) != 1 || len(batch.Removed) != 1 {
		t.Errorf("batch sizes = %d/%d/%d, want 2/1/1", len(batch.Added), len(batch.Modified), len(batch.Removed))
	}
	if batch.NextCursor != "c3" {
		t.Errorf("NextCursor = %q, want %q", batch.NextCursor, "c3")
	}
	if batch.Added[0].TransactionID != "tx-1" || batch.Added[1].TransactionID != "tx-2" {
		t.Errorf("added records out of arrival order: %v", batch.Added)
	}
}

func TestFetchAllResumesFromCursor(t *testing.T) {
	var gotCursor string
	client := &MockProviderClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
			gotCursor = cursor
			return &provider.SyncPage{NextCursor: "c-next", HasMore: false}, nil
		},
	}

	acc := newAccumulator(client, provider.SyncOptions{}, 0)
	if _, err := acc.fetchAll(context.Background(), "token", "c-stored"); err != nil {
		t.Fatalf("fetchAll returned error: %v", err)
	}
	if gotCursor != "c-stored" {
		t.Errorf("first request cursor = %q, want %q", gotCursor, "c-stored")
	}
}

func TestFetchAllStopsAtPageCap(t *testing.T) {
	calls := 0
	client := &MockProviderClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
			calls++
			return &provider.SyncPage{NextCursor: fmt.Sprintf("c%d", calls), HasMore: true}, nil
		},
	}

	acc := newAccumulator(client, provider.SyncOptions{}, 5)
	_, err := acc.fetchAll(context.Background(), "token", "")
	if !errors.Is(err, errPaginationRunaway) {
		t.Fatalf("fetchAll error = %v, want pagination runaway", err)
	}
	if calls != 5 {
		t.Errorf("provider calls = %d, want 5", calls)
	}
}

func TestFetchAllPropagatesClientError(t *testing.T) {
	wantErr := &provider.Error{StatusCode: 429, ErrorType: "RATE_LIMIT_EXCEEDED"}
	client := &MockProviderClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
			return nil, wantErr
		},
	}

	acc := newAccumulator(client, provider.SyncOptions{}, 0)
	_, err := acc.fetchAll(context.Background(), "token", "")
	if !errors.Is(err, wantErr) {
		t.Fatalf("fetchAll error = %v, want provider error", err)
	}
}
