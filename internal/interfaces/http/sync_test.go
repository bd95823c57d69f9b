package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledgerlink/internal/domain/sync"
	"ledgerlink/internal/infrastructure/provider"
	"ledgerlink/internal/models"
	"ledgerlink/internal/shared/middleware"
)

// MockStore implements sync.Store for testing
type MockStore struct {
	GetItemsForUserFunc  func(ctx context.Context, userID int64) ([]*models.Item, error)
	GetItemInfoFunc      func(ctx context.Context, itemID string) (*models.Item, error)
	ListTransactionsFunc func(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error)
	WithBatchFunc        func(ctx context.Context, fn func(sync.BatchTx) error) error
}

func (m *MockStore) GetItemsForUser(ctx context.Context, userID int64) ([]*models.Item, error) {
	if m.GetItemsForUserFunc != nil {
		return m.GetItemsForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockStore) GetItemInfo(ctx context.Context, itemID string) (*models.Item, error) {
	if m.GetItemInfoFunc != nil {
		return m.GetItemInfoFunc(ctx, itemID)
	}
	return &models.Item{ID: itemID, UserID: 1, AccessToken: "token"}, nil
}

func (m *MockStore) ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *MockStore) WithBatch(ctx context.Context, fn func(sync.BatchTx) error) error {
	if m.WithBatchFunc != nil {
		return m.WithBatchFunc(ctx, fn)
	}
	return fn(&noopBatchTx{})
}

type noopBatchTx struct{}

func (noopBatchTx) InsertTransactionIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	return true, nil
}

func (noopBatchTx) UpsertTransactionIfChanged(ctx context.Context, txn *models.Transaction) (bool, error) {
	return true, nil
}

func (noopBatchTx) DeleteTransactionIfPresent(ctx context.Context, txnID string) (bool, error) {
	return true, nil
}

func (noopBatchTx) CommitCursor(ctx context.Context, itemID, cursor string) error {
	return nil
}

// MockProviderClient implements provider.ClientInterface for testing
type MockProviderClient struct {
	SyncTransactionsFunc func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error)
}

func (m *MockProviderClient) SyncTransactions(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
	if m.SyncTransactionsFunc != nil {
		return m.SyncTransactionsFunc(ctx, accessToken, cursor, opts)
	}
	return &provider.SyncPage{NextCursor: "c", HasMore: false}, nil
}

func identifiedRequest(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestHandleSyncItem(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		userID         int64
		withIdentity   bool
		mockStore      func() *MockStore
		mockClient     func() *MockProviderClient
		expectedStatus int
	}{
		{
			name:         "Success",
			method:       http.MethodPost,
			userID:       1,
			withIdentity: true,
			mockStore:    func() *MockStore { return &MockStore{} },
			mockClient: func() *MockProviderClient {
				return &MockProviderClient{
					SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
						return &provider.SyncPage{
							Added:      []provider.Transaction{{TransactionID: "tx-1", Name: "Coffee"}},
							NextCursor: "c1",
						}, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:         "Forbidden",
			method:       http.MethodPost,
			userID:       2, // Different user
			withIdentity: true,
			mockStore: func() *MockStore {
				return &MockStore{
					GetItemInfoFunc: func(ctx context.Context, itemID string) (*models.Item, error) {
						return &models.Item{ID: itemID, UserID: 1, AccessToken: "token"}, nil
					},
				}
			},
			mockClient:     func() *MockProviderClient { return &MockProviderClient{} },
			expectedStatus: http.StatusForbidden,
		},
		{
			name:         "Not found",
			method:       http.MethodPost,
			userID:       1,
			withIdentity: true,
			mockStore: func() *MockStore {
				return &MockStore{
					GetItemInfoFunc: func(ctx context.Context, itemID string) (*models.Item, error) {
						return nil, context.DeadlineExceeded
					},
				}
			},
			mockClient:     func() *MockProviderClient { return &MockProviderClient{} },
			expectedStatus: http.StatusNotFound,
		},
		{
			name:         "Transient provider failure",
			method:       http.MethodPost,
			userID:       1,
			withIdentity: true,
			mockStore:    func() *MockStore { return &MockStore{} },
			mockClient: func() *MockProviderClient {
				return &MockProviderClient{
					SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
						return nil, &provider.Error{StatusCode: 429, ErrorType: "RATE_LIMIT_EXCEEDED"}
					},
				}
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "Method not allowed",
			method:         http.MethodGet,
			userID:         1,
			withIdentity:   true,
			mockStore:      func() *MockStore { return &MockStore{} },
			mockClient:     func() *MockProviderClient { return &MockProviderClient{} },
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "Unauthorized without identity",
			method:         http.MethodPost,
			mockStore:      func() *MockStore { return &MockStore{} },
			mockClient:     func() *MockProviderClient { return &MockProviderClient{} },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.mockStore()
			svc := sync.NewService(store, tt.mockClient(), provider.SyncOptions{}, 0)
			handler := NewSyncHandler(svc, store)

			var req *http.Request
			if tt.withIdentity {
				req = identifiedRequest(tt.method, "/api/items/item-1/sync", tt.userID)
			} else {
				req = httptest.NewRequest(tt.method, "/api/items/item-1/sync", nil)
			}
			req.SetPathValue("id", "item-1")

			rec := httptest.NewRecorder()
			handler.HandleSyncItem(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.expectedStatus, rec.Body.String())
			}

			if tt.expectedStatus == http.StatusOK {
				var summary sync.Summary
				if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
					t.Fatalf("failed to decode summary: %v", err)
				}
				if summary.Added != 1 {
					t.Errorf("summary.Added = %d, want 1", summary.Added)
				}
			}
		})
	}
}

func TestHandleSyncItemErrorShape(t *testing.T) {
	store := &MockStore{}
	client := &MockProviderClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
			return nil, &provider.Error{StatusCode: 400, ErrorCode: "INVALID_ACCESS_TOKEN"}
		},
	}
	handler := NewSyncHandler(sync.NewService(store, client, provider.SyncOptions{}, 0), store)

	req := identifiedRequest(http.MethodPost, "/api/items/item-1/sync", 1)
	req.SetPathValue("id", "item-1")
	rec := httptest.NewRecorder()
	handler.HandleSyncItem(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}

	var body struct {
		Error     string `json:"error"`
		Kind      string `json:"kind"`
		Retryable bool   `json:"retryable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Kind != string(sync.KindProviderFatal) {
		t.Errorf("kind = %q, want %q", body.Kind, sync.KindProviderFatal)
	}
	if body.Retryable {
		t.Error("revoked credential reported as retryable")
	}
}

func TestHandleSyncAll(t *testing.T) {
	store := &MockStore{
		GetItemsForUserFunc: func(ctx context.Context, userID int64) ([]*models.Item, error) {
			return []*models.Item{
				{ID: "item-good", UserID: userID, AccessToken: "token-good"},
				{ID: "item-bad", UserID: userID, AccessToken: "token-bad"},
			}, nil
		},
		GetItemInfoFunc: func(ctx context.Context, itemID string) (*models.Item, error) {
			return &models.Item{ID: itemID, UserID: 1, AccessToken: "token-" + itemID}, nil
		},
	}
	client := &MockProviderClient{
		SyncTransactionsFunc: func(ctx context.Context, accessToken, cursor string, opts provider.SyncOptions) (*provider.SyncPage, error) {
			if accessToken == "token-item-bad" {
				return nil, &provider.Error{StatusCode: 400, ErrorCode: "INVALID_ACCESS_TOKEN"}
			}
			return &provider.SyncPage{NextCursor: "c"}, nil
		},
	}
	handler := NewSyncHandler(sync.NewService(store, client, provider.SyncOptions{}, 0), store)

	rec := httptest.NewRecorder()
	handler.HandleSyncAll(rec, identifiedRequest(http.MethodPost, "/api/transactions/sync", 1))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp syncAllResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Synced != 1 || resp.Failed != 1 {
		t.Errorf("synced/failed = %d/%d, want 1/1", resp.Synced, resp.Failed)
	}
	if len(resp.Results) != 2 {
		t.Errorf("results = %d, want 2", len(resp.Results))
	}
}

func TestHandleSyncAllUnauthorized(t *testing.T) {
	store := &MockStore{}
	handler := NewSyncHandler(sync.NewService(store, &MockProviderClient{}, provider.SyncOptions{}, 0), store)

	rec := httptest.NewRecorder()
	handler.HandleSyncAll(rec, httptest.NewRequest(http.MethodPost, "/api/transactions/sync", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
