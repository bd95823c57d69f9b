package provider

import (
	"context"
)

// ClientInterface defines the single operation the sync engine needs from the
// provider. Implementations must not retry internally.
type ClientInterface interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string, opts SyncOptions) (*SyncPage, error)
}
