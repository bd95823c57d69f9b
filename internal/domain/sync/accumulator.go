package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ledgerlink/internal/infrastructure/provider"
)

// defaultMaxSyncPages bounds the pagination loop. The provider signals
// completion through has_more, but a provider bug must not spin us forever.
const defaultMaxSyncPages = 50

// errPaginationRunaway marks the defensive page cap tripping.
var errPaginationRunaway = errors.New("pagination did not terminate")

// Batch is the full set of provider changes accumulated across all pages of
// one sync run, in page arrival order, plus the cursor that marks the end of
// the run.
type Batch struct {
	Added      []provider.Transaction
	Modified   []provider.Transaction
	Removed    []provider.RemovedTransaction
	NextCursor string
}

// accumulator drives repeated provider calls until the provider reports no
// more pages. It is pure aggregation: nothing is persisted here, so a
// mid-fetch failure leaves the store and cursor untouched.
type accumulator struct {
	client   provider.ClientInterface
	opts     provider.SyncOptions
	maxPages int
}

func newAccumulator(client provider.ClientInterface, opts provider.SyncOptions, maxPages int) *accumulator {
	if maxPages <= 0 {
		maxPages = defaultMaxSyncPages
	}
	return &accumulator{client: client, opts: opts, maxPages: maxPages}
}

// fetchAll pages through the provider starting at initialCursor and returns
// the aggregated batch. An empty initialCursor requests the item's full
// history.
func (a *accumulator) fetchAll(ctx context.Context, accessToken, initialCursor string) (*Batch, error) {
	batch := &Batch{NextCursor: initialCursor}

	for pages := 0; ; pages++ {
		if pages >= a.maxPages {
			return nil, fmt.Errorf("%w after %d pages", errPaginationRunaway, a.maxPages)
		}

		page, err := a.client.SyncTransactions(ctx, accessToken, batch.NextCursor, a.opts)
		if err != nil {
			return nil, err
		}

		batch.Added = append(batch.Added, page.Added...)
		batch.Modified = append(batch.Modified, page.Modified...)
		batch.Removed = append(batch.Removed, page.Removed...)
		batch.NextCursor = page.NextCursor

		log.Printf("Sync page %d: added=%d modified=%d removed=%d has_more=%v",
			pages+1, len(page.Added), len(page.Modified), len(page.Removed), page.HasMore)

		if !page.HasMore {
			return batch, nil
		}
	}
}
