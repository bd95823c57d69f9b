package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	gosync "sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"ledgerlink/internal/infrastructure/provider"
)

var (
	syncTracer        = otel.Tracer("ledgerlink/sync")
	syncMeter         = otel.Meter("ledgerlink/sync")
	runDuration, _    = syncMeter.Float64Histogram("sync.run.duration", metric.WithDescription("Item sync run duration in seconds"), metric.WithUnit("s"))
	runsTotal, _      = syncMeter.Int64Counter("sync.run.total", metric.WithDescription("Item sync runs by outcome"))
	recordsApplied, _ = syncMeter.Int64Counter("sync.records.applied", metric.WithDescription("Records whose persistence changed store state, by change type"))
)

// Service is the sync orchestrator. One Service coordinates any number of
// items; runs for distinct items are independent, while runs for the same
// item are serialized through a per-item lock so two concurrent runs can
// never race on the cursor commit.
type Service struct {
	store    Store
	client   provider.ClientInterface
	opts     provider.SyncOptions
	maxPages int

	mu       gosync.Mutex
	itemLock map[string]*gosync.Mutex
}

// NewService creates a sync service backed by the given store and provider
// client. maxPages <= 0 selects the default pagination guard.
func NewService(store Store, client provider.ClientInterface, opts provider.SyncOptions, maxPages int) *Service {
	return &Service{
		store:    store,
		client:   client,
		opts:     opts,
		maxPages: maxPages,
		itemLock: make(map[string]*gosync.Mutex),
	}
}

// lockItem returns the run lock for itemID, creating it on first use.
func (s *Service) lockItem(itemID string) *gosync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.itemLock[itemID]
	if !ok {
		l = &gosync.Mutex{}
		s.itemLock[itemID] = l
	}
	return l
}

// SyncItem performs one full sync run for an item: load the stored cursor,
// accumulate all provider pages, reconcile the batch, and commit the new
// cursor in the same store transaction. On any failure the stored cursor
// keeps its last committed value, so the next run resumes from the last good
// point.
func (s *Service) SyncItem(ctx context.Context, itemID string) (*Summary, error) {
	lock := s.lockItem(itemID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	ctx, span := syncTracer.Start(ctx, "sync.item",
		trace.WithAttributes(attribute.String("sync.item_id", itemID)),
	)
	defer span.End()

	summary, err := s.runItem(ctx, itemID)

	runDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		runsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", "failed"),
			attribute.String("kind", string(KindOf(err))),
		))
		return nil, err
	}

	runsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
	recordsApplied.Add(ctx, int64(summary.Added), metric.WithAttributes(attribute.String("change", "added")))
	recordsApplied.Add(ctx, int64(summary.Modified), metric.WithAttributes(attribute.String("change", "modified")))
	recordsApplied.Add(ctx, int64(summary.Removed), metric.WithAttributes(attribute.String("change", "removed")))

	return summary, nil
}

// runItem is the body of one sync run. The caller holds the item lock.
func (s *Service) runItem(ctx context.Context, itemID string) (*Summary, error) {
	item, err := s.store.GetItemInfo(ctx, itemID)
	if err != nil {
		return nil, newSyncError(KindStoreUnavailable, OpLoadItem, itemID, err)
	}

	// nil cursor means the item has never completed a run: full resync.
	cursor := ""
	if item.Cursor != nil {
		cursor = *item.Cursor
	}

	acc := newAccumulator(s.client, s.opts, s.maxPages)
	batch, err := acc.fetchAll(ctx, item.AccessToken, cursor)
	if err != nil {
		return nil, newSyncError(classifyFetchError(err), OpFetch, itemID, err)
	}

	var summary *Summary
	err = s.store.WithBatch(ctx, func(tx BatchTx) error {
		var rerr error
		summary, rerr = reconcile(ctx, tx, batch, item.UserID, itemID)
		if rerr != nil {
			return rerr
		}
		return tx.CommitCursor(ctx, itemID, batch.NextCursor)
	})
	if err != nil {
		return nil, newSyncError(KindReconciliation, OpReconcile, itemID, err)
	}

	log.Printf("Sync completed for item %s: added=%d modified=%d removed=%d",
		itemID, summary.Added, summary.Modified, summary.Removed)

	return summary, nil
}

// classifyFetchError maps a fetch failure onto the engine's taxonomy. The
// accumulator's own guard is the only non-provider failure it can return.
func classifyFetchError(err error) Kind {
	switch {
	case errors.Is(err, errPaginationRunaway):
		return KindAccumulationExceeded
	case provider.IsCredentialRevoked(err):
		return KindProviderFatal
	case provider.IsTransient(err):
		return KindProviderTransient
	}
	// Structured provider errors that are neither transient nor a revoked
	// credential (malformed request, unsupported product) won't heal on
	// retry either.
	return KindProviderFatal
}

// ItemResult is the outcome of one item's run inside a multi-item trigger.
// Exactly one of Summary and Err is set.
type ItemResult struct {
	ItemID  string   `json:"itemId"`
	Summary *Summary `json:"summary,omitempty"`
	Err     error    `json:"-"`
}

// SyncUserItems runs one independent sync per linked item of the user,
// concurrently, and waits for all of them. One item's failure never aborts
// another item's run; failed items come back with Err set alongside the
// successful summaries. The only error returned directly is a failure to
// list the user's items.
func (s *Service) SyncUserItems(ctx context.Context, userID int64) ([]ItemResult, error) {
	items, err := s.store.GetItemsForUser(ctx, userID)
	if err != nil {
		return nil, newSyncError(KindStoreUnavailable, OpListItems, "", err)
	}

	results := make([]ItemResult, len(items))
	var wg gosync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, itemID string) {
			defer wg.Done()
			summary, err := s.SyncItem(ctx, itemID)
			if err != nil {
				log.Printf("Failed to sync item %s for user %d: %v", itemID, userID, err)
				results[i] = ItemResult{ItemID: itemID, Err: err}
				return
			}
			results[i] = ItemResult{ItemID: itemID, Summary: summary}
		}(i, item.ID)
	}
	wg.Wait()

	return results, nil
}

// FailedItems extracts the failed results, formatted for logging.
func FailedItems(results []ItemResult) []string {
	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", r.ItemID, r.Err))
		}
	}
	return failed
}
