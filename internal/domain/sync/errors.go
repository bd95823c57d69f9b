// Package sync implements the transaction sync engine: cursor-based
// incremental pagination against the provider, reconciliation of
// added/modified/removed records into the store, and atomic cursor commits.
package sync

import (
	"errors"
	"fmt"
)

// Kind classifies a sync run failure.
type Kind string

const (
	// KindProviderTransient covers timeouts, rate limits, and transient
	// network faults. The run is safe to retry later; no state was persisted.
	KindProviderTransient Kind = "PROVIDER_TRANSIENT"

	// KindProviderFatal means the item's credential is invalid or revoked
	// and the item likely needs re-linking.
	KindProviderFatal Kind = "PROVIDER_FATAL"

	// KindAccumulationExceeded is the defensive pagination guard tripping.
	KindAccumulationExceeded Kind = "ACCUMULATION_EXCEEDED"

	// KindReconciliation is a store write failure mid-batch. The batch is
	// rolled back and the cursor does not advance.
	KindReconciliation Kind = "RECONCILIATION_FAILURE"

	// KindStoreUnavailable is a store failure outside reconciliation
	// (loading item info, listing items).
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
)

// Op names the engine step during which an error occurred.
type Op string

const (
	OpFetch     Op = "fetch"
	OpReconcile Op = "reconcile"
	OpCommit    Op = "commit_cursor"
	OpLoadItem  Op = "load_item"
	OpListItems Op = "list_items"
)

// SyncError is the structured error surfaced for a failed item run.
type SyncError struct {
	Kind   Kind
	Op     Op
	ItemID string
	Err    error
}

func (e *SyncError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s failed for item %s [%s]: %v", e.Op, e.ItemID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failed [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the whole run later can succeed without
// operator intervention.
func (e *SyncError) Retryable() bool {
	return e.Kind == KindProviderTransient || e.Kind == KindStoreUnavailable
}

func newSyncError(kind Kind, op Op, itemID string, err error) *SyncError {
	return &SyncError{Kind: kind, Op: op, ItemID: itemID, Err: err}
}

// KindOf extracts the failure kind from err, or "" if err is not a SyncError.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
