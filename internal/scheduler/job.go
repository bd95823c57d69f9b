package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"ledgerlink/internal/domain/sync"
)

// Job is a unit of background work processed by the worker pool.
type Job interface {
	Execute(ctx context.Context) error
	UserID() string
	Description() string
}

// UserSyncJob syncs every linked item of one user through the sync engine.
type UserSyncJob struct {
	userID      int64
	syncService *sync.Service
}

func NewUserSyncJob(userID int64, syncService *sync.Service) *UserSyncJob {
	return &UserSyncJob{
		userID:      userID,
		syncService: syncService,
	}
}

// Execute runs one sync per item. Per-item failures are isolated by the
// engine; the job fails only so the outcome shows up in worker metrics,
// the successful items' cursors are already committed.
func (j *UserSyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting transaction sync for user %d", j.userID)

	results, err := j.syncService.SyncUserItems(ctx, j.userID)
	if err != nil {
		log.Printf("Transaction sync failed for user %d: %v", j.userID, err)
		return fmt.Errorf("sync failed: %w", err)
	}

	if failed := sync.FailedItems(results); len(failed) > 0 {
		log.Printf("Transaction sync for user %d completed with %d/%d failed items: %v",
			j.userID, len(failed), len(results), failed)
		return fmt.Errorf("sync completed with %d failed items", len(failed))
	}

	log.Printf("Transaction sync for user %d completed successfully across %d items",
		j.userID, len(results))
	return nil
}

func (j *UserSyncJob) UserID() string {
	return strconv.FormatInt(j.userID, 10)
}

func (j *UserSyncJob) Description() string {
	return fmt.Sprintf("Transaction sync for user %d", j.userID)
}
