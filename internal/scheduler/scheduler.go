// Package scheduler runs periodic transaction sync for every known user.
// At each configured time of day it lists the users with linked items and
// fans one sync job per user out to a bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"log"
	gosync "sync"
	"time"

	"ledgerlink/internal/domain/sync"
)

// UserSource lists the users whose items should be synced.
type UserSource interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// ScheduleTime is a time of day when a sync sweep should run.
type ScheduleTime struct {
	Hour   int
	Minute int
}

// String returns the time in HH:MM format.
func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses a time string in HH:MM format.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	var hour, minute int
	_, err := fmt.Sscanf(s, "%d:%d", &hour, &minute)
	if err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid time format (expected HH:MM): %w", err)
	}

	if hour < 0 || hour > 23 {
		return ScheduleTime{}, fmt.Errorf("invalid hour: %d (must be 0-23)", hour)
	}
	if minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid minute: %d (must be 0-59)", minute)
	}

	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

// NewSyncJobProvider returns a job provider that creates one sync job per
// user known to the store.
func NewSyncJobProvider(users UserSource, syncService *sync.Service) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		userIDs, err := users.ListUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users for sync: %w", err)
		}

		jobs := make([]Job, 0, len(userIDs))
		for _, userID := range userIDs {
			jobs = append(jobs, NewUserSyncJob(userID, syncService))
		}
		return jobs, nil
	}
}

// Scheduler manages periodic execution of sync jobs at specific times.
type Scheduler struct {
	workerPool    *WorkerPool
	scheduleTimes []ScheduleTime
	runOnStartup  bool
	jobProvider   func(context.Context) ([]Job, error)

	ctx        context.Context
	cancel     context.CancelFunc
	wg         gosync.WaitGroup
	lastRunKey string
	mu         gosync.Mutex
}

// Config holds scheduler configuration.
type Config struct {
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
	JobProvider   func(context.Context) ([]Job, error)
}

// New creates a scheduler with the given configuration.
func New(config Config) (*Scheduler, error) {
	scheduleTimes := make([]ScheduleTime, 0, len(config.ScheduleTimes))
	for _, timeStr := range config.ScheduleTimes {
		st, err := ParseScheduleTime(timeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse schedule time %q: %w", timeStr, err)
		}
		scheduleTimes = append(scheduleTimes, st)
	}

	if len(scheduleTimes) == 0 {
		return nil, fmt.Errorf("at least one schedule time is required")
	}

	workerPool := NewWorkerPool(config.WorkerCount, config.JobDelay, config.QueueSize)
	ctx, cancel := context.WithCancel(context.Background())

	log.Printf("Scheduler initialized with %d schedule times: %v", len(scheduleTimes), config.ScheduleTimes)
	log.Printf("Worker pool: %d workers, %v delay between jobs", config.WorkerCount, config.JobDelay)

	return &Scheduler{
		workerPool:    workerPool,
		scheduleTimes: scheduleTimes,
		runOnStartup:  config.RunOnStartup,
		jobProvider:   config.JobProvider,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start launches the scheduler and worker pool.
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	s.workerPool.Start()

	if s.runOnStartup {
		log.Println("Scheduler: Running initial sync sweep on startup")
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJobs()
		}()
	}

	s.wg.Add(1)
	go s.scheduleLoop()

	log.Println("Scheduler started")
}

func (s *Scheduler) scheduleLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("Scheduler loop: Context cancelled, shutting down")
			return

		case now := <-ticker.C:
			if s.shouldRun(now) {
				log.Printf("Scheduler: Triggered at %s", now.Format("15:04"))
				s.runJobs()
			}
		}
	}
}

// shouldRun reports whether now matches a scheduled time that has not run
// yet. The run key dedupes multiple ticks inside the same minute.
func (s *Scheduler) shouldRun(now time.Time) bool {
	currentKey := fmt.Sprintf("%s-%02d:%02d", now.Format("2006-01-02"), now.Hour(), now.Minute())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRunKey == currentKey {
		return false
	}

	for _, st := range s.scheduleTimes {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRunKey = currentKey
			return true
		}
	}

	return false
}

func (s *Scheduler) runJobs() {
	if s.jobProvider == nil {
		log.Println("Scheduler: No job provider configured")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		log.Printf("Scheduler: Failed to fetch jobs: %v", err)
		return
	}

	if len(jobs) == 0 {
		log.Println("Scheduler: No users to sync")
		return
	}

	log.Printf("Scheduler: Submitting %d sync jobs to worker pool", len(jobs))
	s.workerPool.SubmitBatch(jobs)
}

// TriggerNow manually triggers a sync sweep immediately.
func (s *Scheduler) TriggerNow() {
	log.Println("Scheduler: Manual trigger")
	go s.runJobs()
}

// NextScheduledTime returns the next scheduled run time.
func (s *Scheduler) NextScheduledTime() time.Time {
	now := time.Now()

	for _, st := range s.scheduleTimes {
		scheduled := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if scheduled.After(now) {
			return scheduled
		}
	}

	st := s.scheduleTimes[0]
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), st.Hour, st.Minute, 0, 0, now.Location())
}

// Shutdown gracefully stops the scheduler and worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	log.Println("Scheduler: Initiating graceful shutdown...")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Scheduler: Scheduler loop stopped gracefully")
	case <-time.After(timeout):
		log.Println("Scheduler: Timeout waiting for scheduler loop to stop")
	}

	s.workerPool.ShutdownWithTimeout(timeout)

	log.Println("Scheduler: Shutdown complete")
}
