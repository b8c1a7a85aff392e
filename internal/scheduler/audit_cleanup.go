// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/akowalski/bibliotek/internal/tasks"
)

// AuditCleanupScheduler periodically enqueues an audit cleanup task.
type AuditCleanupScheduler struct {
	taskClient    *tasks.Client
	schedule      string
	retentionDays int

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAuditCleanupScheduler creates a new scheduler instance.
func NewAuditCleanupScheduler(taskClient *tasks.Client, schedule string, retentionDays int) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		taskClient:    taskClient,
		schedule:      schedule,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.enqueueCleanup()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Audit cleanup scheduler started with schedule '%s' (retention %d days)", s.schedule, s.retentionDays)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Audit cleanup scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *AuditCleanupScheduler) enqueueCleanup() {
	op := s.taskClient.Add(tasks.CleanupAuditTask{RetentionDays: s.retentionDays})
	if _, err := op.Save(); err != nil {
		log.Printf("Failed to enqueue audit cleanup task: %v", err)
	}
}
