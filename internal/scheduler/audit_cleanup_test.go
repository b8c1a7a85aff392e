package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akowalski/bibliotek/internal/tasks"
)

func setupTestTaskClient(t *testing.T) *tasks.Client {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "scheduler-test.db")
	client, err := tasks.NewClient(dbPath, tasks.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		os.Remove(dbPath)
	})
	return client
}

func TestAuditCleanupScheduler_StartStop(t *testing.T) {
	client := setupTestTaskClient(t)

	s := NewAuditCleanupScheduler(client, "0 3 * * *", 30)
	assert.False(t, s.IsRunning())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	// Starting twice is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_InvalidSchedule(t *testing.T) {
	client := setupTestTaskClient(t)

	s := NewAuditCleanupScheduler(client, "not a schedule", 30)
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestAuditCleanupScheduler_StopViaContext(t *testing.T) {
	client := setupTestTaskClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewAuditCleanupScheduler(client, "0 3 * * *", 30)
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}
