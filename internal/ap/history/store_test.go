package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	started := time.Now().Truncate(time.Second)
	run := Run{
		ID:          "run-1",
		IA:          "1-17",
		ServiceName: "server",
		StartedAt:   started,
	}
	require.NoError(t, store.BeginRun(ctx, run))

	steps := []StepRecord{
		{RunID: "run-1", Seq: 1, Step: "openvpn-package", Status: StepNoop},
		{RunID: "run-1", Seq: 2, Step: "server-config", Status: StepChanged, Detail: "/etc/openvpn/server.conf"},
		{RunID: "run-1", Seq: 3, Step: "vpn-service", Status: StepChanged},
	}
	for _, rec := range steps {
		require.NoError(t, store.RecordStep(ctx, rec))
	}

	finished := started.Add(3 * time.Second)
	require.NoError(t, store.FinishRun(ctx, "run-1", StatusSucceeded, finished))

	last, err := store.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.ID)
	assert.Equal(t, "1-17", last.IA)
	assert.Equal(t, StatusSucceeded, last.Status)
	require.NotNil(t, last.FinishedAt)

	got, err := store.RunSteps(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "openvpn-package", got[0].Step)
	assert.Equal(t, StepNoop, got[0].Status)
	assert.Equal(t, "/etc/openvpn/server.conf", got[1].Detail)
}

func TestLastRunEmptyDatabase(t *testing.T) {
	store := openStore(t)

	last, err := store.LastRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestLastRunPicksNewest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, store.BeginRun(ctx, Run{ID: "run-1", StartedAt: base}))
	require.NoError(t, store.BeginRun(ctx, Run{ID: "run-2", StartedAt: base.Add(time.Minute)}))
	require.NoError(t, store.FinishRun(ctx, "run-1", StatusFailed, base.Add(time.Second)))

	last, err := store.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-2", last.ID)
	assert.Equal(t, StatusRunning, last.Status)
}
