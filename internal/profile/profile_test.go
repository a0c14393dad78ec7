package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "alice", Snapshot{
		SessionID: "s1", JobSummary: "Backend Engineer", FitScore: 70,
		Verdict: "apply", CompletedAt: time.Now(),
	}))
	require.NoError(t, store.Record(ctx, "alice", Snapshot{
		SessionID: "s1", JobSummary: "SRE", FitScore: 45,
		Verdict: "skip", CompletedAt: time.Now(),
	}))

	history, err := store.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Backend Engineer", history[0].JobSummary)
	assert.Equal(t, "skip", history[1].Verdict)

	other, err := store.History(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "alice", Snapshot{Verdict: "apply"}))
	history, _ := store.History(ctx, "alice")
	history[0].Verdict = "mutated"

	again, _ := store.History(ctx, "alice")
	assert.Equal(t, "apply", again[0].Verdict)
}

func TestClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "alice", Snapshot{Verdict: "apply"}))
	require.NoError(t, store.Clear(ctx, "alice"))

	history, err := store.History(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, history)
}
