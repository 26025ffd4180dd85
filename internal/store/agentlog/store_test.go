package agentlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tickbot/internal/agent"
	"tickbot/internal/agent/engine"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "logs.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(id int64, kind agent.LogKind, action agent.ActionType, text string) engine.LogEntry {
	return engine.LogEntry{
		ID:        id,
		Timestamp: time.Now(),
		Kind:      kind,
		Action:    action,
		Text:      text,
	}
}

func TestAppendAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Append(ctx, entry(1, agent.KindInfo, "", "agent started")))
	assert.NoError(t, s.Append(ctx, entry(2, agent.KindAction, agent.Deposit, "deposited 1000 usdc")))
	assert.NoError(t, s.Append(ctx, entry(3, agent.KindError, agent.RoutedBuy, "swap failed")))

	rows, err := s.Recent(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, rows, 3)

	// Oldest first.
	assert.Equal(t, "agent started", rows[0].Text)
	assert.Equal(t, int64(1), rows[0].RingID)
	assert.Empty(t, rows[0].Action)
	assert.Equal(t, string(agent.KindAction), rows[1].Kind)
	assert.Equal(t, string(agent.Deposit), rows[1].Action)
	assert.Equal(t, "swap failed", rows[2].Text)
}

func TestRecentHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		assert.NoError(t, s.Append(ctx, entry(int64(i), agent.KindInfo, "", "tick")))
	}

	rows, err := s.Recent(ctx, 2)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(4), rows[0].RingID)
	assert.Equal(t, int64(5), rows[1].RingID)
}

func TestCountByKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	assert.NoError(t, s.Append(ctx, entry(1, agent.KindError, agent.Withdraw, "insufficient balance")))
	assert.NoError(t, s.Append(ctx, entry(2, agent.KindError, agent.Withdraw, "insufficient balance")))
	assert.NoError(t, s.Append(ctx, entry(3, agent.KindSuccess, agent.Withdraw, "withdrew 50 tkb")))

	n, err := s.CountByKind(ctx, agent.KindError)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.CountByKind(ctx, agent.KindAction)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Close())

	err := s.Append(context.Background(), entry(1, agent.KindInfo, "", "late"))
	assert.Error(t, err)
	_, err = s.Recent(context.Background(), 10)
	assert.Error(t, err)
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}
