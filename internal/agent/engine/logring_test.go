package engine

import (
	"fmt"
	"testing"

	"tickbot/internal/agent"

	"github.com/stretchr/testify/assert"
)

func TestLogRingKeepsMostRecent(t *testing.T) {
	r := newLogRing(5)
	for i := 1; i <= 12; i++ {
		r.append(agent.KindInfo, "", fmt.Sprintf("entry %d", i), 0)
	}

	assert.Equal(t, 5, r.len())
	got := r.snapshot(0)
	assert.Len(t, got, 5)
	assert.Equal(t, "entry 8", got[0].Text)
	assert.Equal(t, "entry 12", got[4].Text)
}

func TestLogRingIDsMonotonicAcrossEviction(t *testing.T) {
	r := newLogRing(3)
	var last int64
	for i := 0; i < 10; i++ {
		e := r.append(agent.KindAction, agent.Deposit, "x", 0)
		assert.Greater(t, e.ID, last)
		last = e.ID
	}
	assert.Equal(t, int64(10), last)
	got := r.snapshot(0)
	assert.Equal(t, int64(8), got[0].ID)
}

func TestLogRingSnapshotLimit(t *testing.T) {
	r := newLogRing(10)
	for i := 1; i <= 6; i++ {
		r.append(agent.KindInfo, "", fmt.Sprintf("entry %d", i), 0)
	}
	got := r.snapshot(2)
	assert.Len(t, got, 2)
	assert.Equal(t, "entry 5", got[0].Text)
	assert.Equal(t, "entry 6", got[1].Text)

	assert.Len(t, r.snapshot(100), 6)
}

func TestLogRingClear(t *testing.T) {
	r := newLogRing(4)
	r.append(agent.KindInfo, "", "a", 0)
	r.append(agent.KindInfo, "", "b", 0)
	r.clear()
	assert.Zero(t, r.len())

	// IDs keep counting after a clear.
	e := r.append(agent.KindInfo, "", "c", 0)
	assert.Equal(t, int64(3), e.ID)
}

func TestLogRingDefaultCapacity(t *testing.T) {
	r := newLogRing(0)
	assert.Equal(t, 500, r.cap)
}

func TestLogEntryDurationOnlyWhenPositive(t *testing.T) {
	r := newLogRing(4)
	e := r.append(agent.KindSuccess, agent.RoutedBuy, "done", 1500000)
	assert.Equal(t, int64(1), e.DurationMs)
	e = r.append(agent.KindInfo, "", "note", 0)
	assert.Zero(t, e.DurationMs)
}
