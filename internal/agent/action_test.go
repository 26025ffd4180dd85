package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureRecorder struct {
	entries []string
}

func (r *captureRecorder) Record(_ LogKind, _ ActionType, text string, _ time.Duration) {
	r.entries = append(r.entries, text)
}

func TestCatalogCoversEveryAction(t *testing.T) {
	assert.Len(t, AllActions, 20)

	seen := make(map[ActionType]bool, len(AllActions))
	for _, a := range AllActions {
		assert.False(t, seen[a], "duplicate catalog entry %s", a)
		seen[a] = true

		h, ok := Lookup(a)
		assert.True(t, ok, "no handler for %s", a)
		assert.NotNil(t, h)
	}
	assert.Len(t, catalog, len(AllActions))
}

func TestDefaultConfigCoversEveryAction(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.Enabled, len(AllActions))
	assert.Len(t, cfg.Weights, len(AllActions))
	for _, a := range AllActions {
		assert.True(t, cfg.IsEnabled(a), "%s should default enabled", a)
		assert.Equal(t, 1.0, cfg.Weight(a), "%s should default weight 1", a)
	}
}

func TestWeightAndEnabledDefaults(t *testing.T) {
	var cfg Config
	assert.True(t, cfg.IsEnabled(Deposit))
	assert.Equal(t, 1.0, cfg.Weight(Deposit))

	cfg.Enabled = map[ActionType]bool{Withdraw: false}
	cfg.Weights = map[ActionType]float64{Withdraw: 3}
	assert.False(t, cfg.IsEnabled(Withdraw))
	assert.Equal(t, 3.0, cfg.Weight(Withdraw))
	assert.True(t, cfg.IsEnabled(Deposit))
	assert.Equal(t, 1.0, cfg.Weight(Deposit))
}

func TestExecuteUnknownAction(t *testing.T) {
	rec := &captureRecorder{}
	res := Execute(nil, ActionType("bogus"), nil, nil, Config{}, rec, nil)
	assert.Error(t, res.Err)
	assert.False(t, res.Success)
	assert.Len(t, rec.entries, 1)
}
