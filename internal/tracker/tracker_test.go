package tracker

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"tickbot/internal/dex"

	"github.com/stretchr/testify/assert"
)

type stubSource struct {
	state dex.MarketState
	err   error
}

func (s *stubSource) MarketState(context.Context) (dex.MarketState, error) {
	return s.state, s.err
}

func sampleState() dex.MarketState {
	tick := int64(1200)
	return dex.MarketState{
		MarketID:         "tkb-usdc",
		Symbol:           "TKB/USDC",
		BaseToken:        "tkb",
		QuoteToken:       "usdc",
		CurrentTick:      &tick,
		BaseDecimals:     18,
		QuoteDecimals:    6,
		BaseTransferFee:  7,
		QuoteTransferFee: 11,
		FeePips:          3000,
		AvailableBase:    1000,
		AvailableQuote:   500,
		Orders:           []dex.Order{{ID: "o1"}, {ID: "o2"}},
		Triggers:         []dex.Trigger{{ID: "t1"}},
		Positions:        []dex.LiquidityPosition{{ID: "p1", Liquidity: 10}},
	}
}

func TestBuildSnapshotsState(t *testing.T) {
	src := &stubSource{state: sampleState()}
	trk, err := Build(context.Background(), src)
	assert.NoError(t, err)

	tick, ok := trk.Tick()
	assert.True(t, ok)
	assert.Equal(t, int64(1200), tick)
	assert.Equal(t, int64(60), trk.TickSpacing)
	assert.Len(t, trk.Orders, 2)
	assert.False(t, trk.BuiltAt.IsZero())
}

func TestBuildCopiesSlicesAndTick(t *testing.T) {
	state := sampleState()
	src := &stubSource{state: state}
	trk, err := Build(context.Background(), src)
	assert.NoError(t, err)

	// Mutating the source after the build must not leak into the snapshot.
	state.Orders[0].ID = "mutated"
	*state.CurrentTick = 9999
	src.state = state

	assert.Equal(t, "o1", trk.Orders[0].ID)
	tick, _ := trk.Tick()
	assert.Equal(t, int64(1200), tick)
}

func TestBuildPropagatesSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("rpc down")}
	_, err := Build(context.Background(), src)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "market state")
}

func TestTickUninitialized(t *testing.T) {
	state := sampleState()
	state.CurrentTick = nil
	trk, err := Build(context.Background(), &stubSource{state: state})
	assert.NoError(t, err)
	_, ok := trk.Tick()
	assert.False(t, ok)
	assert.Equal(t, 1.0, trk.Price())
}

func TestSpendableReservesTwoTransferFees(t *testing.T) {
	trk, err := Build(context.Background(), &stubSource{state: sampleState()})
	assert.NoError(t, err)
	assert.Equal(t, int64(1000-14), trk.SpendableBase())
	assert.Equal(t, int64(500-22), trk.SpendableQuote())
}

func TestSpendableGoesNonPositive(t *testing.T) {
	state := sampleState()
	state.AvailableQuote = 22
	trk, _ := Build(context.Background(), &stubSource{state: state})
	assert.Equal(t, int64(0), trk.SpendableQuote())

	state.AvailableQuote = 5
	trk, _ = Build(context.Background(), &stubSource{state: state})
	assert.Negative(t, trk.SpendableQuote())
}

func TestRandomPickers(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	trk, _ := Build(context.Background(), &stubSource{state: sampleState()})

	ord, ok := trk.RandomOrder(rng)
	assert.True(t, ok)
	assert.Contains(t, []string{"o1", "o2"}, ord.ID)

	trg, ok := trk.RandomTrigger(rng)
	assert.True(t, ok)
	assert.Equal(t, "t1", trg.ID)

	pos, ok := trk.RandomPosition(rng)
	assert.True(t, ok)
	assert.Equal(t, "p1", pos.ID)

	empty := &Tracker{}
	_, ok = empty.RandomOrder(rng)
	assert.False(t, ok)
	_, ok = empty.RandomTrigger(rng)
	assert.False(t, ok)
	_, ok = empty.RandomPosition(rng)
	assert.False(t, ok)
}
