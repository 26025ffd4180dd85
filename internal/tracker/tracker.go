// Package tracker builds the per-tick snapshot of account and market state
// the agent decides from. A Tracker is built once at the top of a cycle,
// never mutated afterwards, and thrown away when the cycle ends.
package tracker

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"tickbot/internal/dex"
	"tickbot/internal/tickmath"
)

// Tracker is an immutable snapshot of everything a decision cycle reads.
type Tracker struct {
	MarketID string
	Symbol   string

	BaseToken  string
	QuoteToken string

	// CurrentTick is nil while the market has no reference price yet.
	CurrentTick *int64

	AvailableBase  int64
	AvailableQuote int64

	Orders    []dex.Order
	Triggers  []dex.Trigger
	Positions []dex.LiquidityPosition

	BaseDecimals  int
	QuoteDecimals int

	BaseTransferFee  int64
	QuoteTransferFee int64

	FeePips     int
	TickSpacing int64

	BuiltAt time.Time
}

// Build snapshots the source's current state. Slices are copied so later
// source mutation cannot leak into an in-flight cycle.
func Build(ctx context.Context, src dex.StateSource) (*Tracker, error) {
	st, err := src.MarketState(ctx)
	if err != nil {
		return nil, fmt.Errorf("market state: %w", err)
	}

	t := &Tracker{
		MarketID:         st.MarketID,
		Symbol:           st.Symbol,
		BaseToken:        st.BaseToken,
		QuoteToken:       st.QuoteToken,
		AvailableBase:    st.AvailableBase,
		AvailableQuote:   st.AvailableQuote,
		BaseDecimals:     st.BaseDecimals,
		QuoteDecimals:    st.QuoteDecimals,
		BaseTransferFee:  st.BaseTransferFee,
		QuoteTransferFee: st.QuoteTransferFee,
		FeePips:          st.FeePips,
		TickSpacing:      tickmath.TickSpacingFromFeePips(st.FeePips),
		BuiltAt:          time.Now(),
	}
	if st.CurrentTick != nil {
		tick := *st.CurrentTick
		t.CurrentTick = &tick
	}
	t.Orders = append([]dex.Order(nil), st.Orders...)
	t.Triggers = append([]dex.Trigger(nil), st.Triggers...)
	t.Positions = append([]dex.LiquidityPosition(nil), st.Positions...)
	return t, nil
}

// Tick returns the reference tick and whether the market is initialized.
func (t *Tracker) Tick() (int64, bool) {
	if t.CurrentTick == nil {
		return 0, false
	}
	return *t.CurrentTick, true
}

// SpendableBase is the base balance usable for an action after reserving two
// ledger transfer fees. Zero or negative means the leg is unusable.
func (t *Tracker) SpendableBase() int64 {
	return t.AvailableBase - 2*t.BaseTransferFee
}

// SpendableQuote mirrors SpendableBase for the quote leg.
func (t *Tracker) SpendableQuote() int64 {
	return t.AvailableQuote - 2*t.QuoteTransferFee
}

// Price returns the human USD price at the reference tick, or 1.0 while the
// market is uninitialized.
func (t *Tracker) Price() float64 {
	tick, ok := t.Tick()
	if !ok {
		return 1.0
	}
	return tickmath.PriceFromTick(tick, t.BaseDecimals, t.QuoteDecimals, t.Symbol)
}

// RandomOrder picks a uniform-random open order.
func (t *Tracker) RandomOrder(rng *rand.Rand) (dex.Order, bool) {
	if len(t.Orders) == 0 {
		return dex.Order{}, false
	}
	return t.Orders[rng.Intn(len(t.Orders))], true
}

// RandomTrigger picks a uniform-random armed trigger.
func (t *Tracker) RandomTrigger(rng *rand.Rand) (dex.Trigger, bool) {
	if len(t.Triggers) == 0 {
		return dex.Trigger{}, false
	}
	return t.Triggers[rng.Intn(len(t.Triggers))], true
}

// RandomPosition picks a uniform-random liquidity position.
func (t *Tracker) RandomPosition(rng *rand.Rand) (dex.LiquidityPosition, bool) {
	if len(t.Positions) == 0 {
		return dex.LiquidityPosition{}, false
	}
	return t.Positions[rng.Intn(len(t.Positions))], true
}
