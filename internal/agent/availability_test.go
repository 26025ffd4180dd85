package agent

import (
	"fmt"
	"math/rand"
	"testing"

	"tickbot/internal/dex"
	"tickbot/internal/tracker"

	"github.com/stretchr/testify/assert"
)

func snapshot(opts func(*tracker.Tracker)) *tracker.Tracker {
	tick := int64(1000)
	trk := &tracker.Tracker{
		MarketID:         "tkb-usdc",
		Symbol:           "TKB/USDC",
		BaseToken:        "tkb",
		QuoteToken:       "usdc",
		CurrentTick:      &tick,
		AvailableBase:    1_000_000,
		AvailableQuote:   1_000_000,
		BaseDecimals:     18,
		QuoteDecimals:    6,
		BaseTransferFee:  10,
		QuoteTransferFee: 10,
		FeePips:          3000,
		TickSpacing:      60,
	}
	if opts != nil {
		opts(trk)
	}
	return trk
}

func orders(n int) []dex.Order {
	out := make([]dex.Order, n)
	for i := range out {
		out[i] = dex.Order{ID: fmt.Sprintf("o-%d", i)}
	}
	return out
}

func triggers(n int) []dex.Trigger {
	out := make([]dex.Trigger, n)
	for i := range out {
		out[i] = dex.Trigger{ID: fmt.Sprintf("t-%d", i)}
	}
	return out
}

func positions(n int) []dex.LiquidityPosition {
	out := make([]dex.LiquidityPosition, n)
	for i := range out {
		out[i] = dex.LiquidityPosition{ID: fmt.Sprintf("p-%d", i)}
	}
	return out
}

func TestAvailableActionsFundedEmptyAccount(t *testing.T) {
	trk := snapshot(nil)
	avail := AvailableActions(trk, DefaultConfig())

	assert.Contains(t, avail, CreateBuyOrder)
	assert.Contains(t, avail, CreateSellOrder)
	assert.Contains(t, avail, RoutedBuy)
	assert.Contains(t, avail, AddLiquidity)
	assert.Contains(t, avail, Deposit)
	assert.Contains(t, avail, Withdraw)

	// Nothing exists yet to operate on.
	assert.NotContains(t, avail, CancelOrder)
	assert.NotContains(t, avail, UpdateOrder)
	assert.NotContains(t, avail, ConvertToMarket)
	assert.NotContains(t, avail, CancelTrigger)
	assert.NotContains(t, avail, IncreaseLiquidity)
	assert.NotContains(t, avail, DecreaseLiquidity)
	assert.NotContains(t, avail, CollectFees)
}

func TestAvailableActionsDrainedAccount(t *testing.T) {
	trk := snapshot(func(trk *tracker.Tracker) {
		trk.AvailableBase = 0
		trk.AvailableQuote = 0
	})
	avail := AvailableActions(trk, DefaultConfig())
	assert.Equal(t, []ActionType{Deposit}, avail)
}

func TestAvailableActionsFeeReserveMakesLegUnusable(t *testing.T) {
	// Balance equal to twice the transfer fee spends to zero.
	trk := snapshot(func(trk *tracker.Tracker) {
		trk.AvailableQuote = 2 * trk.QuoteTransferFee
	})
	avail := AvailableActions(trk, DefaultConfig())
	assert.NotContains(t, avail, CreateBuyOrder)
	assert.NotContains(t, avail, RoutedBuy)
	assert.NotContains(t, avail, AddLiquidity)
	assert.Contains(t, avail, CreateSellOrder)
	assert.Contains(t, avail, Withdraw)
}

func TestAvailableActionsUninitializedMarket(t *testing.T) {
	trk := snapshot(func(trk *tracker.Tracker) {
		trk.CurrentTick = nil
		trk.Orders = orders(2)
		trk.Triggers = triggers(1)
		trk.Positions = positions(1)
	})
	avail := AvailableActions(trk, DefaultConfig())

	// Tick-deriving actions are withheld without a reference price.
	assert.NotContains(t, avail, CreateBuyOrder)
	assert.NotContains(t, avail, CreateSellTrigger)
	assert.NotContains(t, avail, UpdateOrder)
	assert.NotContains(t, avail, AddLiquidity)
	assert.NotContains(t, avail, RoutedBuy)

	// Pure-entity actions survive.
	assert.Contains(t, avail, CancelOrder)
	assert.Contains(t, avail, CancelTrigger)
	assert.Contains(t, avail, DecreaseLiquidity)
	assert.Contains(t, avail, CollectFees)
	assert.Contains(t, avail, Deposit)
}

func TestAvailableActionsSlotCaps(t *testing.T) {
	trk := snapshot(func(trk *tracker.Tracker) {
		trk.Orders = orders(MaxOpenOrders)
		trk.Triggers = triggers(MaxOpenTriggers)
		trk.Positions = positions(MaxPositions)
	})
	avail := AvailableActions(trk, DefaultConfig())

	assert.NotContains(t, avail, CreateBuyOrder)
	assert.NotContains(t, avail, CreateSellOrder)
	assert.NotContains(t, avail, GridBuy)
	assert.NotContains(t, avail, BracketBuy)
	assert.NotContains(t, avail, CreateBuyTrigger)
	assert.NotContains(t, avail, AddLiquidity)

	// Caps never block reductions or swaps.
	assert.Contains(t, avail, CancelOrder)
	assert.Contains(t, avail, CancelTrigger)
	assert.Contains(t, avail, DecreaseLiquidity)
	assert.Contains(t, avail, RoutedBuy)
}

func TestAvailableActionsRespectsEnabledSet(t *testing.T) {
	trk := snapshot(nil)
	cfg := DefaultConfig()
	cfg.Enabled[CreateBuyOrder] = false
	cfg.Enabled[Deposit] = false
	avail := AvailableActions(trk, cfg)
	assert.NotContains(t, avail, CreateBuyOrder)
	assert.NotContains(t, avail, Deposit)
	assert.Contains(t, avail, CreateSellOrder)
}

// Every returned action must be executable for the snapshot; the properties
// below cross-check the availability facts over random account shapes.
func TestAvailableActionsRandomSnapshots(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	cfg := DefaultConfig()
	for i := 0; i < 1000; i++ {
		trk := snapshot(func(trk *tracker.Tracker) {
			if rng.Intn(4) == 0 {
				trk.CurrentTick = nil
			}
			trk.AvailableBase = rng.Int63n(100)
			trk.AvailableQuote = rng.Int63n(100)
			trk.BaseTransferFee = rng.Int63n(30)
			trk.QuoteTransferFee = rng.Int63n(30)
			trk.Orders = orders(rng.Intn(MaxOpenOrders + 5))
			trk.Triggers = triggers(rng.Intn(MaxOpenTriggers + 5))
			trk.Positions = positions(rng.Intn(MaxPositions + 5))
		})
		avail := AvailableActions(trk, cfg)
		assert.Contains(t, avail, Deposit)

		_, hasTick := trk.Tick()
		for _, a := range avail {
			switch a {
			case CreateBuyOrder, CreateBuyTrigger, GridBuy, RoutedBuy, BracketBuy:
				assert.True(t, hasTick)
				assert.Positive(t, trk.SpendableQuote())
			case CreateSellOrder, CreateSellTrigger, GridSell, RoutedSell, BracketSell:
				assert.True(t, hasTick)
				assert.Positive(t, trk.SpendableBase())
			case CancelOrder, UpdateOrder, ConvertToMarket:
				assert.NotEmpty(t, trk.Orders)
			case CancelTrigger:
				assert.NotEmpty(t, trk.Triggers)
			case IncreaseLiquidity, DecreaseLiquidity, CollectFees:
				assert.NotEmpty(t, trk.Positions)
			}
		}
	}
}
