package agent

import "tickbot/internal/tracker"

// Slot caps per entity type; actions that would exceed a cap are withheld.
const (
	MaxOpenOrders   = 50
	MaxOpenTriggers = 20
	MaxPositions    = 10
)

// AvailableActions computes the subset of the catalog that is currently
// legal for the snapshot and enabled by config. Pure: same inputs, same
// output, no side effects.
func AvailableActions(trk *tracker.Tracker, cfg Config) []ActionType {
	_, hasTick := trk.Tick()
	hasQuote := trk.SpendableQuote() > 0
	hasBase := trk.SpendableBase() > 0

	hasOrders := len(trk.Orders) > 0
	hasTriggers := len(trk.Triggers) > 0
	hasPositions := len(trk.Positions) > 0

	orderRoom := len(trk.Orders) < MaxOpenOrders
	triggerRoom := len(trk.Triggers) < MaxOpenTriggers
	positionRoom := len(trk.Positions) < MaxPositions

	legal := map[ActionType]bool{
		CreateBuyOrder:    hasTick && hasQuote && orderRoom,
		CreateSellOrder:   hasTick && hasBase && orderRoom,
		CancelOrder:       hasOrders,
		UpdateOrder:       hasTick && hasOrders,
		ConvertToMarket:   hasTick && hasOrders,
		CreateBuyTrigger:  hasTick && hasQuote && triggerRoom,
		CreateSellTrigger: hasTick && hasBase && triggerRoom,
		CancelTrigger:     hasTriggers,
		BracketBuy:        hasTick && hasQuote && orderRoom && triggerRoom,
		BracketSell:       hasTick && hasBase && orderRoom && triggerRoom,
		GridBuy:           hasTick && hasQuote && orderRoom,
		GridSell:          hasTick && hasBase && orderRoom,
		RoutedBuy:         hasTick && hasQuote,
		RoutedSell:        hasTick && hasBase,
		AddLiquidity:      hasTick && hasBase && hasQuote && positionRoom,
		IncreaseLiquidity: hasPositions && hasBase && hasQuote,
		DecreaseLiquidity: hasPositions,
		CollectFees:       hasPositions,
		Deposit:           true,
		Withdraw:          hasBase || hasQuote,
	}

	out := make([]ActionType, 0, len(AllActions))
	for _, a := range AllActions {
		if legal[a] && cfg.IsEnabled(a) {
			out = append(out, a)
		}
	}
	return out
}
