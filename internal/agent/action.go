// Package agent holds the trading-action catalog and the selection logic the
// engine drives: which actions exist, which are currently legal, and how one
// is picked.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"tickbot/internal/dex"
	"tickbot/internal/tracker"
)

// ActionType names one entry in the catalog. The set is closed; every value
// has exactly one handler, registered in newCatalog.
type ActionType string

const (
	CreateBuyOrder    ActionType = "create_buy_order"
	CreateSellOrder   ActionType = "create_sell_order"
	CancelOrder       ActionType = "cancel_order"
	UpdateOrder       ActionType = "update_order"
	ConvertToMarket   ActionType = "convert_to_market"
	CreateBuyTrigger  ActionType = "create_buy_trigger"
	CreateSellTrigger ActionType = "create_sell_trigger"
	CancelTrigger     ActionType = "cancel_trigger"
	BracketBuy        ActionType = "bracket_buy"
	BracketSell       ActionType = "bracket_sell"
	GridBuy           ActionType = "grid_buy"
	GridSell          ActionType = "grid_sell"
	RoutedBuy         ActionType = "routed_buy"
	RoutedSell        ActionType = "routed_sell"
	AddLiquidity      ActionType = "add_liquidity"
	IncreaseLiquidity ActionType = "increase_liquidity"
	DecreaseLiquidity ActionType = "decrease_liquidity"
	CollectFees       ActionType = "collect_fees"
	Deposit           ActionType = "deposit"
	Withdraw          ActionType = "withdraw"
)

// AllActions lists every ActionType in catalog order.
var AllActions = []ActionType{
	CreateBuyOrder, CreateSellOrder, CancelOrder, UpdateOrder, ConvertToMarket,
	CreateBuyTrigger, CreateSellTrigger, CancelTrigger, BracketBuy, BracketSell,
	GridBuy, GridSell, RoutedBuy, RoutedSell,
	AddLiquidity, IncreaseLiquidity, DecreaseLiquidity, CollectFees,
	Deposit, Withdraw,
}

// Config is the operator policy for a run. It is read-only while the engine
// is running; changes apply between ticks via the engine's command path.
type Config struct {
	Market string

	DelayMs  int
	JitterMs int

	DryRun      bool
	AutoDeposit bool

	MinNotionalUSD float64
	MaxNotionalUSD float64
	// DepositUSD is the notional deposited per leg on cold start and during
	// insufficient-balance recovery.
	DepositUSD float64

	LogCapacity int

	Enabled map[ActionType]bool
	Weights map[ActionType]float64
}

// DefaultConfig enables the whole catalog with uniform weights.
func DefaultConfig() Config {
	enabled := make(map[ActionType]bool, len(AllActions))
	weights := make(map[ActionType]float64, len(AllActions))
	for _, a := range AllActions {
		enabled[a] = true
		weights[a] = 1
	}
	return Config{
		DelayMs:        2000,
		JitterMs:       1000,
		AutoDeposit:    true,
		MinNotionalUSD: 20,
		MaxNotionalUSD: 200,
		DepositUSD:     2000,
		LogCapacity:    500,
		Enabled:        enabled,
		Weights:        weights,
	}
}

// Weight returns the selection weight for an action, defaulting to 1 when
// unset.
func (c Config) Weight(a ActionType) float64 {
	if c.Weights == nil {
		return 1
	}
	w, ok := c.Weights[a]
	if !ok {
		return 1
	}
	return w
}

// IsEnabled reports whether an action is allowed by the config. Actions
// missing from the map default to enabled.
func (c Config) IsEnabled(a ActionType) bool {
	if c.Enabled == nil {
		return true
	}
	on, ok := c.Enabled[a]
	if !ok {
		return true
	}
	return on
}

// LogKind classifies a structured agent log entry.
type LogKind string

const (
	KindPrompt  LogKind = "prompt"
	KindAction  LogKind = "action"
	KindResult  LogKind = "result"
	KindSuccess LogKind = "success"
	KindError   LogKind = "error"
	KindInfo    LogKind = "info"
)

// Recorder receives the structured log stream a catalog action emits. The
// engine's ring buffer implements it.
type Recorder interface {
	Record(kind LogKind, action ActionType, text string, duration time.Duration)
}

// Result is what an action reports back to the engine. Err carries the
// classification the retry path inspects; Success is false whenever Err is
// non-nil.
type Result struct {
	Success  bool
	Err      error
	Duration time.Duration
}

// ErrorText renders the failure for the log stream, empty on success.
func (r Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Handler is the uniform shape of a catalog entry. Handlers derive every
// parameter from the tracker and tickmath, call the exchange, log the full
// prompt/action/outcome sequence, and never panic or let an exchange error
// escape as anything but Result.Err.
type Handler func(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result

var catalog = newCatalog()

func newCatalog() map[ActionType]Handler {
	return map[ActionType]Handler{
		CreateBuyOrder:    actionCreateOrder(dex.Buy),
		CreateSellOrder:   actionCreateOrder(dex.Sell),
		CancelOrder:       actionCancelOrder,
		UpdateOrder:       actionUpdateOrder,
		ConvertToMarket:   actionConvertToMarket,
		CreateBuyTrigger:  actionCreateTrigger(dex.Buy),
		CreateSellTrigger: actionCreateTrigger(dex.Sell),
		CancelTrigger:     actionCancelTrigger,
		BracketBuy:        actionBracket(dex.Buy),
		BracketSell:       actionBracket(dex.Sell),
		GridBuy:           actionGrid(dex.Buy),
		GridSell:          actionGrid(dex.Sell),
		RoutedBuy:         actionRouted(dex.Buy),
		RoutedSell:        actionRouted(dex.Sell),
		AddLiquidity:      actionAddLiquidity,
		IncreaseLiquidity: actionIncreaseLiquidity,
		DecreaseLiquidity: actionDecreaseLiquidity,
		CollectFees:       actionCollectFees,
		Deposit:           actionDeposit,
		Withdraw:          actionWithdraw,
	}
}

// Lookup resolves an ActionType to its handler.
func Lookup(a ActionType) (Handler, bool) {
	h, ok := catalog[a]
	return h, ok
}

// Execute runs one catalog action end to end.
func Execute(ctx context.Context, a ActionType, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
	h, ok := catalog[a]
	if !ok {
		err := fmt.Errorf("no handler for action %q", a)
		rec.Record(KindError, a, err.Error(), 0)
		return Result{Err: err}
	}
	return h(ctx, client, trk, cfg, rec, rng)
}
