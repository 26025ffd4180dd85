package dex

// Side of an order, trigger, or swap from the trader's point of view: buys
// spend quote for base, sells spend base for quote.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// BookOrderSpec describes a limit order to be placed on the book. Amount is
// in the smallest unit of the token being spent.
type BookOrderSpec struct {
	Side   Side  `json:"side"`
	Tick   int64 `json:"tick"`
	Amount int64 `json:"amount"`
}

// PoolSwapSpec routes part of an order through an AMM pool identified by its
// fee tier.
type PoolSwapSpec struct {
	FeePips   int   `json:"fee_pips"`
	Side      Side  `json:"side"`
	AmountIn  int64 `json:"amount_in"`
	LimitTick int64 `json:"limit_tick"`
}

// TriggerSpec describes a conditional order that activates once the market
// tick crosses TriggerTick, then rests at LimitTick.
type TriggerSpec struct {
	Side        Side  `json:"side"`
	TriggerTick int64 `json:"trigger_tick"`
	LimitTick   int64 `json:"limit_tick"`
	Amount      int64 `json:"amount"`
}

// Order is an open book order as reported by the exchange.
type Order struct {
	ID     string `json:"id"`
	Side   Side   `json:"side"`
	Tick   int64  `json:"tick"`
	Amount int64  `json:"amount"`
}

// Trigger is an armed conditional order.
type Trigger struct {
	ID          string `json:"id"`
	Side        Side   `json:"side"`
	TriggerTick int64  `json:"trigger_tick"`
	LimitTick   int64  `json:"limit_tick"`
	Amount      int64  `json:"amount"`
}

// LiquidityPosition is a concentrated-liquidity range position.
type LiquidityPosition struct {
	ID        string `json:"id"`
	FeePips   int    `json:"fee_pips"`
	TickLower int64  `json:"tick_lower"`
	TickUpper int64  `json:"tick_upper"`
	Liquidity int64  `json:"liquidity"`
}

// Outcome reports the per-index result of one item in a batch call. Err is
// empty on success.
type Outcome struct {
	ID  string `json:"id,omitempty"`
	Err string `json:"err,omitempty"`
}

// BatchResult carries one Outcome per created order or trigger, in input
// order.
type BatchResult struct {
	Outcomes []Outcome `json:"outcomes"`
}

// UpdateResult reports whether an order update had to cancel-and-replace.
type UpdateResult struct {
	OrderID     string `json:"order_id"`
	WasReplaced bool   `json:"was_replaced"`
}

// Quote is a read-only execution preview: expected output, impact, and the
// routing split the exchange suggests for the requested size.
type Quote struct {
	OutputAmount   int64          `json:"output_amount"`
	PriceImpactBps int64          `json:"price_impact_bps"`
	PoolSwaps      []PoolSwapSpec `json:"pool_swaps"`
	BookOrder      *BookOrderSpec `json:"book_order,omitempty"`
}

// MarketState is everything the tracker builder reads in one call: the
// reference tick (nil while the market is uninitialized), free balances, open
// entities, and the market's static parameters.
type MarketState struct {
	MarketID      string
	Symbol        string
	BaseToken     string
	QuoteToken    string
	CurrentTick   *int64
	BaseDecimals  int
	QuoteDecimals int
	// Ledger transfer fees in smallest units, charged once per deposit or
	// withdraw of the respective token.
	BaseTransferFee  int64
	QuoteTransferFee int64
	FeePips          int

	AvailableBase  int64
	AvailableQuote int64

	Orders    []Order
	Triggers  []Trigger
	Positions []LiquidityPosition
}
