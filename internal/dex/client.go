package dex

import "context"

// Client is the exchange collaborator the agent drives. A Client is bound to
// a single market; the host supplies one per market. Every call either
// returns a payload or an error; errors classified as insufficient balance
// (see IsInsufficientBalance) are the only ones the agent retries.
type Client interface {
	// CreateOrders atomically cancels cancelIDs and places the given book
	// orders and pool swaps. Each created order's outcome is reported
	// per-index in the result.
	CreateOrders(ctx context.Context, cancelIDs []string, orders []BookOrderSpec, poolSwaps []PoolSwapSpec) (BatchResult, error)

	// CreateTriggers is the trigger-book analogue of CreateOrders.
	CreateTriggers(ctx context.Context, cancelIDs []string, triggers []TriggerSpec) (BatchResult, error)

	CancelOrder(ctx context.Context, id string) error
	CancelTrigger(ctx context.Context, id string) error

	// UpdateOrder moves an open order to a new tick/amount, replacing it if
	// the exchange cannot amend in place.
	UpdateOrder(ctx context.Context, id string, newTick, newAmount int64) (UpdateResult, error)

	// QuoteOrder previews execution of a taker order without placing it.
	QuoteOrder(ctx context.Context, side Side, amount, limitTick int64) (Quote, error)

	// Deposit and Withdraw move funds between the wallet and the trading
	// balance. Token is the ledger denom, amount in smallest units.
	Deposit(ctx context.Context, token string, amount int64) error
	Withdraw(ctx context.Context, token string, amount int64) error

	// AddLiquidity opens a new range position and returns its id.
	AddLiquidity(ctx context.Context, feePips int, tickLower, tickUpper, amount0, amount1 int64) (string, error)
	IncreaseLiquidity(ctx context.Context, positionID string, amount0, amount1 int64) error
	DecreaseLiquidity(ctx context.Context, positionID string, liquidityDelta int64) error
	CollectFees(ctx context.Context, positionID string) error
}

// StateSource exposes the market/account snapshot the tracker is built from.
// Implemented by the simulated exchange and, in a real deployment, by the
// indexer-backed client.
type StateSource interface {
	MarketState(ctx context.Context) (MarketState, error)
}
