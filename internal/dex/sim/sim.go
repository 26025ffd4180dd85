// Package sim is an in-memory exchange used for agent soak runs and tests.
// It keeps a wallet and a trading ledger per token, a book of open orders and
// triggers, and liquidity positions, with just enough fill/price dynamics to
// keep a long-running agent busy. It is not a matching engine.
package sim

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"tickbot/internal/dex"
	"tickbot/internal/tickmath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config describes the single market the simulator serves and the wallet it
// starts with. Balances and fees are in smallest token units.
type Config struct {
	MarketID      string
	Symbol        string
	BaseToken     string
	QuoteToken    string
	BaseDecimals  int
	QuoteDecimals int

	BaseTransferFee  int64
	QuoteTransferFee int64
	FeePips          int

	// GenesisTick seeds the reference tick. When HasGenesisTick is false the
	// market starts uninitialized and must be seeded via SeedTick.
	GenesisTick     int64
	HasGenesisTick  bool
	WalletBase      int64
	WalletQuote     int64
}

// Exchange implements dex.Client and dex.StateSource for one market.
type Exchange struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	tick    *int64
	wallet  map[string]decimal.Decimal
	trading map[string]decimal.Decimal
	locked  map[string]decimal.Decimal

	orders    map[string]dex.Order
	triggers  map[string]dex.Trigger
	positions map[string]dex.LiquidityPosition

	// fees accrued per position id, credited on CollectFees.
	accrued map[string][2]decimal.Decimal
}

func New(cfg Config, rng *rand.Rand) *Exchange {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	e := &Exchange{
		cfg:       cfg,
		rng:       rng,
		wallet:    map[string]decimal.Decimal{},
		trading:   map[string]decimal.Decimal{},
		locked:    map[string]decimal.Decimal{},
		orders:    map[string]dex.Order{},
		triggers:  map[string]dex.Trigger{},
		positions: map[string]dex.LiquidityPosition{},
		accrued:   map[string][2]decimal.Decimal{},
	}
	e.wallet[cfg.BaseToken] = decimal.NewFromInt(cfg.WalletBase)
	e.wallet[cfg.QuoteToken] = decimal.NewFromInt(cfg.WalletQuote)
	if cfg.HasGenesisTick {
		t := cfg.GenesisTick
		e.tick = &t
	}
	return e
}

// SeedTick initializes the reference tick if the market has none yet, used by
// the reference-price feed at boot.
func (e *Exchange) SeedTick(tick int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tick == nil {
		e.tick = &tick
	}
}

func (e *Exchange) spendToken(side dex.Side) string {
	if side == dex.Buy {
		return e.cfg.QuoteToken
	}
	return e.cfg.BaseToken
}

func (e *Exchange) receiveToken(side dex.Side) string {
	if side == dex.Buy {
		return e.cfg.BaseToken
	}
	return e.cfg.QuoteToken
}

// baseQuoteRate returns quote smallest units per base smallest unit at the
// current tick.
func (e *Exchange) baseQuoteRate() decimal.Decimal {
	t := int64(0)
	if e.tick != nil {
		t = *e.tick
	}
	rate := math.Pow(1.0001, float64(t)) * math.Pow(10, float64(e.cfg.QuoteDecimals-e.cfg.BaseDecimals))
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		rate = 1
	}
	return decimal.NewFromFloat(rate)
}

func (e *Exchange) freeBalance(token string) decimal.Decimal {
	return e.trading[token]
}

func (e *Exchange) debitFree(token string, amount decimal.Decimal) error {
	have := e.trading[token]
	if have.LessThan(amount) {
		return dex.InsufficientBalanceError(token, amount.IntPart(), have.IntPart())
	}
	e.trading[token] = have.Sub(amount)
	return nil
}

func (e *Exchange) creditFree(token string, amount decimal.Decimal) {
	e.trading[token] = e.trading[token].Add(amount)
}

// driftTick random-walks the reference tick after a taker execution so long
// runs see moving prices.
func (e *Exchange) driftTick() {
	if e.tick == nil {
		return
	}
	t := *e.tick + e.rng.Int63n(21) - 10
	e.tick = &t
}

func (e *Exchange) CreateOrders(_ context.Context, cancelIDs []string, orders []dex.BookOrderSpec, poolSwaps []dex.PoolSwapSpec) (dex.BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range cancelIDs {
		e.releaseOrderLocked(id)
	}

	res := dex.BatchResult{Outcomes: make([]dex.Outcome, 0, len(orders)+len(poolSwaps))}
	for _, spec := range orders {
		token := e.spendToken(spec.Side)
		amt := decimal.NewFromInt(spec.Amount)
		if err := e.debitFree(token, amt); err != nil {
			res.Outcomes = append(res.Outcomes, dex.Outcome{Err: err.Error()})
			continue
		}
		e.locked[token] = e.locked[token].Add(amt)
		id := uuid.NewString()
		e.orders[id] = dex.Order{ID: id, Side: spec.Side, Tick: spec.Tick, Amount: spec.Amount}
		res.Outcomes = append(res.Outcomes, dex.Outcome{ID: id})
	}
	for _, swap := range poolSwaps {
		out, err := e.executeSwapLocked(swap)
		if err != nil {
			res.Outcomes = append(res.Outcomes, dex.Outcome{Err: err.Error()})
			continue
		}
		res.Outcomes = append(res.Outcomes, dex.Outcome{ID: out})
	}
	return res, nil
}

func (e *Exchange) executeSwapLocked(swap dex.PoolSwapSpec) (string, error) {
	token := e.spendToken(swap.Side)
	in := decimal.NewFromInt(swap.AmountIn)
	if err := e.debitFree(token, in); err != nil {
		return "", err
	}
	rate := e.baseQuoteRate()
	var out decimal.Decimal
	if swap.Side == dex.Buy {
		out = in.Div(rate)
	} else {
		out = in.Mul(rate)
	}
	// Pool fee is taken from the output leg.
	fee := out.Mul(decimal.NewFromInt(int64(swap.FeePips))).Div(decimal.NewFromInt(1_000_000))
	e.creditFree(e.receiveToken(swap.Side), out.Sub(fee).Floor())
	e.driftTick()
	return uuid.NewString(), nil
}

func (e *Exchange) CreateTriggers(_ context.Context, cancelIDs []string, triggers []dex.TriggerSpec) (dex.BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range cancelIDs {
		e.releaseTriggerLocked(id)
	}

	res := dex.BatchResult{Outcomes: make([]dex.Outcome, 0, len(triggers))}
	for _, spec := range triggers {
		token := e.spendToken(spec.Side)
		amt := decimal.NewFromInt(spec.Amount)
		if err := e.debitFree(token, amt); err != nil {
			res.Outcomes = append(res.Outcomes, dex.Outcome{Err: err.Error()})
			continue
		}
		e.locked[token] = e.locked[token].Add(amt)
		id := uuid.NewString()
		e.triggers[id] = dex.Trigger{
			ID:          id,
			Side:        spec.Side,
			TriggerTick: spec.TriggerTick,
			LimitTick:   spec.LimitTick,
			Amount:      spec.Amount,
		}
		res.Outcomes = append(res.Outcomes, dex.Outcome{ID: id})
	}
	return res, nil
}

func (e *Exchange) releaseOrderLocked(id string) bool {
	ord, ok := e.orders[id]
	if !ok {
		return false
	}
	token := e.spendToken(ord.Side)
	amt := decimal.NewFromInt(ord.Amount)
	e.locked[token] = e.locked[token].Sub(amt)
	e.creditFree(token, amt)
	delete(e.orders, id)
	return true
}

func (e *Exchange) releaseTriggerLocked(id string) bool {
	trg, ok := e.triggers[id]
	if !ok {
		return false
	}
	token := e.spendToken(trg.Side)
	amt := decimal.NewFromInt(trg.Amount)
	e.locked[token] = e.locked[token].Sub(amt)
	e.creditFree(token, amt)
	delete(e.triggers, id)
	return true
}

func (e *Exchange) CancelOrder(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.releaseOrderLocked(id) {
		return dex.NewError("NOT_FOUND", "order %s does not exist", id)
	}
	return nil
}

func (e *Exchange) CancelTrigger(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.releaseTriggerLocked(id) {
		return dex.NewError("NOT_FOUND", "trigger %s does not exist", id)
	}
	return nil
}

func (e *Exchange) UpdateOrder(_ context.Context, id string, newTick, newAmount int64) (dex.UpdateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ord, ok := e.orders[id]
	if !ok {
		return dex.UpdateResult{}, dex.NewError("NOT_FOUND", "order %s does not exist", id)
	}

	// Amount-only shrink amends in place; any tick move is a replace.
	if newTick == ord.Tick && newAmount <= ord.Amount {
		token := e.spendToken(ord.Side)
		refund := decimal.NewFromInt(ord.Amount - newAmount)
		e.locked[token] = e.locked[token].Sub(refund)
		e.creditFree(token, refund)
		ord.Amount = newAmount
		e.orders[id] = ord
		return dex.UpdateResult{OrderID: id, WasReplaced: false}, nil
	}

	side := ord.Side
	e.releaseOrderLocked(id)
	token := e.spendToken(side)
	amt := decimal.NewFromInt(newAmount)
	if err := e.debitFree(token, amt); err != nil {
		return dex.UpdateResult{}, err
	}
	e.locked[token] = e.locked[token].Add(amt)
	newID := uuid.NewString()
	e.orders[newID] = dex.Order{ID: newID, Side: side, Tick: newTick, Amount: newAmount}
	return dex.UpdateResult{OrderID: newID, WasReplaced: true}, nil
}

func (e *Exchange) QuoteOrder(_ context.Context, side dex.Side, amount, limitTick int64) (dex.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return dex.Quote{}, dex.NewError("INVALID_AMOUNT", "quote amount must be positive, got %d", amount)
	}
	if e.tick == nil {
		return dex.Quote{}, dex.NewError("MARKET_UNINITIALIZED", "market %s has no reference price", e.cfg.MarketID)
	}

	// Route most of the size through the pool and rest the remainder on the
	// book at the limit. The split leans toward the pool for small sizes.
	poolPart := amount * 7 / 10
	bookPart := amount - poolPart
	rate := e.baseQuoteRate()
	var out decimal.Decimal
	in := decimal.NewFromInt(poolPart)
	if side == dex.Buy {
		out = in.Div(rate)
	} else {
		out = in.Mul(rate)
	}
	impact := amount / 1000
	q := dex.Quote{
		OutputAmount:   out.Floor().IntPart(),
		PriceImpactBps: impact,
		PoolSwaps: []dex.PoolSwapSpec{
			{FeePips: e.cfg.FeePips, Side: side, AmountIn: poolPart, LimitTick: limitTick},
		},
	}
	if bookPart > 0 {
		q.BookOrder = &dex.BookOrderSpec{Side: side, Tick: limitTick, Amount: bookPart}
	}
	return q, nil
}

func (e *Exchange) Deposit(_ context.Context, token string, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fee := e.transferFee(token)
	need := decimal.NewFromInt(amount + fee)
	have := e.wallet[token]
	if have.LessThan(need) {
		return dex.NewError("WALLET_EMPTY", "wallet %s: need %s, have %s", token, need, have)
	}
	e.wallet[token] = have.Sub(need)
	e.creditFree(token, decimal.NewFromInt(amount))
	return nil
}

func (e *Exchange) Withdraw(_ context.Context, token string, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fee := e.transferFee(token)
	need := decimal.NewFromInt(amount + fee)
	if err := e.debitFree(token, need); err != nil {
		return err
	}
	e.wallet[token] = e.wallet[token].Add(decimal.NewFromInt(amount))
	return nil
}

func (e *Exchange) transferFee(token string) int64 {
	if token == e.cfg.QuoteToken {
		return e.cfg.QuoteTransferFee
	}
	return e.cfg.BaseTransferFee
}

func (e *Exchange) AddLiquidity(_ context.Context, feePips int, tickLower, tickUpper, amount0, amount1 int64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	spacing := tickmath.TickSpacingFromFeePips(feePips)
	if tickLower%spacing != 0 || tickUpper%spacing != 0 || tickUpper <= tickLower {
		return "", dex.NewError("INVALID_RANGE", "range [%d,%d) not aligned to spacing %d", tickLower, tickUpper, spacing)
	}
	if err := e.debitFree(e.cfg.BaseToken, decimal.NewFromInt(amount0)); err != nil {
		return "", err
	}
	if err := e.debitFree(e.cfg.QuoteToken, decimal.NewFromInt(amount1)); err != nil {
		e.creditFree(e.cfg.BaseToken, decimal.NewFromInt(amount0))
		return "", err
	}
	id := uuid.NewString()
	e.positions[id] = dex.LiquidityPosition{
		ID:        id,
		FeePips:   feePips,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: amount0 + amount1,
	}
	return id, nil
}

func (e *Exchange) IncreaseLiquidity(_ context.Context, positionID string, amount0, amount1 int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return dex.NewError("NOT_FOUND", "position %s does not exist", positionID)
	}
	if err := e.debitFree(e.cfg.BaseToken, decimal.NewFromInt(amount0)); err != nil {
		return err
	}
	if err := e.debitFree(e.cfg.QuoteToken, decimal.NewFromInt(amount1)); err != nil {
		e.creditFree(e.cfg.BaseToken, decimal.NewFromInt(amount0))
		return err
	}
	pos.Liquidity += amount0 + amount1
	e.positions[positionID] = pos
	e.accrueFeesLocked(positionID, pos)
	return nil
}

func (e *Exchange) DecreaseLiquidity(_ context.Context, positionID string, liquidityDelta int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return dex.NewError("NOT_FOUND", "position %s does not exist", positionID)
	}
	if liquidityDelta <= 0 || liquidityDelta > pos.Liquidity {
		return dex.NewError("INVALID_AMOUNT", "liquidity delta %d out of range (0, %d]", liquidityDelta, pos.Liquidity)
	}
	half := decimal.NewFromInt(liquidityDelta).Div(decimal.NewFromInt(2)).Floor()
	e.creditFree(e.cfg.BaseToken, half)
	e.creditFree(e.cfg.QuoteToken, decimal.NewFromInt(liquidityDelta).Sub(half))
	pos.Liquidity -= liquidityDelta
	if pos.Liquidity == 0 {
		delete(e.positions, positionID)
		delete(e.accrued, positionID)
		return nil
	}
	e.positions[positionID] = pos
	return nil
}

func (e *Exchange) CollectFees(_ context.Context, positionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[positionID]
	if !ok {
		return dex.NewError("NOT_FOUND", "position %s does not exist", positionID)
	}
	e.accrueFeesLocked(positionID, pos)
	acc := e.accrued[positionID]
	e.creditFree(e.cfg.BaseToken, acc[0].Floor())
	e.creditFree(e.cfg.QuoteToken, acc[1].Floor())
	delete(e.accrued, positionID)
	return nil
}

// accrueFeesLocked credits a toy fee accrual proportional to liquidity and
// the pool's fee tier.
func (e *Exchange) accrueFeesLocked(positionID string, pos dex.LiquidityPosition) {
	rate := decimal.NewFromInt(int64(pos.FeePips)).Div(decimal.NewFromInt(1_000_000))
	earned := decimal.NewFromInt(pos.Liquidity).Mul(rate).Mul(decimal.NewFromFloat(e.rng.Float64()))
	acc := e.accrued[positionID]
	acc[0] = acc[0].Add(earned.Div(decimal.NewFromInt(2)))
	acc[1] = acc[1].Add(earned.Div(decimal.NewFromInt(2)))
	e.accrued[positionID] = acc
}

func (e *Exchange) MarketState(context.Context) (dex.MarketState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := dex.MarketState{
		MarketID:         e.cfg.MarketID,
		Symbol:           e.cfg.Symbol,
		BaseToken:        e.cfg.BaseToken,
		QuoteToken:       e.cfg.QuoteToken,
		BaseDecimals:     e.cfg.BaseDecimals,
		QuoteDecimals:    e.cfg.QuoteDecimals,
		BaseTransferFee:  e.cfg.BaseTransferFee,
		QuoteTransferFee: e.cfg.QuoteTransferFee,
		FeePips:          e.cfg.FeePips,
		AvailableBase:    e.freeBalance(e.cfg.BaseToken).IntPart(),
		AvailableQuote:   e.freeBalance(e.cfg.QuoteToken).IntPart(),
	}
	if e.tick != nil {
		t := *e.tick
		st.CurrentTick = &t
	}
	st.Orders = make([]dex.Order, 0, len(e.orders))
	for _, o := range e.orders {
		st.Orders = append(st.Orders, o)
	}
	st.Triggers = make([]dex.Trigger, 0, len(e.triggers))
	for _, t := range e.triggers {
		st.Triggers = append(st.Triggers, t)
	}
	st.Positions = make([]dex.LiquidityPosition, 0, len(e.positions))
	for _, p := range e.positions {
		st.Positions = append(st.Positions, p)
	}
	return st, nil
}

// WalletBalance reports the undeposited wallet balance for a token, used by
// tests and the HTTP status endpoint.
func (e *Exchange) WalletBalance(token string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wallet[token].IntPart()
}
