package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"tickbot/internal/dex"
	"tickbot/internal/tickmath"
	"tickbot/internal/tracker"
)

// finish emits the closing log line for an action and wraps the outcome.
func finish(rec Recorder, action ActionType, start time.Time, err error) Result {
	elapsed := time.Since(start)
	if err != nil {
		rec.Record(KindError, action, err.Error(), elapsed)
		return Result{Err: err, Duration: elapsed}
	}
	rec.Record(KindSuccess, action, "done", elapsed)
	return Result{Success: true, Duration: elapsed}
}

// batchErr folds a batch call into a single error: the transport error if
// any, otherwise the first rejected outcome.
func batchErr(res dex.BatchResult, err error) error {
	if err != nil {
		return err
	}
	for i, out := range res.Outcomes {
		if out.Err != "" {
			return fmt.Errorf("item %d rejected: %s", i, out.Err)
		}
	}
	return nil
}

// quoteSpend sizes an order paid in quote units.
func quoteSpend(trk *tracker.Tracker, cfg Config, rng *rand.Rand) int64 {
	return tickmath.RandomAmount(rng, cfg.MinNotionalUSD, cfg.MaxNotionalUSD,
		trk.QuoteDecimals, tickmath.QuoteTokenUSD(trk.Symbol))
}

// baseSpend sizes an order paid in base units.
func baseSpend(trk *tracker.Tracker, cfg Config, rng *rand.Rand) int64 {
	return tickmath.RandomAmount(rng, cfg.MinNotionalUSD, cfg.MaxNotionalUSD,
		trk.BaseDecimals, trk.Price())
}

func sideSpend(side dex.Side, trk *tracker.Tracker, cfg Config, rng *rand.Rand) int64 {
	if side == dex.Buy {
		return quoteSpend(trk, cfg, rng)
	}
	return baseSpend(trk, cfg, rng)
}

func orderTick(side dex.Side, rng *rand.Rand, current int64) int64 {
	if side == dex.Buy {
		return tickmath.BuyOrderTick(rng, current)
	}
	return tickmath.SellOrderTick(rng, current)
}

func actionName(side dex.Side, buy, sell ActionType) ActionType {
	if side == dex.Buy {
		return buy
	}
	return sell
}

func actionCreateOrder(side dex.Side) Handler {
	return func(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
		action := actionName(side, CreateBuyOrder, CreateSellOrder)
		start := time.Now()

		current, ok := trk.Tick()
		if !ok {
			return finish(rec, action, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
		}
		tick := orderTick(side, rng, current)
		amount := sideSpend(side, trk, cfg, rng)

		rec.Record(KindPrompt, action, fmt.Sprintf("place a %s limit order on %s", side, trk.Symbol), 0)
		rec.Record(KindAction, action,
			fmt.Sprintf("CreateOrders(orders=[{side=%s tick=%d amount=%d}])", side, tick, amount), 0)

		res, err := client.CreateOrders(ctx, nil, []dex.BookOrderSpec{{Side: side, Tick: tick, Amount: amount}}, nil)
		if err = batchErr(res, err); err == nil {
			rec.Record(KindResult, action, fmt.Sprintf("order resting at tick %d", tick), 0)
		}
		return finish(rec, action, start, err)
	}
}

func actionCancelOrder(ctx context.Context, client dex.Client, trk *tracker.Tracker, _ Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	ord, ok := trk.RandomOrder(rng)
	if !ok {
		return finish(rec, CancelOrder, start, fmt.Errorf("no open orders on %s", trk.MarketID))
	}

	rec.Record(KindPrompt, CancelOrder, fmt.Sprintf("cancel one of %d open orders", len(trk.Orders)), 0)
	rec.Record(KindAction, CancelOrder, fmt.Sprintf("CancelOrder(id=%s)", ord.ID), 0)

	err := client.CancelOrder(ctx, ord.ID)
	if err == nil {
		rec.Record(KindResult, CancelOrder, fmt.Sprintf("order %s cancelled", ord.ID), 0)
	}
	return finish(rec, CancelOrder, start, err)
}

func actionUpdateOrder(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	current, ok := trk.Tick()
	if !ok {
		return finish(rec, UpdateOrder, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
	}
	ord, ok := trk.RandomOrder(rng)
	if !ok {
		return finish(rec, UpdateOrder, start, fmt.Errorf("no open orders on %s", trk.MarketID))
	}
	newTick := orderTick(ord.Side, rng, current)
	newAmount := sideSpend(ord.Side, trk, cfg, rng)

	rec.Record(KindPrompt, UpdateOrder, fmt.Sprintf("move order %s to a new tick", ord.ID), 0)
	rec.Record(KindAction, UpdateOrder,
		fmt.Sprintf("UpdateOrder(id=%s newTick=%d newAmount=%d)", ord.ID, newTick, newAmount), 0)

	res, err := client.UpdateOrder(ctx, ord.ID, newTick, newAmount)
	if err == nil {
		rec.Record(KindResult, UpdateOrder,
			fmt.Sprintf("order now %s (replaced=%v)", res.OrderID, res.WasReplaced), 0)
	}
	return finish(rec, UpdateOrder, start, err)
}

// actionConvertToMarket quotes the remaining size of a random resting order
// and resubmits it with the quote's routing split, cancelling the original in
// the same batch.
func actionConvertToMarket(ctx context.Context, client dex.Client, trk *tracker.Tracker, _ Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	current, ok := trk.Tick()
	if !ok {
		return finish(rec, ConvertToMarket, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
	}
	ord, ok := trk.RandomOrder(rng)
	if !ok {
		return finish(rec, ConvertToMarket, start, fmt.Errorf("no open orders on %s", trk.MarketID))
	}
	limit := crossingLimitTick(ord.Side, current)

	rec.Record(KindPrompt, ConvertToMarket, fmt.Sprintf("convert order %s to a market order", ord.ID), 0)
	rec.Record(KindAction, ConvertToMarket,
		fmt.Sprintf("QuoteOrder(side=%s amount=%d limitTick=%d)", ord.Side, ord.Amount, limit), 0)

	quote, err := client.QuoteOrder(ctx, ord.Side, ord.Amount, limit)
	if err != nil {
		return finish(rec, ConvertToMarket, start, err)
	}

	var orders []dex.BookOrderSpec
	if quote.BookOrder != nil {
		orders = append(orders, *quote.BookOrder)
	}
	rec.Record(KindAction, ConvertToMarket,
		fmt.Sprintf("CreateOrders(cancel=[%s] book=%d swaps=%d)", ord.ID, len(orders), len(quote.PoolSwaps)), 0)

	res, err := client.CreateOrders(ctx, []string{ord.ID}, orders, quote.PoolSwaps)
	if err = batchErr(res, err); err == nil {
		rec.Record(KindResult, ConvertToMarket,
			fmt.Sprintf("converted, expected output %d (impact %d bps)", quote.OutputAmount, quote.PriceImpactBps), 0)
	}
	return finish(rec, ConvertToMarket, start, err)
}

// actionRouted quotes a fresh taker order and submits the suggested split.
func actionRouted(side dex.Side) Handler {
	return func(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
		action := actionName(side, RoutedBuy, RoutedSell)
		start := time.Now()

		current, ok := trk.Tick()
		if !ok {
			return finish(rec, action, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
		}
		amount := sideSpend(side, trk, cfg, rng)
		limit := crossingLimitTick(side, current)

		rec.Record(KindPrompt, action, fmt.Sprintf("routed %s of %d units on %s", side, amount, trk.Symbol), 0)
		rec.Record(KindAction, action,
			fmt.Sprintf("QuoteOrder(side=%s amount=%d limitTick=%d)", side, amount, limit), 0)

		quote, err := client.QuoteOrder(ctx, side, amount, limit)
		if err != nil {
			return finish(rec, action, start, err)
		}

		var orders []dex.BookOrderSpec
		if quote.BookOrder != nil {
			orders = append(orders, *quote.BookOrder)
		}
		rec.Record(KindAction, action,
			fmt.Sprintf("CreateOrders(book=%d swaps=%d)", len(orders), len(quote.PoolSwaps)), 0)

		res, err := client.CreateOrders(ctx, nil, orders, quote.PoolSwaps)
		if err = batchErr(res, err); err == nil {
			rec.Record(KindResult, action,
				fmt.Sprintf("routed fill, expected output %d (impact %d bps)", quote.OutputAmount, quote.PriceImpactBps), 0)
		}
		return finish(rec, action, start, err)
	}
}

// crossingLimitTick is an aggressive limit that allows full execution at the
// current price plus slippage room.
func crossingLimitTick(side dex.Side, current int64) int64 {
	if side == dex.Buy {
		return current + tickmath.AggressiveOffsetMax
	}
	return current - tickmath.AggressiveOffsetMax
}

// actionGrid lays a ladder of 3-5 orders stepping away from the market.
func actionGrid(side dex.Side) Handler {
	return func(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
		action := actionName(side, GridBuy, GridSell)
		start := time.Now()

		current, ok := trk.Tick()
		if !ok {
			return finish(rec, action, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
		}
		n := 3 + rng.Intn(3)
		direction := int64(-1)
		if side == dex.Sell {
			direction = 1
		}
		ticks := tickmath.GridTicks(rng, current, n, direction)
		specs := make([]dex.BookOrderSpec, 0, len(ticks))
		for _, tk := range ticks {
			specs = append(specs, dex.BookOrderSpec{Side: side, Tick: tk, Amount: sideSpend(side, trk, cfg, rng)})
		}

		rec.Record(KindPrompt, action, fmt.Sprintf("lay a %d-level %s grid on %s", n, side, trk.Symbol), 0)
		rec.Record(KindAction, action, fmt.Sprintf("CreateOrders(orders=%d ticks=%v)", len(specs), ticks), 0)

		res, err := client.CreateOrders(ctx, nil, specs, nil)
		if err = batchErr(res, err); err == nil {
			rec.Record(KindResult, action, fmt.Sprintf("%d grid orders resting", len(specs)), 0)
		}
		return finish(rec, action, start, err)
	}
}
