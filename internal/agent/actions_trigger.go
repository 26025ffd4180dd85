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

func actionCreateTrigger(side dex.Side) Handler {
	return func(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
		action := actionName(side, CreateBuyTrigger, CreateSellTrigger)
		start := time.Now()

		current, ok := trk.Tick()
		if !ok {
			return finish(rec, action, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
		}
		triggerTick, limitTick := tickmath.TriggerTicks(rng, current, side == dex.Sell)
		amount := sideSpend(side, trk, cfg, rng)

		rec.Record(KindPrompt, action, fmt.Sprintf("arm a %s trigger on %s", side, trk.Symbol), 0)
		rec.Record(KindAction, action,
			fmt.Sprintf("CreateTriggers(triggers=[{side=%s trigger=%d limit=%d amount=%d}])",
				side, triggerTick, limitTick, amount), 0)

		res, err := client.CreateTriggers(ctx, nil, []dex.TriggerSpec{{
			Side: side, TriggerTick: triggerTick, LimitTick: limitTick, Amount: amount,
		}})
		if err = batchErr(res, err); err == nil {
			rec.Record(KindResult, action, fmt.Sprintf("trigger armed at tick %d", triggerTick), 0)
		}
		return finish(rec, action, start, err)
	}
}

func actionCancelTrigger(ctx context.Context, client dex.Client, trk *tracker.Tracker, _ Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	trg, ok := trk.RandomTrigger(rng)
	if !ok {
		return finish(rec, CancelTrigger, start, fmt.Errorf("no armed triggers on %s", trk.MarketID))
	}

	rec.Record(KindPrompt, CancelTrigger, fmt.Sprintf("disarm one of %d triggers", len(trk.Triggers)), 0)
	rec.Record(KindAction, CancelTrigger, fmt.Sprintf("CancelTrigger(id=%s)", trg.ID), 0)

	err := client.CancelTrigger(ctx, trg.ID)
	if err == nil {
		rec.Record(KindResult, CancelTrigger, fmt.Sprintf("trigger %s disarmed", trg.ID), 0)
	}
	return finish(rec, CancelTrigger, start, err)
}

// actionBracket places a resting order and then a protective trigger on the
// opposite side. The two exchange calls are independent: a trigger failure is
// reported as the action's failure but the resting order is left in place.
func actionBracket(side dex.Side) Handler {
	return func(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
		action := actionName(side, BracketBuy, BracketSell)
		start := time.Now()

		current, ok := trk.Tick()
		if !ok {
			return finish(rec, action, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
		}

		tick := orderTick(side, rng, current)
		amount := sideSpend(side, trk, cfg, rng)

		rec.Record(KindPrompt, action,
			fmt.Sprintf("bracket %s: resting order plus protective trigger on %s", side, trk.Symbol), 0)
		rec.Record(KindAction, action,
			fmt.Sprintf("CreateOrders(orders=[{side=%s tick=%d amount=%d}])", side, tick, amount), 0)

		res, err := client.CreateOrders(ctx, nil, []dex.BookOrderSpec{{Side: side, Tick: tick, Amount: amount}}, nil)
		if err = batchErr(res, err); err != nil {
			return finish(rec, action, start, fmt.Errorf("bracket order leg: %w", err))
		}
		rec.Record(KindResult, action, fmt.Sprintf("order leg resting at tick %d", tick), 0)

		// The protective leg acts on the position the order acquires, so it
		// sits on the opposite side.
		protectSide := dex.Sell
		if side == dex.Sell {
			protectSide = dex.Buy
		}
		triggerTick, limitTick := tickmath.TriggerTicks(rng, current, protectSide == dex.Sell)
		protectAmount := sideSpend(protectSide, trk, cfg, rng)

		rec.Record(KindAction, action,
			fmt.Sprintf("CreateTriggers(triggers=[{side=%s trigger=%d limit=%d amount=%d}])",
				protectSide, triggerTick, limitTick, protectAmount), 0)

		tres, err := client.CreateTriggers(ctx, nil, []dex.TriggerSpec{{
			Side: protectSide, TriggerTick: triggerTick, LimitTick: limitTick, Amount: protectAmount,
		}})
		// No rollback of the order leg on trigger failure; the next cycle
		// sees whatever actually landed.
		if err = batchErr(tres, err); err != nil {
			return finish(rec, action, start, fmt.Errorf("bracket trigger leg (order leg kept): %w", err))
		}
		rec.Record(KindResult, action, fmt.Sprintf("protective trigger armed at tick %d", triggerTick), 0)
		return finish(rec, action, start, nil)
	}
}
