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

func actionAddLiquidity(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	current, ok := trk.Tick()
	if !ok {
		return finish(rec, AddLiquidity, start, fmt.Errorf("market %s has no reference tick", trk.MarketID))
	}
	lower, upper := tickmath.LiquidityRange(rng, current, trk.FeePips)
	amount0 := baseSpend(trk, cfg, rng)
	amount1 := quoteSpend(trk, cfg, rng)

	rec.Record(KindPrompt, AddLiquidity,
		fmt.Sprintf("provide liquidity on %s around tick %d", trk.Symbol, current), 0)
	rec.Record(KindAction, AddLiquidity,
		fmt.Sprintf("AddLiquidity(feePips=%d range=[%d,%d] amount0=%d amount1=%d)",
			trk.FeePips, lower, upper, amount0, amount1), 0)

	id, err := client.AddLiquidity(ctx, trk.FeePips, lower, upper, amount0, amount1)
	if err == nil {
		rec.Record(KindResult, AddLiquidity, fmt.Sprintf("position %s opened", id), 0)
	}
	return finish(rec, AddLiquidity, start, err)
}

func actionIncreaseLiquidity(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	pos, ok := trk.RandomPosition(rng)
	if !ok {
		return finish(rec, IncreaseLiquidity, start, fmt.Errorf("no liquidity positions on %s", trk.MarketID))
	}
	amount0 := baseSpend(trk, cfg, rng)
	amount1 := quoteSpend(trk, cfg, rng)

	rec.Record(KindPrompt, IncreaseLiquidity, fmt.Sprintf("top up position %s", pos.ID), 0)
	rec.Record(KindAction, IncreaseLiquidity,
		fmt.Sprintf("IncreaseLiquidity(id=%s amount0=%d amount1=%d)", pos.ID, amount0, amount1), 0)

	err := client.IncreaseLiquidity(ctx, pos.ID, amount0, amount1)
	if err == nil {
		rec.Record(KindResult, IncreaseLiquidity, fmt.Sprintf("position %s increased", pos.ID), 0)
	}
	return finish(rec, IncreaseLiquidity, start, err)
}

func actionDecreaseLiquidity(ctx context.Context, client dex.Client, trk *tracker.Tracker, _ Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	pos, ok := trk.RandomPosition(rng)
	if !ok {
		return finish(rec, DecreaseLiquidity, start, fmt.Errorf("no liquidity positions on %s", trk.MarketID))
	}
	delta := pos.Liquidity
	if delta > 1 {
		delta = 1 + rng.Int63n(pos.Liquidity)
	}

	rec.Record(KindPrompt, DecreaseLiquidity, fmt.Sprintf("withdraw part of position %s", pos.ID), 0)
	rec.Record(KindAction, DecreaseLiquidity,
		fmt.Sprintf("DecreaseLiquidity(id=%s delta=%d)", pos.ID, delta), 0)

	err := client.DecreaseLiquidity(ctx, pos.ID, delta)
	if err == nil {
		rec.Record(KindResult, DecreaseLiquidity,
			fmt.Sprintf("position %s reduced by %d", pos.ID, delta), 0)
	}
	return finish(rec, DecreaseLiquidity, start, err)
}

func actionCollectFees(ctx context.Context, client dex.Client, trk *tracker.Tracker, _ Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	pos, ok := trk.RandomPosition(rng)
	if !ok {
		return finish(rec, CollectFees, start, fmt.Errorf("no liquidity positions on %s", trk.MarketID))
	}

	rec.Record(KindPrompt, CollectFees, fmt.Sprintf("collect accrued fees on position %s", pos.ID), 0)
	rec.Record(KindAction, CollectFees, fmt.Sprintf("CollectFees(id=%s)", pos.ID), 0)

	err := client.CollectFees(ctx, pos.ID)
	if err == nil {
		rec.Record(KindResult, CollectFees, fmt.Sprintf("fees collected on %s", pos.ID), 0)
	}
	return finish(rec, CollectFees, start, err)
}
