package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"tickbot/internal/tickmath"
	"tickbot/internal/tracker"

	"tickbot/internal/dex"
)

// depositUnits converts the configured per-leg deposit notional into smallest
// units of the given leg.
func depositUnits(trk *tracker.Tracker, cfg Config, rng *rand.Rand, base bool) (string, int64) {
	if base {
		return trk.BaseToken, tickmath.RandomAmount(rng, cfg.DepositUSD, cfg.DepositUSD, trk.BaseDecimals, trk.Price())
	}
	return trk.QuoteToken, tickmath.RandomAmount(rng, cfg.DepositUSD, cfg.DepositUSD, trk.QuoteDecimals, tickmath.QuoteTokenUSD(trk.Symbol))
}

// actionDeposit tops up the leg that currently holds less spendable value.
func actionDeposit(ctx context.Context, client dex.Client, trk *tracker.Tracker, cfg Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	base := trk.SpendableBase() < trk.SpendableQuote()
	token, amount := depositUnits(trk, cfg, rng, base)

	rec.Record(KindPrompt, Deposit,
		fmt.Sprintf("deposit %.0f USD of %s into the trading balance", cfg.DepositUSD, token), 0)
	rec.Record(KindAction, Deposit, fmt.Sprintf("Deposit(token=%s amount=%d)", token, amount), 0)

	err := client.Deposit(ctx, token, amount)
	if err == nil {
		rec.Record(KindResult, Deposit, fmt.Sprintf("deposited %d %s", amount, token), 0)
	}
	return finish(rec, Deposit, start, err)
}

// actionWithdraw moves a random slice of a spendable leg back to the wallet.
func actionWithdraw(ctx context.Context, client dex.Client, trk *tracker.Tracker, _ Config, rec Recorder, rng *rand.Rand) Result {
	start := time.Now()

	type leg struct {
		token     string
		spendable int64
	}
	legs := make([]leg, 0, 2)
	if trk.SpendableBase() > 0 {
		legs = append(legs, leg{trk.BaseToken, trk.SpendableBase()})
	}
	if trk.SpendableQuote() > 0 {
		legs = append(legs, leg{trk.QuoteToken, trk.SpendableQuote()})
	}
	if len(legs) == 0 {
		return finish(rec, Withdraw, start, fmt.Errorf("no spendable balance to withdraw on %s", trk.MarketID))
	}
	pick := legs[rng.Intn(len(legs))]
	amount := 1 + rng.Int63n(pick.spendable)

	rec.Record(KindPrompt, Withdraw, fmt.Sprintf("withdraw part of the %s balance", pick.token), 0)
	rec.Record(KindAction, Withdraw, fmt.Sprintf("Withdraw(token=%s amount=%d)", pick.token, amount), 0)

	err := client.Withdraw(ctx, pick.token, amount)
	if err == nil {
		rec.Record(KindResult, Withdraw, fmt.Sprintf("withdrew %d %s", amount, pick.token), 0)
	}
	return finish(rec, Withdraw, start, err)
}
