package engine

import (
	"context"
	"fmt"

	"tickbot/internal/agent"
	"tickbot/internal/dex"
	"tickbot/internal/logger"
	"tickbot/internal/tickmath"
	"tickbot/internal/tracker"
)

// runTick is the timer callback. The generation check makes cancelled timers
// inert: pause/stop bump the generation before this fires or while the tick
// body runs, and a stale generation neither acts nor reschedules.
func (e *Engine) runTick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.state != StateRunning || e.market == "" {
		e.mu.Unlock()
		return
	}
	cfg := e.cfg
	e.tickCount++
	if e.metrics != nil {
		e.metrics.TickObserved()
	}
	e.mu.Unlock()

	e.tick(cfg)

	e.mu.Lock()
	if gen == e.gen && e.state == StateRunning {
		e.scheduleLocked(e.delayLocked())
	}
	e.mu.Unlock()
}

// tick performs one full decision cycle. Nothing may escape: panics and
// every error end up in the log stream and the error counter, and the caller
// reschedules regardless.
func (e *Engine) tick(cfg agent.Config) {
	defer func() {
		if r := recover(); r != nil {
			e.Record(agent.KindError, "", fmt.Sprintf("tick error: %v", r), 0)
			e.incError()
		}
	}()

	ctx := context.Background()
	trk, err := tracker.Build(ctx, e.source)
	if err != nil {
		e.Record(agent.KindError, "", fmt.Sprintf("tracker build failed: %v", err), 0)
		e.incError()
		return
	}

	if cfg.AutoDeposit && trk.AvailableBase == 0 && trk.AvailableQuote == 0 {
		e.Record(agent.KindInfo, agent.Deposit, "no trading balance, performing initial deposit...", 0)
		res := agent.Execute(ctx, agent.Deposit, e.client, trk, cfg, e, e.rng)
		e.setLastAction(agent.Deposit)
		e.observeResult(agent.Deposit, res)
		return
	}

	avail := agent.AvailableActions(trk, cfg)
	if len(avail) == 0 {
		e.Record(agent.KindInfo, "", "no available actions", 0)
		return
	}

	pick, ok := agent.WeightedPick(e.rng, avail, cfg)
	if !ok {
		e.Record(agent.KindInfo, "", "no available actions (all weights zero)", 0)
		return
	}
	e.setLastAction(pick)

	if cfg.DryRun {
		e.Record(agent.KindInfo, pick, fmt.Sprintf("[dry-run] would execute %s", pick), 0)
		return
	}

	res := agent.Execute(ctx, pick, e.client, trk, cfg, e, e.rng)
	if res.Err != nil && cfg.AutoDeposit && dex.IsInsufficientBalance(res.Err) {
		res = e.recoverAndRetry(ctx, pick, cfg)
	}
	e.observeResult(pick, res)
}

// recoverAndRetry tops up both legs independently, rebuilds the tracker, and
// retries the same action exactly once. A second failure is final for this
// tick.
func (e *Engine) recoverAndRetry(ctx context.Context, action agent.ActionType, cfg agent.Config) agent.Result {
	e.Record(agent.KindInfo, action, "insufficient balance, depositing and retrying...", 0)

	trk, err := tracker.Build(ctx, e.source)
	if err != nil {
		return agent.Result{Err: fmt.Errorf("tracker rebuild before deposit: %w", err)}
	}

	baseAmt := tickmath.RandomAmount(e.rng, cfg.DepositUSD, cfg.DepositUSD, trk.BaseDecimals, trk.Price())
	quoteAmt := tickmath.RandomAmount(e.rng, cfg.DepositUSD, cfg.DepositUSD, trk.QuoteDecimals, tickmath.QuoteTokenUSD(trk.Symbol))

	// One leg failing must not block the other.
	if err := e.client.Deposit(ctx, trk.BaseToken, baseAmt); err != nil {
		e.Record(agent.KindError, action, fmt.Sprintf("recovery deposit %s failed: %v", trk.BaseToken, err), 0)
	} else {
		e.Record(agent.KindInfo, action, fmt.Sprintf("recovery deposited %d %s", baseAmt, trk.BaseToken), 0)
	}
	if err := e.client.Deposit(ctx, trk.QuoteToken, quoteAmt); err != nil {
		e.Record(agent.KindError, action, fmt.Sprintf("recovery deposit %s failed: %v", trk.QuoteToken, err), 0)
	} else {
		e.Record(agent.KindInfo, action, fmt.Sprintf("recovery deposited %d %s", quoteAmt, trk.QuoteToken), 0)
	}

	fresh, err := tracker.Build(ctx, e.source)
	if err != nil {
		return agent.Result{Err: fmt.Errorf("tracker rebuild after deposit: %w", err)}
	}
	e.Record(agent.KindInfo, action, fmt.Sprintf("retrying %s after deposit", action), 0)
	return agent.Execute(ctx, action, e.client, fresh, cfg, e, e.rng)
}

func (e *Engine) setLastAction(a agent.ActionType) {
	e.mu.Lock()
	e.lastAction = a
	e.mu.Unlock()
}

func (e *Engine) incError() {
	e.mu.Lock()
	e.errorCount++
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.ErrorObserved()
	}
}

func (e *Engine) observeResult(action agent.ActionType, res agent.Result) {
	outcome := "success"
	if res.Err != nil {
		outcome = "error"
		e.incError()
	}
	if e.metrics != nil {
		e.metrics.ActionObserved(string(action), outcome)
	}
	if e.archive != nil {
		if err := e.archive.RecordAction(context.Background(), string(action), res.Success, res.Duration.Milliseconds(), res.ErrorText()); err != nil {
			logger.Warnf("Engine: action archive failed: %v", err)
		}
	}
}
