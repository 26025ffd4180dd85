package engine

import (
	"context"
	"fmt"

	"tickbot/internal/agent"
)

// CancelAllOrders is the manual kill switch for the book: it bypasses the
// scheduler and cancels every open order sequentially. A failure on one
// order is logged and does not abort the rest. Returns how many were
// cancelled.
func (e *Engine) CancelAllOrders(ctx context.Context) (int, error) {
	st, err := e.source.MarketState(ctx)
	if err != nil {
		return 0, fmt.Errorf("market state: %w", err)
	}
	e.Record(agent.KindInfo, agent.CancelOrder, fmt.Sprintf("cancelling all %d open orders", len(st.Orders)), 0)
	cancelled := 0
	for _, ord := range st.Orders {
		if err := e.client.CancelOrder(ctx, ord.ID); err != nil {
			e.Record(agent.KindError, agent.CancelOrder, fmt.Sprintf("cancel order %s failed: %v", ord.ID, err), 0)
			continue
		}
		e.Record(agent.KindSuccess, agent.CancelOrder, fmt.Sprintf("order %s cancelled", ord.ID), 0)
		cancelled++
	}
	return cancelled, nil
}

// CancelAllTriggers mirrors CancelAllOrders for the trigger book.
func (e *Engine) CancelAllTriggers(ctx context.Context) (int, error) {
	st, err := e.source.MarketState(ctx)
	if err != nil {
		return 0, fmt.Errorf("market state: %w", err)
	}
	e.Record(agent.KindInfo, agent.CancelTrigger, fmt.Sprintf("disarming all %d triggers", len(st.Triggers)), 0)
	cancelled := 0
	for _, trg := range st.Triggers {
		if err := e.client.CancelTrigger(ctx, trg.ID); err != nil {
			e.Record(agent.KindError, agent.CancelTrigger, fmt.Sprintf("cancel trigger %s failed: %v", trg.ID, err), 0)
			continue
		}
		e.Record(agent.KindSuccess, agent.CancelTrigger, fmt.Sprintf("trigger %s disarmed", trg.ID), 0)
		cancelled++
	}
	return cancelled, nil
}
