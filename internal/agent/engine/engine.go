// Package engine drives the autonomous trading agent: a timer-paced loop
// that snapshots account state, picks a legal action by weight, executes it
// against the exchange, and recovers from balance failures by depositing and
// retrying once. Exactly one tick is in flight at any time; the next tick is
// scheduled only from the completion of the previous one.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"tickbot/internal/agent"
	"tickbot/internal/dex"
	"tickbot/internal/logger"
)

// State of the engine's run loop.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateStopping State = "stopping"
)

// Archive receives a best-effort persistent copy of the activity stream. A
// failing archive never fails a tick.
type Archive interface {
	AppendLog(ctx context.Context, e LogEntry) error
	RecordAction(ctx context.Context, action string, success bool, durationMs int64, detail string) error
}

// Metrics receives engine counters; implemented by the monitoring package.
type Metrics interface {
	TickObserved()
	ErrorObserved()
	ActionObserved(action, outcome string)
	StateChanged(state string)
}

// Engine owns the run state, counters, and log ring for one market at a
// time. All mutation happens inside the command methods and the tick path.
type Engine struct {
	client dex.Client
	source dex.StateSource

	mu         sync.Mutex
	cfg        agent.Config
	state      State
	market     string
	tickCount  uint64
	errorCount uint64
	lastAction agent.ActionType

	// gen invalidates pending timers: every cancel/reschedule bumps it, and
	// a firing timer whose generation no longer matches is a no-op.
	gen   uint64
	timer *time.Timer

	// rng feeds action parameter generation (single tick in flight, so no
	// lock needed); jitterRng feeds scheduling under mu.
	rng       *rand.Rand
	jitterRng *rand.Rand

	ring    *logRing
	archive Archive
	metrics Metrics
}

// Option configures optional engine collaborators.
type Option func(*Engine)

func WithArchive(a Archive) Option { return func(e *Engine) { e.archive = a } }
func WithMetrics(m Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithRand injects a seedable source for deterministic tests.
func WithRand(rng *rand.Rand) Option { return func(e *Engine) { e.rng = rng } }

func New(client dex.Client, source dex.StateSource, cfg agent.Config, opts ...Option) *Engine {
	e := &Engine{
		client:    client,
		source:    source,
		cfg:       cfg,
		state:     StateIdle,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		jitterRng: rand.New(rand.NewSource(time.Now().UnixNano() + 1)),
		ring:      newLogRing(cfg.LogCapacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Record implements agent.Recorder: ring first, then best-effort archive and
// process log.
func (e *Engine) Record(kind agent.LogKind, action agent.ActionType, text string, duration time.Duration) {
	entry := e.ring.append(kind, action, text, duration)
	if e.archive != nil {
		if err := e.archive.AppendLog(context.Background(), entry); err != nil {
			logger.Warnf("Engine: log archive append failed: %v", err)
		}
	}
	switch kind {
	case agent.KindError:
		logger.Warnf("agent[%s] %s: %s", action, kind, text)
	default:
		logger.Debugf("agent[%s] %s: %s", action, kind, text)
	}
}

// Start binds a market and begins ticking. Only legal from idle; counters
// reset, the log ring is kept (cleared only via ClearLog).
func (e *Engine) Start(market string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return fmt.Errorf("cannot start from state %q", e.state)
	}
	if market == "" {
		return fmt.Errorf("market required")
	}
	e.market = market
	e.tickCount = 0
	e.errorCount = 0
	e.lastAction = ""
	e.setStateLocked(StateRunning)
	e.Record(agent.KindInfo, "", fmt.Sprintf("agent started on %s", market), 0)
	logger.Infof("Engine: started market=%s", market)
	e.scheduleLocked(0)
	return nil
}

// Pause cancels the pending tick; no tick fires while paused.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return fmt.Errorf("cannot pause from state %q", e.state)
	}
	e.cancelTimerLocked()
	e.setStateLocked(StatePaused)
	e.Record(agent.KindInfo, "", "agent paused", 0)
	return nil
}

// Resume re-enters running and reschedules. Counters are untouched.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return fmt.Errorf("cannot resume from state %q", e.state)
	}
	e.setStateLocked(StateRunning)
	e.Record(agent.KindInfo, "", "agent resumed", 0)
	e.scheduleLocked(e.delayLocked())
	return nil
}

// Stop cancels any pending tick, unbinds the market, and returns to idle.
// Idempotent from every state. An in-flight tick's exchange calls are
// allowed to finish; their results land in the log of a now-idle engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle {
		return
	}
	e.cancelTimerLocked()
	e.setStateLocked(StateStopping)
	e.Record(agent.KindInfo, "", fmt.Sprintf("agent stopped on %s", e.market), 0)
	logger.Infof("Engine: stopped market=%s ticks=%d errors=%d", e.market, e.tickCount, e.errorCount)
	e.market = ""
	e.setStateLocked(StateIdle)
}

func (e *Engine) setStateLocked(s State) {
	e.state = s
	if e.metrics != nil {
		e.metrics.StateChanged(string(s))
	}
}

func (e *Engine) cancelTimerLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) delayLocked() time.Duration {
	d := time.Duration(e.cfg.DelayMs) * time.Millisecond
	if e.cfg.JitterMs > 0 {
		d += time.Duration(e.jitterRng.Int63n(int64(e.cfg.JitterMs)+1)) * time.Millisecond
	}
	return d
}

func (e *Engine) scheduleLocked(d time.Duration) {
	if e.state != StateRunning {
		return
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(d, func() { e.runTick(gen) })
}

// Status is a point-in-time view for the HTTP surface and tests.
type Status struct {
	State      State            `json:"state"`
	Market     string           `json:"market,omitempty"`
	TickCount  uint64           `json:"tick_count"`
	ErrorCount uint64           `json:"error_count"`
	LastAction agent.ActionType `json:"last_action,omitempty"`
	LogLength  int              `json:"log_length"`
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:      e.state,
		Market:     e.market,
		TickCount:  e.tickCount,
		ErrorCount: e.errorCount,
		LastAction: e.lastAction,
		LogLength:  e.ring.len(),
	}
}

// Log returns up to limit of the most recent entries in original order.
func (e *Engine) Log(limit int) []LogEntry {
	return e.ring.snapshot(limit)
}

// ClearLog empties the ring; the persistent archive is untouched.
func (e *Engine) ClearLog() {
	e.ring.clear()
}

// Config returns a copy of the active policy.
func (e *Engine) Config() agent.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetWeights swaps the per-action weight table; applied from the next tick.
// Used by the profile registry's change listener.
func (e *Engine) SetWeights(weights map[agent.ActionType]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	merged := make(map[agent.ActionType]float64, len(weights))
	for k, v := range weights {
		merged[k] = v
	}
	e.cfg.Weights = merged
	e.Record(agent.KindInfo, "", fmt.Sprintf("selection weights updated (%d entries)", len(merged)), 0)
}

// SetEnabled swaps the per-action enable table; applied from the next tick.
func (e *Engine) SetEnabled(enabled map[agent.ActionType]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	merged := make(map[agent.ActionType]bool, len(enabled))
	for k, v := range enabled {
		merged[k] = v
	}
	e.cfg.Enabled = merged
}
