package engine

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"tickbot/internal/agent"
	"tickbot/internal/dex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type stubSource struct {
	mu    sync.Mutex
	state dex.MarketState
}

func (s *stubSource) MarketState(context.Context) (dex.MarketState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateOrders(ctx context.Context, cancelIDs []string, orders []dex.BookOrderSpec, poolSwaps []dex.PoolSwapSpec) (dex.BatchResult, error) {
	args := m.Called(ctx, cancelIDs, orders, poolSwaps)
	return args.Get(0).(dex.BatchResult), args.Error(1)
}
func (m *MockClient) CreateTriggers(ctx context.Context, cancelIDs []string, triggers []dex.TriggerSpec) (dex.BatchResult, error) {
	args := m.Called(ctx, cancelIDs, triggers)
	return args.Get(0).(dex.BatchResult), args.Error(1)
}
func (m *MockClient) CancelOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockClient) CancelTrigger(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *MockClient) UpdateOrder(ctx context.Context, id string, newTick, newAmount int64) (dex.UpdateResult, error) {
	args := m.Called(ctx, id, newTick, newAmount)
	return args.Get(0).(dex.UpdateResult), args.Error(1)
}
func (m *MockClient) QuoteOrder(ctx context.Context, side dex.Side, amount, limitTick int64) (dex.Quote, error) {
	args := m.Called(ctx, side, amount, limitTick)
	return args.Get(0).(dex.Quote), args.Error(1)
}
func (m *MockClient) Deposit(ctx context.Context, token string, amount int64) error {
	return m.Called(ctx, token, amount).Error(0)
}
func (m *MockClient) Withdraw(ctx context.Context, token string, amount int64) error {
	return m.Called(ctx, token, amount).Error(0)
}
func (m *MockClient) AddLiquidity(ctx context.Context, feePips int, tickLower, tickUpper, amount0, amount1 int64) (string, error) {
	args := m.Called(ctx, feePips, tickLower, tickUpper, amount0, amount1)
	return args.String(0), args.Error(1)
}
func (m *MockClient) IncreaseLiquidity(ctx context.Context, positionID string, amount0, amount1 int64) error {
	return m.Called(ctx, positionID, amount0, amount1).Error(0)
}
func (m *MockClient) DecreaseLiquidity(ctx context.Context, positionID string, liquidityDelta int64) error {
	return m.Called(ctx, positionID, liquidityDelta).Error(0)
}
func (m *MockClient) CollectFees(ctx context.Context, positionID string) error {
	return m.Called(ctx, positionID).Error(0)
}

func fundedState() dex.MarketState {
	tick := int64(1000)
	return dex.MarketState{
		MarketID:       "tkb-usdc",
		Symbol:         "TKB/USDC",
		BaseToken:      "tkb",
		QuoteToken:     "usdc",
		CurrentTick:    &tick,
		BaseDecimals:   6,
		QuoteDecimals:  6,
		FeePips:        3000,
		AvailableBase:  500_000_000,
		AvailableQuote: 500_000_000,
	}
}

func testConfig() agent.Config {
	cfg := agent.DefaultConfig()
	cfg.Market = "tkb-usdc"
	cfg.DelayMs = 60_000
	cfg.JitterMs = 0
	return cfg
}

func onlyAction(cfg agent.Config, keep agent.ActionType) agent.Config {
	for _, a := range agent.AllActions {
		cfg.Enabled[a] = a == keep
	}
	return cfg
}

func logText(e *Engine) string {
	var b strings.Builder
	for _, entry := range e.Log(0) {
		b.WriteString(entry.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func TestStateTransitions(t *testing.T) {
	src := &stubSource{state: fundedState()}
	cfg := testConfig()
	cfg.DryRun = true
	e := New(&MockClient{}, src, cfg)

	assert.Equal(t, StateIdle, e.Status().State)
	assert.Error(t, e.Pause())
	assert.Error(t, e.Resume())

	assert.NoError(t, e.Start("tkb-usdc"))
	assert.Equal(t, StateRunning, e.Status().State)
	assert.Error(t, e.Start("tkb-usdc"))

	assert.NoError(t, e.Pause())
	assert.Equal(t, StatePaused, e.Status().State)
	assert.Error(t, e.Pause())

	assert.NoError(t, e.Resume())
	assert.Equal(t, StateRunning, e.Status().State)

	e.Stop()
	assert.Equal(t, StateIdle, e.Status().State)
	assert.Empty(t, e.Status().Market)
	e.Stop()
	assert.Equal(t, StateIdle, e.Status().State)
}

func TestStartRequiresMarket(t *testing.T) {
	src := &stubSource{state: fundedState()}
	e := New(&MockClient{}, src, testConfig())
	assert.Error(t, e.Start(""))
	assert.Equal(t, StateIdle, e.Status().State)
}

func TestStartResetsCountersButKeepsLog(t *testing.T) {
	src := &stubSource{state: fundedState()}
	cfg := testConfig()
	cfg.DryRun = true
	e := New(&MockClient{}, src, cfg)

	e.Record(agent.KindInfo, "", "line from a previous run", 0)
	e.incError()
	assert.Equal(t, uint64(1), e.Status().ErrorCount)

	assert.NoError(t, e.Start("tkb-usdc"))
	st := e.Status()
	assert.Equal(t, uint64(0), st.ErrorCount)
	assert.Contains(t, logText(e), "line from a previous run")
	e.Stop()
}

func TestTickDryRunExecutesNothing(t *testing.T) {
	src := &stubSource{state: fundedState()}
	client := &MockClient{}
	cfg := testConfig()
	cfg.DryRun = true
	e := New(client, src, cfg, WithRand(rand.New(rand.NewSource(1))))

	e.tick(e.Config())

	assert.Contains(t, logText(e), "[dry-run] would execute")
	assert.Equal(t, uint64(0), e.Status().ErrorCount)
	client.AssertNotCalled(t, "CreateOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTickColdStartDeposits(t *testing.T) {
	state := fundedState()
	state.AvailableBase = 0
	state.AvailableQuote = 0
	src := &stubSource{state: state}

	client := &MockClient{}
	client.On("Deposit", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	e := New(client, src, testConfig(), WithRand(rand.New(rand.NewSource(1))))
	e.tick(e.Config())

	assert.Contains(t, logText(e), "no trading balance, performing initial deposit...")
	assert.Equal(t, agent.Deposit, e.Status().LastAction)
	assert.Equal(t, uint64(0), e.Status().ErrorCount)
	client.AssertExpectations(t)
}

func TestTickColdStartDisabledWithoutAutoDeposit(t *testing.T) {
	state := fundedState()
	state.AvailableBase = 0
	state.AvailableQuote = 0
	state.CurrentTick = nil
	src := &stubSource{state: state}

	client := &MockClient{}
	cfg := testConfig()
	cfg.AutoDeposit = false
	cfg = onlyAction(cfg, agent.CreateBuyOrder)
	e := New(client, src, cfg, WithRand(rand.New(rand.NewSource(1))))

	e.tick(e.Config())

	assert.Contains(t, logText(e), "no available actions")
	client.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything)
}

func insufficientResult() dex.BatchResult {
	return dex.BatchResult{Outcomes: []dex.Outcome{{Err: "INSUFFICIENT_BALANCE: usdc short"}}}
}

func okResult() dex.BatchResult {
	return dex.BatchResult{Outcomes: []dex.Outcome{{ID: "order-1"}}}
}

func TestTickInsufficientBalanceRetriesOnceAndSucceeds(t *testing.T) {
	src := &stubSource{state: fundedState()}
	client := &MockClient{}
	client.On("CreateOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(insufficientResult(), nil).Once()
	client.On("Deposit", mock.Anything, "tkb", mock.Anything).Return(nil).Once()
	client.On("Deposit", mock.Anything, "usdc", mock.Anything).Return(nil).Once()
	client.On("CreateOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(okResult(), nil).Once()

	cfg := onlyAction(testConfig(), agent.CreateBuyOrder)
	e := New(client, src, cfg, WithRand(rand.New(rand.NewSource(1))))

	e.tick(e.Config())

	text := logText(e)
	assert.Contains(t, text, "insufficient balance, depositing and retrying...")
	assert.Contains(t, text, "retrying create_buy_order after deposit")
	assert.Equal(t, uint64(0), e.Status().ErrorCount)
	client.AssertExpectations(t)
}

func TestTickInsufficientBalanceRetryFailsOnce(t *testing.T) {
	src := &stubSource{state: fundedState()}
	client := &MockClient{}
	// Both attempts fail; exactly one retry, one error counted.
	client.On("CreateOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(insufficientResult(), nil).Twice()
	client.On("Deposit", mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

	cfg := onlyAction(testConfig(), agent.CreateBuyOrder)
	e := New(client, src, cfg, WithRand(rand.New(rand.NewSource(1))))

	e.tick(e.Config())

	assert.Equal(t, uint64(1), e.Status().ErrorCount)
	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "CreateOrders", 2)
}

func TestTickNoRetryWithoutAutoDeposit(t *testing.T) {
	src := &stubSource{state: fundedState()}
	client := &MockClient{}
	client.On("CreateOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(insufficientResult(), nil).Once()

	cfg := onlyAction(testConfig(), agent.CreateBuyOrder)
	cfg.AutoDeposit = false
	e := New(client, src, cfg, WithRand(rand.New(rand.NewSource(1))))

	e.tick(e.Config())

	assert.Equal(t, uint64(1), e.Status().ErrorCount)
	client.AssertNumberOfCalls(t, "CreateOrders", 1)
	client.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything)
}

func TestTickNonBalanceErrorNotRetried(t *testing.T) {
	src := &stubSource{state: fundedState()}
	client := &MockClient{}
	client.On("CreateOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(dex.BatchResult{Outcomes: []dex.Outcome{{Err: "NOT_FOUND: gone"}}}, nil).Once()

	cfg := onlyAction(testConfig(), agent.CreateBuyOrder)
	e := New(client, src, cfg, WithRand(rand.New(rand.NewSource(1))))

	e.tick(e.Config())

	assert.Equal(t, uint64(1), e.Status().ErrorCount)
	client.AssertNumberOfCalls(t, "CreateOrders", 1)
	client.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelAllOrders(t *testing.T) {
	state := fundedState()
	state.Orders = []dex.Order{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	src := &stubSource{state: state}

	client := &MockClient{}
	client.On("CancelOrder", mock.Anything, "a").Return(nil)
	client.On("CancelOrder", mock.Anything, "b").Return(dex.NewError("NOT_FOUND", "gone"))
	client.On("CancelOrder", mock.Anything, "c").Return(nil)

	e := New(client, src, testConfig())
	n, err := e.CancelAllOrders(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	client.AssertNumberOfCalls(t, "CancelOrder", 3)
}

func TestCancelAllTriggers(t *testing.T) {
	state := fundedState()
	state.Triggers = []dex.Trigger{{ID: "t1"}, {ID: "t2"}}
	src := &stubSource{state: state}

	client := &MockClient{}
	client.On("CancelTrigger", mock.Anything, mock.Anything).Return(nil)

	e := New(client, src, testConfig())
	n, err := e.CancelAllTriggers(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunTickStaleGenerationIsInert(t *testing.T) {
	src := &stubSource{state: fundedState()}
	client := &MockClient{}
	cfg := testConfig()
	cfg.DryRun = true
	e := New(client, src, cfg)

	// Never started: state is idle and the generation never matched.
	e.runTick(99)
	assert.Equal(t, uint64(0), e.Status().TickCount)
	assert.Empty(t, e.Log(0))
}
