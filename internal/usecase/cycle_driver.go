package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"trend-trader/internal/domain"
	"trend-trader/internal/infrastructure/indicators"
)

// ErrPersistState is returned by RunOnce when the mutated position state could
// not be saved. The driver keeps the new state in memory and retries the save
// at the start of the next cycle.
var ErrPersistState = errors.New("persist position state")

// CycleListener is called after every completed cycle.
type CycleListener func(CycleResult)

// CycleDriver fetches candles, runs the strategy engine and commits the
// resulting state. Cycles never overlap.
type CycleDriver struct {
	engine   *StrategyEngine
	market   domain.MarketDataProvider
	store    domain.PositionStore
	recorder domain.TradeRecorder
	notifier *NotificationService
	metrics  Metrics

	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	runMu sync.Mutex

	mu        sync.RWMutex
	state     domain.PositionState
	loaded    bool
	dirty     bool
	last      *CycleResult
	listeners []CycleListener
}

type DriverOption func(*CycleDriver)

// WithRecorder sets where closed trades are written.
func WithRecorder(r domain.TradeRecorder) DriverOption {
	return func(d *CycleDriver) { d.recorder = r }
}

func WithNotifications(n *NotificationService) DriverOption {
	return func(d *CycleDriver) { d.notifier = n }
}

func WithMetrics(m Metrics) DriverOption {
	return func(d *CycleDriver) { d.metrics = m }
}

// WithCheckInterval sets how often Run triggers a cycle.
func WithCheckInterval(interval time.Duration) DriverOption {
	return func(d *CycleDriver) { d.interval = interval }
}

// WithCycleTimeout bounds the exchange calls of a single cycle.
func WithCycleTimeout(timeout time.Duration) DriverOption {
	return func(d *CycleDriver) { d.timeout = timeout }
}

func WithClock(now func() time.Time) DriverOption {
	return func(d *CycleDriver) { d.now = now }
}

func NewCycleDriver(engine *StrategyEngine, market domain.MarketDataProvider, store domain.PositionStore, opts ...DriverOption) *CycleDriver {
	d := &CycleDriver{
		engine:   engine,
		market:   market,
		store:    store,
		metrics:  nopMetrics{},
		interval: 10 * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = NewNotificationService(engine.Params().Symbol)
	}
	return d
}

// Load reads the persisted state and validates it against the engine mode.
func (d *CycleDriver) Load(ctx context.Context) error {
	p := d.engine.Params()
	state, err := d.store.Load(ctx, p.Symbol)
	if err != nil {
		return fmt.Errorf("load position state: %w", err)
	}
	if state.Symbol == "" {
		state.Symbol = p.Symbol
	}
	if err := state.Validate(p.Mode); err != nil {
		return fmt.Errorf("load position state: %w", err)
	}

	d.mu.Lock()
	d.state = state
	d.loaded = true
	d.dirty = false
	d.mu.Unlock()

	log.Info().
		Str("symbol", state.Symbol).
		Bool("open", state.IsOpen).
		Str("side", string(state.Side)).
		Str("entry", state.EntryPrice.String()).
		Msg("position state loaded")
	return nil
}

// RunOnce executes a single cycle. The returned error is non-nil only when
// the state could not be loaded or persisted; exchange problems are reported
// through the result action.
func (d *CycleDriver) RunOnce(ctx context.Context) (CycleResult, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	d.mu.RLock()
	loaded, dirty, state := d.loaded, d.dirty, d.state
	d.mu.RUnlock()

	if !loaded {
		if err := d.Load(ctx); err != nil {
			return CycleResult{}, err
		}
		state = d.State()
	}

	start := d.now()
	if dirty {
		if err := d.persist(ctx, state); err != nil {
			return CycleResult{Time: start, State: state}, err
		}
	}

	p := d.engine.Params()
	candles, err := d.market.FetchCandles(ctx, p.Symbol, p.Interval, p.Lookback)
	if err != nil {
		log.Warn().Err(err).Str("symbol", p.Symbol).Msg("candle fetch failed, skipping cycle")
		d.metrics.RecordError("market_data")
		res := CycleResult{Action: ActionSkippedNoData, Reason: err.Error(), Time: start, State: state}
		d.finish(ctx, res, start)
		return res, nil
	}
	snap, err := indicators.BuildSnapshot(candles, p.Periods)
	if err != nil {
		log.Warn().Err(err).Int("candles", len(candles)).Msg("indicators unavailable, skipping cycle")
		res := CycleResult{Action: ActionSkippedNoData, Reason: err.Error(), Time: start, State: state}
		d.finish(ctx, res, start)
		return res, nil
	}
	d.notifier.ObserveTrend(snap)

	res := d.engine.Step(ctx, snap, state, start)

	var persistErr error
	if res.Mutated {
		d.mu.Lock()
		d.state = res.State
		d.mu.Unlock()
		persistErr = d.persist(ctx, res.State)
	}

	if res.Trade != nil {
		d.metrics.RecordTrade(*res.Trade)
		if d.recorder != nil {
			if err := d.recorder.RecordClosedTrade(ctx, *res.Trade); err != nil {
				log.Error().Err(err).Str("tradeId", res.Trade.ID).Msg("failed to record closed trade")
				d.metrics.RecordError("record_trade")
			}
		}
	}
	if res.Action == ActionOrderFailed {
		d.metrics.RecordError("order")
	}

	d.finish(ctx, res, start)
	return res, persistErr
}

func (d *CycleDriver) persist(ctx context.Context, state domain.PositionState) error {
	if err := d.store.Save(ctx, state); err != nil {
		d.mu.Lock()
		d.dirty = true
		d.mu.Unlock()

		d.metrics.RecordError("persist_state")
		log.Error().Err(err).Str("symbol", state.Symbol).Msg("failed to persist position state")
		d.notifier.PersistenceFailed(ctx, err)
		return fmt.Errorf("%w: %w", ErrPersistState, err)
	}

	d.mu.Lock()
	d.dirty = false
	d.mu.Unlock()
	return nil
}

func (d *CycleDriver) finish(ctx context.Context, res CycleResult, start time.Time) {
	d.metrics.ObserveCycle(res.Action, d.now().Sub(start))
	d.metrics.SetPosition(res.State, res.Snapshot.Price.InexactFloat64())
	d.notifier.CycleCompleted(ctx, res)

	d.mu.Lock()
	d.last = &res
	listeners := append([]CycleListener(nil), d.listeners...)
	d.mu.Unlock()

	log.Debug().
		Str("action", string(res.Action)).
		Str("reason", res.Reason).
		Str("price", res.Snapshot.Price.String()).
		Bool("open", res.State.IsOpen).
		Msg("cycle completed")

	for _, fn := range listeners {
		fn(res)
	}
}

// Run loads the state, runs a cycle immediately and then one per check
// interval until ctx is done. A cycle in flight is not cancelled by ctx.
func (d *CycleDriver) Run(ctx context.Context) error {
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if !loaded {
		if err := d.Load(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cycle driver stopped")
			return nil
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

func (d *CycleDriver) runCycle(ctx context.Context) {
	if _, err := d.RunOnce(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Msg("cycle failed")
	}
}

// State returns the in-memory position state.
func (d *CycleDriver) State() domain.PositionState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Dirty reports whether the in-memory state has not been persisted yet.
func (d *CycleDriver) Dirty() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dirty
}

// LastResult returns the result of the most recent cycle.
func (d *CycleDriver) LastResult() (CycleResult, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return CycleResult{}, false
	}
	return *d.last, true
}

func (d *CycleDriver) Params() StrategyParams { return d.engine.Params() }

// Subscribe registers fn to receive every completed cycle.
func (d *CycleDriver) Subscribe(fn CycleListener) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}
