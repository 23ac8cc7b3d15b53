package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/brokersim/broker"
)

// Engine is a simulated execution venue. It implements broker.Gateway:
// accepted orders are split into slices that execute after a randomized
// latency, producing PARTIAL/FILLED reports; gating failures and unfillable
// prices produce REJECTED reports; cancellations resolve to CANCELLED after
// the cancel latency.
//
// All registry mutations -- submit, cancel, slice fires, cleanup -- are
// serialized under a single mutex, and reports are handed to the callback by
// one dispatcher goroutine in the order the transitions were decided. That
// ordering is what guarantees no report ever follows a terminal report for
// the same order id.
type Engine struct {
	mu   sync.Mutex
	cond *sync.Cond

	opts   Options
	price  broker.PriceFn
	onExec broker.ExecFn
	clock  broker.MarketClock
	sched  Scheduler
	rng    *rand.Rand

	seen     map[string]struct{}
	inflight map[string]*liveOrder

	queue  []broker.ExecReport
	closed bool
	done   chan struct{}
}

// liveOrder is the mutable per-order state, owned exclusively by the engine
// and always accessed under the engine mutex.
type liveOrder struct {
	order     broker.Order
	remaining float64
	filled    float64
	notional  float64 // Σ price×qty across fills, for VWAP
	pending   int     // slice timers not yet fired
	cancelled bool
	timers    []Timer
}

func (lo *liveOrder) avgPx() float64 {
	if lo.filled <= 0 {
		return 0
	}
	return lo.notional / lo.filled
}

// NewEngine returns a running engine. price is consulted once per slice fire;
// onExec receives every report. Close releases the dispatcher goroutine.
func NewEngine(opts Options, price broker.PriceFn, onExec broker.ExecFn) *Engine {
	e := &Engine{
		opts:     opts.normalized(),
		price:    price,
		onExec:   onExec,
		sched:    systemScheduler{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		seen:     make(map[string]struct{}),
		inflight: make(map[string]*liveOrder),
		done:     make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.dispatch()
	return e
}

// SetMarketClock attaches a market-hours calendar. Gating only applies when
// Options.RespectMarketHours is set. Call before the first Submit.
func (e *Engine) SetMarketClock(c broker.MarketClock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = c
}

// SetScheduler replaces the timer source. Call before the first Submit.
func (e *Engine) SetScheduler(s Scheduler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched = s
}

// SetRand replaces the randomness source so slice counts, splits, jitter and
// reject draws reproduce exactly. Call before the first Submit.
func (e *Engine) SetRand(rng *rand.Rand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = rng
}

// Inflight returns the number of orders that have not reached a terminal
// state yet.
func (e *Engine) Inflight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}

// Submit validates and gates the order. A duplicate id is a silent no-op.
// Gating failures surface as a single REJECTED report; accepted orders are
// handed to the fill scheduler and resolve asynchronously.
func (e *Engine) Submit(o broker.Order) error {
	if o.ID == "" {
		return fmt.Errorf("submit: order id is required")
	}
	if o.Qty <= 0 {
		return fmt.Errorf("submit %q: qty must be positive, got %v", o.ID, o.Qty)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("submit %q: gateway is closed", o.ID)
	}
	if _, dup := e.seen[o.ID]; dup {
		return nil
	}
	e.seen[o.ID] = struct{}{}

	now := e.sched.Now()

	if e.opts.RespectMarketHours && e.clock != nil && !e.clock.IsOpen(now) {
		slog.Debug("order rejected: market closed", "id", o.ID, "symbol", o.Symbol)
		e.emitLocked(broker.ExecReport{
			OrderID: o.ID,
			Symbol:  o.Symbol,
			Status:  broker.Rejected,
			Time:    now,
		})
		return nil
	}

	if e.opts.RejectRate > 0 && e.rng.Float64() < e.opts.RejectRate {
		slog.Debug("order rejected: venue reject", "id", o.ID, "symbol", o.Symbol)
		e.emitLocked(broker.ExecReport{
			OrderID: o.ID,
			Symbol:  o.Symbol,
			Status:  broker.Rejected,
			Time:    now,
		})
		return nil
	}

	lo := &liveOrder{order: o, remaining: o.Qty}
	e.inflight[o.ID] = lo
	e.scheduleSlicesLocked(lo)

	slog.Debug("order accepted", "id", o.ID, "symbol", o.Symbol,
		"side", o.Side, "qty", o.Qty, "slices", lo.pending)
	return nil
}

// Cancel requests cancellation of a live order. The CANCELLED report is
// emitted after the cancel latency; slices firing in between self-skip. Fills
// that already executed are not retracted.
func (e *Engine) Cancel(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lo, ok := e.inflight[id]
	if !ok || lo.cancelled || e.closed {
		return
	}
	lo.cancelled = true
	e.sched.AfterFunc(e.opts.CancelLatency, func() { e.finishCancel(id) })
	slog.Debug("cancel requested", "id", id)
}

// Close stops all pending timers, drops live orders without emitting further
// reports and waits for queued reports to be delivered.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for id := range e.inflight {
		e.cleanupLocked(id)
	}
	e.cond.Broadcast()
	e.mu.Unlock()

	<-e.done
	return nil
}

// scheduleSlicesLocked plans the slices for lo's remaining quantity and arms
// one timer per slice, each with independent jitter.
func (e *Engine) scheduleSlicesLocked(lo *liveOrder) {
	qtys := slicePlan(e.rng, lo.remaining, e.opts)
	lo.pending = len(qtys)
	for _, q := range qtys {
		q := q
		id := lo.order.ID
		t := e.sched.AfterFunc(e.sliceDelayLocked(), func() { e.fireSlice(id, q) })
		lo.timers = append(lo.timers, t)
	}
}

func (e *Engine) sliceDelayLocked() time.Duration {
	d := e.opts.VenueLatency
	if j := e.opts.LatencyJitter; j > 0 {
		d += time.Duration((e.rng.Float64()*2 - 1) * float64(j))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// fireSlice executes one scheduled slice. Terminal status is derived strictly
// from the remaining quantity, never from slice order: slices carry
// independent jitter and may fire in any order.
func (e *Engine) fireSlice(id string, qty float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lo, ok := e.inflight[id]
	if !ok || lo.cancelled {
		return
	}
	lo.pending--

	now := e.sched.Now()

	px := e.price(lo.order.Symbol)
	if px <= 0 || math.IsNaN(px) {
		slog.Debug("order rejected: no price", "id", id, "symbol", lo.order.Symbol)
		e.rejectLocked(lo, now)
		return
	}

	execPx := adjustBps(px, lo.order.Side, e.opts.SlippageBps)
	if lim := lo.order.Limit; lim != nil {
		if (lo.order.Side == broker.Buy && execPx > *lim) ||
			(lo.order.Side == broker.Sell && execPx < *lim) {
			slog.Debug("order rejected: limit unfillable", "id", id,
				"limit", *lim, "px", execPx)
			e.rejectLocked(lo, now)
			return
		}
	}
	execPx = adjustBps(execPx, lo.order.Side, e.opts.FeeBps)
	if lim := lo.order.Limit; lim != nil {
		// The fee never turns a fillable price into a limit violation.
		if lo.order.Side == broker.Buy && execPx > *lim {
			execPx = *lim
		}
		if lo.order.Side == broker.Sell && execPx < *lim {
			execPx = *lim
		}
	}

	// The last pending slice sweeps the whole remainder so quantity is
	// conserved exactly even when out-of-order float subtraction leaves
	// residue behind.
	exec := qty
	if lo.pending == 0 || exec > lo.remaining {
		exec = lo.remaining
	}

	lo.remaining -= exec
	lo.filled += exec
	lo.notional += execPx * exec

	status := broker.Partial
	if lo.remaining == 0 {
		status = broker.Filled
		e.cleanupLocked(id)
	}

	e.emitLocked(broker.ExecReport{
		OrderID: id,
		Symbol:  lo.order.Symbol,
		FillQty: exec,
		CumQty:  lo.filled,
		AvgPx:   lo.avgPx(),
		Status:  status,
		Time:    now,
	})
}

// rejectLocked ends the order with a REJECTED report. Earlier slices may
// already have produced partial fills; those stand, reflected in CumQty.
func (e *Engine) rejectLocked(lo *liveOrder, now time.Time) {
	e.cleanupLocked(lo.order.ID)
	e.emitLocked(broker.ExecReport{
		OrderID: lo.order.ID,
		Symbol:  lo.order.Symbol,
		CumQty:  lo.filled,
		AvgPx:   lo.avgPx(),
		Status:  broker.Rejected,
		Time:    now,
	})
}

func (e *Engine) finishCancel(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lo, ok := e.inflight[id]
	if !ok {
		return
	}
	e.cleanupLocked(id)
	e.emitLocked(broker.ExecReport{
		OrderID: id,
		Symbol:  lo.order.Symbol,
		CumQty:  lo.filled,
		AvgPx:   lo.avgPx(),
		Status:  broker.Cancelled,
		Time:    e.sched.Now(),
	})
}

// cleanupLocked stops every pending timer for id and removes the live entry.
// Safe to call when the entry is already gone.
func (e *Engine) cleanupLocked(id string) {
	lo, ok := e.inflight[id]
	if !ok {
		return
	}
	for _, t := range lo.timers {
		t.Stop()
	}
	delete(e.inflight, id)
}

func (e *Engine) emitLocked(r broker.ExecReport) {
	e.queue = append(e.queue, r)
	e.cond.Signal()
}

// dispatch delivers queued reports one at a time, outside the engine mutex so
// the callback may safely call back into the gateway.
func (e *Engine) dispatch() {
	defer close(e.done)

	e.mu.Lock()
	for {
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 && e.closed {
			e.mu.Unlock()
			return
		}
		r := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.onExec(r)

		e.mu.Lock()
	}
}

// adjustBps moves px by bps basis points against the taker: up for buys,
// down for sells.
func adjustBps(px float64, side broker.Side, bps float64) float64 {
	adj := px * bps / 10000
	if side == broker.Buy {
		return px + adj
	}
	return px - adj
}
