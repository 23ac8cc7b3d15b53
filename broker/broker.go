package broker

import "time"

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Status is the lifecycle state carried by an execution report.
// FILLED, REJECTED and CANCELLED are terminal: once one of them has been
// reported for an order id, no further report is ever emitted for that id.
type Status string

const (
	Partial   Status = "PARTIAL"
	Filled    Status = "FILLED"
	Rejected  Status = "REJECTED"
	Cancelled Status = "CANCELLED"
)

// Terminal reports whether s ends an order's lifecycle.
func (s Status) Terminal() bool {
	return s == Filled || s == Rejected || s == Cancelled
}

// Order is a caller-supplied trade request. It is immutable once submitted.
type Order struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Qty         float64   `json:"qty"`
	Limit       *float64  `json:"limit,omitempty"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// ExecReport is emitted once per state transition of an order.
//
// FillQty is the quantity executed by this report alone; CumQty and AvgPx are
// cumulative across all fills so far. Reports for a single order are not
// guaranteed to arrive in slice order, so consumers must reconstruct state
// from the cumulative fields only.
type ExecReport struct {
	OrderID string    `json:"order_id"`
	Symbol  string    `json:"symbol"`
	FillQty float64   `json:"fill_qty"`
	CumQty  float64   `json:"cum_qty"`
	AvgPx   float64   `json:"avg_px"`
	Status  Status    `json:"status"`
	Time    time.Time `json:"time"`
}

// PriceFn returns the last tradable price for a symbol. A zero or negative
// value means no price is available. It must tolerate concurrent calls.
type PriceFn func(symbol string) float64

// MarketClock reports whether the market is open at a given time.
type MarketClock interface {
	IsOpen(t time.Time) bool
}

// ExecFn receives execution reports. It is invoked exactly once per state
// transition, never concurrently with itself.
type ExecFn func(ExecReport)

// Gateway accepts order submissions and cancellations. Both calls return
// immediately; outcomes surface asynchronously through the gateway's report
// callback.
//
// Submit returns an error only for programmer mistakes (empty id,
// non-positive quantity). Business failures -- market closed, venue reject,
// unfillable limit, missing price -- are REJECTED reports, not errors.
// Resubmitting an already-seen id is a silent no-op.
//
// Cancel is best-effort: fills whose timers already fired are kept, and the
// CANCELLED report arrives after the configured cancel latency. Cancelling an
// unknown or finished id is a no-op.
type Gateway interface {
	Submit(o Order) error
	Cancel(id string)
}
