package portfolio

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/brokersim/broker"
)

// Position is a net holding in one symbol. Qty is signed: positive long,
// negative short.
type Position struct {
	Symbol    string          `json:"symbol"`
	Qty       decimal.Decimal `json:"qty"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	LastPrice decimal.Decimal `json:"last_price"`
}

// UnrealizedPL is (last − avg) × qty.
func (p Position) UnrealizedPL() decimal.Decimal {
	return p.LastPrice.Sub(p.AvgPrice).Mul(p.Qty)
}

// Summary is a point-in-time account view.
type Summary struct {
	Cash      decimal.Decimal `json:"cash"`
	Equity    decimal.Decimal `json:"equity"`
	Realized  decimal.Decimal `json:"realized_pl"`
	Positions int             `json:"positions"`
}

// Book tracks cash, positions and realized PnL from execution reports, the
// way a paper account would. Fees and slippage are already embedded in the
// reported prices, so cash moves by exactly price × quantity. Money math is
// decimal so repeated fills don't accumulate float error.
//
// Reports carry only cumulative fill state, so the book must see Track(order)
// before the order's reports arrive; it derives each fill's price from the
// change in cumulative notional.
type Book struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	realized  decimal.Decimal
	orders    map[string]*trackedOrder
	positions map[string]*Position
}

type trackedOrder struct {
	order    broker.Order
	cumQty   float64
	notional float64
}

func NewBook(startingCash float64) *Book {
	return &Book{
		cash:      decimal.NewFromFloat(startingCash),
		orders:    make(map[string]*trackedOrder),
		positions: make(map[string]*Position),
	}
}

// Track registers a submitted order so its reports can be applied later.
// Re-tracking a known id is a no-op.
func (b *Book) Track(o broker.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[o.ID]; ok {
		return
	}
	b.orders[o.ID] = &trackedOrder{order: o}
}

// ApplyExec folds one execution report into the book.
func (b *Book) ApplyExec(r broker.ExecReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	to, ok := b.orders[r.OrderID]
	if !ok {
		return fmt.Errorf("apply exec: order %q not tracked", r.OrderID)
	}

	if r.FillQty > 0 {
		notional := r.AvgPx * r.CumQty
		fillPx := (notional - to.notional) / r.FillQty
		to.notional = notional
		to.cumQty = r.CumQty

		b.applyFill(r.Symbol, to.order.Side, r.FillQty, fillPx)
	}

	if r.Status.Terminal() {
		delete(b.orders, r.OrderID)
	}
	return nil
}

func (b *Book) applyFill(symbol string, side broker.Side, qty, px float64) {
	dQty := decimal.NewFromFloat(qty)
	if side == broker.Sell {
		dQty = dQty.Neg()
	}
	dPx := decimal.NewFromFloat(px)

	b.cash = b.cash.Sub(dQty.Mul(dPx))

	p, ok := b.positions[symbol]
	if !ok {
		b.positions[symbol] = &Position{
			Symbol:    symbol,
			Qty:       dQty,
			AvgPrice:  dPx,
			LastPrice: dPx,
		}
		return
	}

	newQty := p.Qty.Add(dQty)
	switch {
	case p.Qty.Sign() == dQty.Sign():
		// Increasing: average price weighted by absolute size.
		totalCost := p.AvgPrice.Mul(p.Qty.Abs()).Add(dPx.Mul(dQty.Abs()))
		p.Qty = newQty
		p.AvgPrice = totalCost.Div(newQty.Abs())

	default:
		// Reducing, closing or flipping.
		closed := decimal.Min(p.Qty.Abs(), dQty.Abs())
		pnl := dPx.Sub(p.AvgPrice).Mul(closed)
		if p.Qty.Sign() < 0 {
			pnl = pnl.Neg()
		}
		b.realized = b.realized.Add(pnl)

		p.Qty = newQty
		if newQty.IsZero() {
			delete(b.positions, symbol)
			return
		}
		if newQty.Sign() == dQty.Sign() {
			// Flipped through zero: the residue opened at this fill's price.
			p.AvgPrice = dPx
		}
	}
	p.LastPrice = dPx
}

// MarkPrice updates the mark used for a symbol's unrealized PnL and equity.
func (b *Book) MarkPrice(symbol string, px float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.positions[symbol]; ok {
		p.LastPrice = decimal.NewFromFloat(px)
	}
}

// Position returns the current holding for symbol.
func (b *Book) Position(symbol string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns all holdings sorted by symbol.
func (b *Book) Positions() []Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Account returns cash, marked equity and realized PnL.
func (b *Book) Account() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for _, p := range b.positions {
		equity = equity.Add(p.Qty.Mul(p.LastPrice))
	}
	return Summary{
		Cash:      b.cash,
		Equity:    equity,
		Realized:  b.realized,
		Positions: len(b.positions),
	}
}
