package market

import (
	"errors"
	"sync"
	"time"

	"github.com/rustyeddy/brokersim/broker"
)

// Quote is the last observed price for a symbol.
type Quote struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// PriceStore is a concurrency-safe last-price cache. Slices belonging to
// different orders read it simultaneously while a feed updates it.
type PriceStore struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewPriceStore() *PriceStore {
	return &PriceStore{quotes: make(map[string]Quote)}
}

func (ps *PriceStore) Set(symbol string, price float64, t time.Time) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.quotes[symbol] = Quote{Symbol: symbol, Price: price, Time: t}
}

func (ps *PriceStore) Get(symbol string) (Quote, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	q, ok := ps.quotes[symbol]
	if !ok {
		return Quote{}, errors.New("price not found")
	}
	return q, nil
}

// Last returns the last price for symbol, or zero when none is known. Zero
// signals "no price" to the execution gateway.
func (ps *PriceStore) Last(symbol string) float64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.quotes[symbol].Price
}

// PriceFn adapts the store to the gateway's oracle interface.
func (ps *PriceStore) PriceFn() broker.PriceFn {
	return ps.Last
}

// Symbols returns the symbols with a known price.
func (ps *PriceStore) Symbols() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]string, 0, len(ps.quotes))
	for s := range ps.quotes {
		out = append(out, s)
	}
	return out
}
