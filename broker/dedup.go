package broker

import "sync"

// Dedup is a Gateway decorator that drops duplicate submissions by client
// order id before they reach the wrapped gateway. Useful when composing
// layers that may retry submits; Cancel passes through untouched.
type Dedup struct {
	mu   sync.Mutex
	next Gateway
	seen map[string]struct{}
}

func NewDedup(next Gateway) *Dedup {
	return &Dedup{
		next: next,
		seen: make(map[string]struct{}),
	}
}

func (d *Dedup) Submit(o Order) error {
	d.mu.Lock()
	if _, dup := d.seen[o.ID]; dup {
		d.mu.Unlock()
		return nil
	}
	d.seen[o.ID] = struct{}{}
	d.mu.Unlock()

	err := d.next.Submit(o)
	if err != nil {
		// A rejected submission never reached the venue; let the caller
		// fix the order and retry with the same id.
		d.mu.Lock()
		delete(d.seen, o.ID)
		d.mu.Unlock()
	}
	return err
}

func (d *Dedup) Cancel(id string) {
	d.next.Cancel(id)
}
