package sim

import "time"

// Options controls the simulated venue. Start from DefaultOptions and
// override fields as needed; the engine clamps RejectRate to [0, 0.25] and
// repairs out-of-range slice bounds.
type Options struct {
	// VenueLatency is the base delay before a slice executes.
	VenueLatency time.Duration
	// LatencyJitter bounds the uniform perturbation added to each slice's
	// delay. Slices carry independent jitter, so they may fire out of order.
	LatencyJitter time.Duration
	// CancelLatency is the delay before a cancellation takes effect.
	CancelLatency time.Duration

	// PartialFill splits accepted orders into multiple slices. When false
	// every order executes as a single slice.
	PartialFill bool
	// MinSlices and MaxSlices bound the uniform slice-count draw.
	MinSlices int
	MaxSlices int
	// MinSliceFrac and MaxSliceFrac bound the fraction of the current
	// leftover taken by each non-final slice.
	MinSliceFrac float64
	MaxSliceFrac float64

	// RejectRate is the probability of an immediate venue-level reject.
	RejectRate float64

	// FeeBps and SlippageBps adjust the execution price, always against
	// the taker.
	FeeBps      float64
	SlippageBps float64

	// RespectMarketHours gates submissions on the market calendar. Has no
	// effect unless a MarketClock is attached to the engine.
	RespectMarketHours bool
}

// DefaultOptions returns the venue defaults.
func DefaultOptions() Options {
	return Options{
		VenueLatency:  180 * time.Millisecond,
		LatencyJitter: 120 * time.Millisecond,
		CancelLatency: 80 * time.Millisecond,
		PartialFill:   true,
		MinSlices:     2,
		MaxSlices:     5,
		MinSliceFrac:  0.10,
		MaxSliceFrac:  0.35,
		RejectRate:    0.01,
		FeeBps:        1,
		SlippageBps:   2,
	}
}

const maxRejectRate = 0.25

func (o Options) normalized() Options {
	def := DefaultOptions()

	if o.VenueLatency < 0 {
		o.VenueLatency = 0
	}
	if o.LatencyJitter < 0 {
		o.LatencyJitter = 0
	}
	if o.CancelLatency < 0 {
		o.CancelLatency = 0
	}

	if o.MinSlices < 1 {
		o.MinSlices = 1
	}
	if o.MaxSlices < o.MinSlices {
		o.MaxSlices = o.MinSlices
	}
	if o.MinSliceFrac <= 0 || o.MinSliceFrac >= 1 {
		o.MinSliceFrac = def.MinSliceFrac
	}
	if o.MaxSliceFrac < o.MinSliceFrac || o.MaxSliceFrac >= 1 {
		o.MaxSliceFrac = def.MaxSliceFrac
	}

	if o.RejectRate < 0 {
		o.RejectRate = 0
	}
	if o.RejectRate > maxRejectRate {
		o.RejectRate = maxRejectRate
	}

	return o
}
