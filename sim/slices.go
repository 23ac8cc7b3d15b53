package sim

import "math/rand"

// slicePlan splits total into the quantities the fill scheduler will execute.
//
// Each non-final slice takes a uniform fraction of the current leftover and
// the final slice takes whatever remains, so the plan sums to total exactly
// regardless of the slice count drawn.
func slicePlan(rng *rand.Rand, total float64, opts Options) []float64 {
	if !opts.PartialFill {
		return []float64{total}
	}

	n := opts.MinSlices
	if opts.MaxSlices > opts.MinSlices {
		n += rng.Intn(opts.MaxSlices - opts.MinSlices + 1)
	}

	qtys := make([]float64, 0, n)
	left := total
	for i := 0; i < n-1; i++ {
		frac := opts.MinSliceFrac + rng.Float64()*(opts.MaxSliceFrac-opts.MinSliceFrac)
		q := left * frac
		qtys = append(qtys, q)
		left -= q
	}
	return append(qtys, left)
}
