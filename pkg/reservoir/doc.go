// Package reservoir implements a fixed-capacity weighted reservoir
// over an unbounded arrival stream.
//
// A [Reservoir] retains at most K items out of everything it has ever
// seen, favoring recent arrivals by a tunable power-law exponent
// alpha. Two ingestion operations absorb a batch of arrivals:
//
//	r := reservoir.New(100, 1.5, rng.NewSource(seed))
//	r.KeepNAppend(50)   // survivors keep their slot positions, new
//	                    // admissions are appended after them
//	r.RemoveNInject(50) // survivors keep their slot positions,
//	                    // evictions are overwritten in place
//
// After either call, [Reservoir.Kept]/[Reservoir.Appended] or
// [Reservoir.Removed]/[Reservoir.Injected] report exactly what
// changed, so a caller holding a parallel payload array can mirror the
// decision without per-item bookkeeping of its own.
package reservoir
