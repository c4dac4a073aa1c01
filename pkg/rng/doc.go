// Package rng provides the single deterministic uniform source the
// sampling kernel and reservoir draw from.
//
// # Determinism
//
// A [Source] is never process-global. Callers construct one explicitly
// and pass it to every reservoir and kernel call that needs randomness,
// so that two callers holding distinct sources never share a stream and
// a single caller can reproduce an entire ingestion sequence by
// recording the seed.
//
//	s := rng.NewSource(42)
//	r := reservoir.New(4, 1.0, s)
//
// [Source.Randomize] seeds from non-deterministic entropy and returns
// the chosen seed, so a caller that wants reproducibility later only
// needs to log that one value.
package rng
