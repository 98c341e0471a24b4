// Package testutil provides testing utilities for gcheap.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, goroutine-safe random source and generators for
// random heap values, so that randomized collector tests are reproducible.
//
//	rng := testutil.NewRNG(seed)
//	v := rng.Scalar()          // random Int, Float, Double or Char
//	op := rng.Intn(4)
package testutil
