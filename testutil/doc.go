// Package testutil provides testing utilities for yocto.
//
// This package is intended for use in tests and benchmarks only. It
// generates reproducible synthetic documents and computes reference query
// results by brute force.
//
//	rng := testutil.NewRNG(4711)
//	records := rng.Records(500)
//	want := testutil.Select(records, func(r testutil.Record) bool {
//	    return r.Category == "books"
//	})
package testutil
