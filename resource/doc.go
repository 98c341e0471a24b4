// Package resource provides a Controller that shares limits between heaps.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Workers (sem)  │  IO Rate Limiter        │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireWorker  │  AcquireIO              │
//	│  ReleaseMemory  │  ReleaseWorker  │  RateLimitedWriter      │
//	│  MemoryUsage    │                 │  RateLimitedReader      │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory
//
// A Controller implements gcheap.MemoryAcquirer. Every heap created with
// gcheap.WithMemoryAcquirer reserves its whole arena capacity on New and
// returns it on Close. AcquireMemory fails fast with ErrMemoryLimitExceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 16 << 20, // room for sixteen default heaps
//	})
//	h, err := gcheap.New(gcheap.WithMemoryAcquirer(rc))
//
// # Workers
//
// Bounds how many heaps a workload drives at the same time:
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # IO
//
// Token bucket limiter for heap dumps:
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// All methods are safe for concurrent use and treat a nil Controller as
// unlimited.
package resource
