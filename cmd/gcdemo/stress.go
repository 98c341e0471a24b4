package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/hupe1980/gcheap"
	"github.com/hupe1980/gcheap/metric"
	"github.com/hupe1980/gcheap/resource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// fanout forwards every record to all collectors.
type fanout []gcheap.MetricsCollector

func (f fanout) RecordAlloc(kind gcheap.Kind, err error) {
	for _, c := range f {
		c.RecordAlloc(kind, err)
	}
}

func (f fanout) RecordCollect(stats gcheap.CollectStats) {
	for _, c := range f {
		c.RecordCollect(stats)
	}
}

func (f fanout) RecordConversion(from, to gcheap.Kind, err error) {
	for _, c := range f {
		c.RecordConversion(from, to, err)
	}
}

func runStress(ctx context.Context, out io.Writer, logger *gcheap.Logger, cmd *stressCmd) error {
	if cmd.Heaps <= 0 {
		return errors.New("--heaps must be positive")
	}
	workers := cmd.Workers
	if workers <= 0 {
		workers = int64(cmd.Heaps)
	}
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes: cmd.MemoryLimit,
		MaxWorkers:       workers,
	})
	logger.Info("stress started", "heaps", cmd.Heaps, "workers", workers, "memory_limit", rc.MemoryLimit())

	basic := &gcheap.BasicMetricsCollector{}
	collectors := fanout{basic}

	if cmd.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		pc, err := metric.NewPrometheusCollector(reg)
		if err != nil {
			return err
		}
		collectors = append(collectors, pc)

		srv := &http.Server{
			Addr:              cmd.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	opts := []gcheap.Option{
		gcheap.WithCapacity(cmd.Capacity),
		gcheap.WithMemoryAcquirer(rc),
		gcheap.WithMetricsCollector(collectors),
	}
	if cmd.Transitive {
		opts = append(opts, gcheap.WithTransitiveMarking())
	}
	if cmd.NoCompact {
		opts = append(opts, gcheap.WithoutCompaction())
	}

	start := time.Now()
	results := make([]gcheap.Stats, cmd.Heaps)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cmd.Heaps; i++ {
		g.Go(func() error {
			if err := rc.AcquireWorker(ctx); err != nil {
				return err
			}
			defer rc.ReleaseWorker()

			name := fmt.Sprintf("heap-%d", i)
			h, err := gcheap.New(append(opts, gcheap.WithLogger(logger.WithHeap(name)))...)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			defer h.Close()

			if err := drive(ctx, h, rand.New(rand.NewSource(cmd.Seed+int64(i))), cmd.Ops); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			results[i] = h.Stats()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, st := range results {
		fmt.Fprintf(out, "heap-%d live=%d threshold=%d roots=%d cycles=%d rewinds=%d generation=%d usage=%.1f%% high-water=%d\n",
			i, st.Live, st.Threshold, st.Roots, st.Cycles, st.Rewinds, st.Generation, st.Usage, st.ArenaHighMark)
	}
	ms := basic.GetStats()
	fmt.Fprintf(out, "allocs=%d collections=%d reclaimed=%d moved=%d avg-collect=%s conversions=%d (%d failed) elapsed=%s\n",
		ms.AllocCount, ms.CollectCount, ms.Reclaimed, ms.Moved, ms.CollectAvg,
		ms.ConversionCount, ms.ConversionErrors, time.Since(start).Round(time.Millisecond))
	return nil
}

// drive applies ops random operations to h. Recoverable conversion errors
// are expected; any other error ends the run.
func drive(ctx context.Context, h *gcheap.Heap, rng *rand.Rand, ops int) error {
	maxDepth := h.Stats().RootCapacity - 1
	for n := 0; n < ops; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		var err error
		switch op := rng.Intn(10); {
		case op < 4:
			var r gcheap.Ref
			r, err = allocScalar(h, rng)
			if err == nil && h.Depth() < maxDepth && rng.Intn(3) == 0 {
				err = h.Push(r)
			}
		case op < 6:
			var x, root gcheap.Ref
			x, err = h.Int(rng.Int31())
			if err == nil && h.Depth() > 0 {
				root, err = h.Peek(rng.Intn(h.Depth()))
			}
			if err == nil {
				var p gcheap.Ref
				p, err = h.Pair(root, x)
				if err == nil && h.Depth() < maxDepth {
					err = h.Push(p)
				}
			}
		case op < 8:
			if h.Depth() > 0 {
				_, err = h.Pop()
			}
		case op < 9:
			if h.Depth() > 0 {
				var root gcheap.Ref
				root, err = h.Peek(rng.Intn(h.Depth()))
				if err == nil && !root.IsNil() {
					_, err = convertRandom(h, rng, root)
				}
			}
		default:
			_, err = h.Collect()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func allocScalar(h *gcheap.Heap, rng *rand.Rand) (gcheap.Ref, error) {
	switch rng.Intn(6) {
	case 0:
		return h.Int(rng.Int31())
	case 1:
		return h.Float(rng.Float32())
	case 2:
		return h.Double(rng.NormFloat64())
	case 3:
		return h.Char(uint8(rng.Intn(256)))
	case 4:
		return h.Enum(rng.Int31n(16))
	default:
		return h.Union(gcheap.UnionInt, gcheap.Int(rng.Int31()))
	}
}

func convertRandom(h *gcheap.Heap, rng *rand.Rand, r gcheap.Ref) (gcheap.Ref, error) {
	convert := []func(gcheap.Ref) (gcheap.Ref, error){h.ToInt, h.ToFloat, h.ToDouble, h.ToChar}[rng.Intn(4)]
	out, err := convert(r)
	if errors.Is(err, gcheap.ErrUnsupportedConversion) {
		return gcheap.Nil, nil
	}
	return out, err
}
