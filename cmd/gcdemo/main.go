// Command gcdemo drives gcheap heaps from the command line.
//
//	gcdemo scenarios [--dump heap.gchd --compression zstd]
//	gcdemo stress --heaps 8 --ops 100000 [--memory-limit 8388608] [--metrics-addr :9090]
//	gcdemo inspect heap.gchd
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alexflint/go-arg"
	"github.com/hupe1980/gcheap"
)

type scenariosCmd struct {
	Dump        string `arg:"--dump" help:"write a dump of the final heap to this file"`
	Compression string `arg:"--compression" default:"zstd" help:"dump compression: none, lz4 or zstd"`
}

type stressCmd struct {
	Heaps       int    `arg:"--heaps" default:"4" help:"number of heaps driven in parallel"`
	Workers     int64  `arg:"--workers" default:"0" help:"heaps running at the same time (0 = all)"`
	Ops         int    `arg:"--ops" default:"100000" help:"operations per heap"`
	Seed        int64  `arg:"--seed" default:"1" help:"base random seed"`
	Capacity    int    `arg:"--capacity" default:"1048576" help:"arena size per heap in bytes"`
	MemoryLimit int64  `arg:"--memory-limit" help:"shared arena budget in bytes (0 = unlimited)"`
	Transitive  bool   `arg:"--transitive" help:"mark pairs to any depth"`
	NoCompact   bool   `arg:"--no-compact" help:"reuse freed slots instead of compacting"`
	MetricsAddr string `arg:"--metrics-addr" help:"serve Prometheus metrics on this address while running"`
}

type inspectCmd struct {
	Path   string `arg:"positional,required" help:"dump file"`
	Values bool   `arg:"--values" help:"print every value"`
}

type args struct {
	Scenarios *scenariosCmd `arg:"subcommand:scenarios" help:"run the reference scenarios"`
	Stress    *stressCmd    `arg:"subcommand:stress" help:"drive many heaps with random operations"`
	Inspect   *inspectCmd   `arg:"subcommand:inspect" help:"print the contents of a heap dump"`
	LogLevel  string        `arg:"--log-level,env:GCHEAP_LOG_LEVEL" default:"warn" help:"debug, info, warn or error"`
	JSON      bool          `arg:"--json" help:"log in JSON"`
}

func (args) Description() string {
	return "gcdemo exercises the gcheap mark-sweep-compact heap\n"
}

func main() {
	var a args
	p := arg.MustParse(&a)

	logger, err := newLogger(a.LogLevel, a.JSON)
	if err != nil {
		p.Fail(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case a.Scenarios != nil:
		err = runScenarios(ctx, os.Stdout, logger, a.Scenarios)
	case a.Stress != nil:
		err = runStress(ctx, os.Stdout, logger, a.Stress)
	case a.Inspect != nil:
		err = runInspect(ctx, os.Stdout, a.Inspect)
	default:
		p.Fail("missing subcommand")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "gcdemo: %v\n", err)
		if gcheap.IsFatal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newLogger(level string, json bool) (*gcheap.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	if json {
		return gcheap.NewJSONLogger(l), nil
	}
	return gcheap.NewTextLogger(l), nil
}
