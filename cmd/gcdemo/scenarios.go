package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/gcheap"
	"github.com/hupe1980/gcheap/dump"
)

func runScenarios(ctx context.Context, out io.Writer, logger *gcheap.Logger, cmd *scenariosCmd) error {
	ct, err := dump.ParseCompression(cmd.Compression)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "== rooted values across implicit collections")
	h, err := rootedValues(out, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	fmt.Fprintln(out, "== rooted pair keeps its operands")
	if err := rootedPair(out, logger); err != nil {
		return err
	}

	fmt.Fprintln(out, "== conversions")
	if err := conversions(out, logger); err != nil {
		return err
	}

	if cmd.Dump == "" {
		return nil
	}
	f, err := os.Create(cmd.Dump)
	if err != nil {
		return err
	}
	n, err := dump.Write(ctx, f, h, dump.WithCompression(ct))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d bytes to %s\n", n, cmd.Dump)
	return nil
}

// rootedValues roots five Ints and allocates ten unrooted ones with the
// initial threshold of eight.
func rootedValues(out io.Writer, logger *gcheap.Logger) (*gcheap.Heap, error) {
	h, err := gcheap.New(gcheap.WithReportWriter(out), gcheap.WithLogger(logger.WithHeap("rooted-values")))
	if err != nil {
		return nil, err
	}

	for i := int32(0); i < 5; i++ {
		r, err := h.Int(i)
		if err != nil {
			h.Close()
			return nil, err
		}
		if err := h.Push(r); err != nil {
			h.Close()
			return nil, err
		}
	}
	for i := int32(0); i < 10; i++ {
		if _, err := h.Int(100 + i); err != nil {
			h.Close()
			return nil, err
		}
	}

	st := h.Stats()
	fmt.Fprintf(out, "live=%d threshold=%d cycles=%d roots=%d\n", st.Live, st.Threshold, st.Cycles, st.Roots)
	return h, nil
}

func rootedPair(out io.Writer, logger *gcheap.Logger) error {
	h, err := gcheap.New(gcheap.WithReportWriter(out), gcheap.WithLogger(logger.WithHeap("rooted-pair")))
	if err != nil {
		return err
	}
	defer h.Close()

	head, err := h.Int(1)
	if err != nil {
		return err
	}
	tail, err := h.Int(2)
	if err != nil {
		return err
	}
	if _, err := h.Int(3); err != nil {
		return err
	}
	p, err := h.Pair(head, tail)
	if err != nil {
		return err
	}
	if err := h.Push(p); err != nil {
		return err
	}
	if _, err := h.Collect(); err != nil {
		return err
	}

	p, err = h.Peek(0)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "root %s\n", p)
	return h.Walk(func(r gcheap.Ref, v gcheap.Value) bool {
		fmt.Fprintf(out, "%s %s\n", r, v)
		return true
	})
}

func conversions(out io.Writer, logger *gcheap.Logger) error {
	h, err := gcheap.New(gcheap.WithLogger(logger.WithHeap("conversions")))
	if err != nil {
		return err
	}
	defer h.Close()

	steps := []struct {
		name    string
		alloc   func() (gcheap.Ref, error)
		convert func(gcheap.Ref) (gcheap.Ref, error)
	}{
		{"ToInt(Double(3.9))", func() (gcheap.Ref, error) { return h.Double(3.9) }, h.ToInt},
		{"ToInt(Double(-3.9))", func() (gcheap.Ref, error) { return h.Double(-3.9) }, h.ToInt},
		{"ToChar(Int(0x1234))", func() (gcheap.Ref, error) { return h.Int(0x1234) }, h.ToChar},
		{"ToDouble(Enum(7))", func() (gcheap.Ref, error) { return h.Enum(7) }, h.ToDouble},
	}
	for _, s := range steps {
		src, err := s.alloc()
		if err != nil {
			return err
		}
		r, err := s.convert(src)
		if err != nil {
			if gcheap.IsFatal(err) {
				return err
			}
			fmt.Fprintf(out, "%s: %v\n", s.name, err)
			continue
		}
		v, err := h.Load(r)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %s\n", s.name, v)
	}
	return nil
}
