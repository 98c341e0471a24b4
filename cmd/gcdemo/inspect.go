package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/gcheap"
	"github.com/hupe1980/gcheap/dump"
)

func runInspect(ctx context.Context, out io.Writer, cmd *inspectCmd) error {
	f, err := os.Open(cmd.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := dump.Read(ctx, bufio.NewReader(f))
	if err != nil {
		return err
	}
	return printImage(out, img, cmd.Values)
}

func printImage(out io.Writer, img *dump.Image, values bool) error {
	hdr := img.Header()
	fmt.Fprintf(out, "version=%d compression=%s generation=%d live=%d roots=%d image=%dB\n",
		hdr.Version, hdr.Compression, hdr.Generation, hdr.Live, hdr.RootCount, hdr.ImageSize)

	vs, err := img.Values()
	if err != nil {
		return err
	}

	kinds := make(map[gcheap.Kind]int)
	for _, v := range vs {
		kinds[v.Value.Kind()]++
	}
	for k := gcheap.KindInt; k <= gcheap.KindUnion; k++ {
		if kinds[k] > 0 {
			fmt.Fprintf(out, "%-7s %d\n", k, kinds[k])
		}
	}

	for i, r := range img.Roots() {
		fmt.Fprintf(out, "root[%d] @%d\n", i, r)
	}
	if values {
		for _, v := range vs {
			fmt.Fprintf(out, "@%d %s\n", v.Offset, v.Value)
		}
	}
	return nil
}
