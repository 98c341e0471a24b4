package dump

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/gcheap"
	"github.com/hupe1980/gcheap/resource"
)

// Source is anything that can produce a heap snapshot. *gcheap.Heap
// implements it.
type Source interface {
	Snapshot() (*gcheap.Snapshot, error)
}

// Options configures Write and Read.
type Options struct {
	// Compression selects the image compression. Defaults to CompressionNone.
	Compression CompressionType
	// BlockSize is the uncompressed size of an image block.
	BlockSize int
	// Controller throttles the bytes written or read. Optional.
	Controller *resource.Controller
}

// Option configures a dump.
type Option func(*Options)

// WithCompression sets the image compression.
func WithCompression(ct CompressionType) Option {
	return func(o *Options) {
		o.Compression = ct
	}
}

// WithBlockSize sets the uncompressed image block size.
func WithBlockSize(n int) Option {
	return func(o *Options) {
		o.BlockSize = n
	}
}

// WithController throttles IO through rc.
func WithController(rc *resource.Controller) Option {
	return func(o *Options) {
		o.Controller = rc
	}
}

func applyOptions(optFns []Option) Options {
	o := Options{BlockSize: DefaultBlockSize}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// Write captures a snapshot of src and writes it to w.
// It returns the number of bytes written.
func Write(ctx context.Context, w io.Writer, src Source, optFns ...Option) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	snap, err := src.Snapshot()
	if err != nil {
		return 0, fmt.Errorf("dump: snapshot: %w", err)
	}
	return WriteSnapshot(ctx, w, snap, optFns...)
}

// WriteSnapshot writes an already captured snapshot to w.
func WriteSnapshot(ctx context.Context, w io.Writer, snap *gcheap.Snapshot, optFns ...Option) (int64, error) {
	o := applyOptions(optFns)
	if !o.Compression.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCompress, uint8(o.Compression))
	}

	var body bytes.Buffer
	rootBuf := make([]byte, 4)
	for _, r := range snap.Roots {
		binary.LittleEndian.PutUint32(rootBuf, r)
		body.Write(rootBuf)
	}

	bw := newBlockWriter(&body, o.Compression, o.BlockSize)
	if _, err := bw.Write(snap.Image); err != nil {
		return 0, fmt.Errorf("dump: compress image: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("dump: compress image: %w", err)
	}

	hdr := Header{
		Magic:       MagicNumber,
		Version:     Version,
		Compression: o.Compression,
		Generation:  snap.Generation,
		First:       snap.First,
		Live:        uint32(snap.Live),
		RootCount:   uint32(len(snap.Roots)),
		ImageSize:   uint32(len(snap.Image)),
		BodySize:    uint32(body.Len()),
		Checksum:    crc32.Checksum(body.Bytes(), castagnoli),
	}

	out := w
	if o.Controller != nil {
		out = resource.NewRateLimitedWriter(ctx, w, o.Controller)
	}

	n, err := out.Write(hdr.Encode())
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("dump: write header: %w", err)
	}
	m, err := body.WriteTo(out)
	total += m
	if err != nil {
		return total, fmt.Errorf("dump: write body: %w", err)
	}
	return total, nil
}

// Image is a decoded heap dump.
type Image struct {
	header Header
	snap   *gcheap.Snapshot
}

// Read decodes a dump written by Write.
func Read(ctx context.Context, r io.Reader, optFns ...Option) (*Image, error) {
	o := applyOptions(optFns)
	if o.Controller != nil {
		r = resource.NewRateLimitedReader(ctx, r, o.Controller)
	}

	hbuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hbuf); err != nil {
		return nil, fmt.Errorf("dump: read header: %w", err)
	}
	hdr, err := DecodeHeader(hbuf)
	if err != nil {
		return nil, err
	}

	// The body buffer grows with the bytes actually read, so a BodySize the
	// input cannot back is never allocated up front.
	var bodyBuf bytes.Buffer
	if _, err := io.CopyN(&bodyBuf, r, int64(hdr.BodySize)); err != nil {
		return nil, fmt.Errorf("dump: read body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := bodyBuf.Bytes()
	if crc32.Checksum(body, castagnoli) != hdr.Checksum {
		return nil, ErrChecksum
	}

	rootsSize := int(hdr.RootCount) * 4
	roots := make([]uint32, hdr.RootCount)
	for i := range roots {
		roots[i] = binary.LittleEndian.Uint32(body[i*4:])
	}

	img, err := decompressAll(body[rootsSize:], hdr.Compression, int(hdr.ImageSize))
	if err != nil {
		return nil, fmt.Errorf("dump: decompress image: %w", err)
	}
	if len(img) != int(hdr.ImageSize) {
		return nil, fmt.Errorf("%w: image is %d bytes, header says %d", ErrCorrupt, len(img), hdr.ImageSize)
	}

	return &Image{
		header: *hdr,
		snap: &gcheap.Snapshot{
			Generation: hdr.Generation,
			First:      hdr.First,
			Live:       int(hdr.Live),
			Roots:      roots,
			Image:      img,
		},
	}, nil
}

// Header returns the dump header.
func (i *Image) Header() Header { return i.header }

// Generation returns the heap generation at capture time.
func (i *Image) Generation() uint32 { return i.header.Generation }

// Roots returns the root stack offsets, bottom first.
func (i *Image) Roots() []uint32 { return i.snap.Roots }

// Values decodes every live value in list order.
func (i *Image) Values() ([]gcheap.SnapshotValue, error) { return i.snap.Values() }

// Snapshot returns the decoded snapshot.
func (i *Image) Snapshot() *gcheap.Snapshot { return i.snap }
