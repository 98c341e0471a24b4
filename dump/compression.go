package dump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression algorithm of the slot image.
type CompressionType uint8

const (
	// CompressionNone stores blocks as they are.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD CompressionType = 2
)

// Valid reports whether c is a known compression type.
func (c CompressionType) Valid() bool { return c <= CompressionZSTD }

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("CompressionType(%d)", uint8(c))
	}
}

// ParseCompression maps a name accepted by String back to its type.
func ParseCompression(name string) (CompressionType, error) {
	for _, c := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompress, name)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// A CompressedSize of 0 means the block is stored uncompressed.
const blockHeaderSize = 8

// DefaultBlockSize is the uncompressed size of an image block.
const DefaultBlockSize = 64 * 1024

// compressBlock returns data framed with a block header. Blocks that do not
// shrink below 90% of their size are stored uncompressed.
func compressBlock(data []byte, ct CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch ct {
	case CompressionLZ4:
		compressed, err = compressBlockLZ4(data)
	case CompressionZSTD:
		compressed = compressBlockZSTD(data)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

func compressBlockLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return compressed[:n], nil
}

func compressBlockZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)
	return enc.EncodeAll(data, nil)
}

// blockWriter splits a stream into framed, compressed blocks.
type blockWriter struct {
	w         io.Writer
	ct        CompressionType
	blockSize int
	buffer    *bytes.Buffer
	written   int64
}

func newBlockWriter(w io.Writer, ct CompressionType, blockSize int) *blockWriter {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &blockWriter{
		w:         w,
		ct:        ct,
		blockSize: blockSize,
		buffer:    bytes.NewBuffer(make([]byte, 0, blockSize)),
	}
}

func (c *blockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := c.blockSize - c.buffer.Len()
		if space <= 0 {
			if err := c.flushBlock(); err != nil {
				return total, err
			}
			space = c.blockSize
		}

		n, _ := c.buffer.Write(p[:min(len(p), space)])
		total += n
		p = p[n:]
	}
	return total, nil
}

func (c *blockWriter) flushBlock() error {
	if c.buffer.Len() == 0 {
		return nil
	}

	framed, err := compressBlock(c.buffer.Bytes(), c.ct)
	if err != nil {
		return err
	}

	n, err := c.w.Write(framed)
	c.written += int64(n)
	if err != nil {
		return err
	}
	c.buffer.Reset()
	return nil
}

// Flush writes any remaining buffered data.
func (c *blockWriter) Flush() error {
	return c.flushBlock()
}

// decompressAll decodes every framed block of data and concatenates them.
// The output never exceeds limit bytes; a block that would overrun it is
// rejected before it is decoded.
func decompressAll(data []byte, ct CompressionType, limit int) ([]byte, error) {
	out := make([]byte, 0, min(limit, 2*len(data)+DefaultBlockSize))
	for off := 0; off < len(data); {
		if off+blockHeaderSize > len(data) {
			return nil, fmt.Errorf("%w: truncated block header", ErrCorrupt)
		}
		uncompressedSize := int(binary.LittleEndian.Uint32(data[off:]))
		compressedSize := int(binary.LittleEndian.Uint32(data[off+4:]))
		off += blockHeaderSize

		if uncompressedSize > limit-len(out) {
			return nil, fmt.Errorf("%w: block of %d bytes overruns image", ErrCorrupt, uncompressedSize)
		}

		if compressedSize == 0 {
			if off+uncompressedSize > len(data) {
				return nil, fmt.Errorf("%w: block extends beyond data", ErrCorrupt)
			}
			out = append(out, data[off:off+uncompressedSize]...)
			off += uncompressedSize
			continue
		}

		if off+compressedSize > len(data) {
			return nil, fmt.Errorf("%w: compressed block extends beyond data", ErrCorrupt)
		}
		block, err := decompressBlock(data[off:off+compressedSize], uncompressedSize, ct)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		off += compressedSize
	}
	return out, nil
}

func decompressBlock(compressed []byte, size int, ct CompressionType) ([]byte, error) {
	result := make([]byte, size)

	switch ct {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(compressed, result)
		if err != nil {
			return nil, err
		}
		if n != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(compressed, result[:0])
		if err != nil {
			return nil, err
		}
		if len(decoded) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: compressed block in %s dump", ErrCorrupt, ct)
	}
}
