package dump

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/hupe1980/gcheap/internal/arena"
	"github.com/hupe1980/gcheap/internal/value"
)

const (
	// MagicNumber identifies a heap dump ("GCHD").
	MagicNumber = 0x47434844
	// Version is the current format version.
	Version = 1
	// HeaderSize is the encoded size of Header.
	HeaderSize = 4 + 4 + 1 + 3 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 8
	// MaxImageSize bounds the slot image to what a region can address.
	MaxImageSize = arena.MaxCapacity

	// headerSumOffset is where the header checksum lives; it covers every
	// byte before it.
	headerSumOffset = 40
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var (
	// ErrInvalidMagic is returned when the input does not start with MagicNumber.
	ErrInvalidMagic = errors.New("invalid magic number")
	// ErrInvalidVersion is returned for dumps written in another format version.
	ErrInvalidVersion = errors.New("unsupported version")
	// ErrChecksum is returned when the header or body fails its CRC32C check.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrCorrupt is returned when the dump is structurally inconsistent.
	ErrCorrupt = errors.New("corrupt dump")
	// ErrUnknownCompress is returned for an unknown compression type.
	ErrUnknownCompress = errors.New("unknown compression type")
)

// Header describes the layout of a heap dump.
//
// The header is followed by RootCount little endian uint32 root offsets and
// then by the compressed blocks of the slot image.
type Header struct {
	Magic       uint32
	Version     uint32
	Compression CompressionType
	_           [3]byte
	Generation  uint32
	First       uint32 // offset of the head of the live list
	Live        uint32
	RootCount   uint32
	ImageSize   uint32 // uncompressed image size in bytes
	BodySize    uint32
	Checksum    uint32 // CRC32C of the body
	HeaderSum   uint32 // CRC32C of the header bytes before it, set by Encode
	_           [8]byte
}

// Encode serializes the header and stamps HeaderSum.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:], h.Version)
	buf[8] = uint8(h.Compression)
	// Padding [9:12]
	binary.LittleEndian.PutUint32(buf[12:], h.Generation)
	binary.LittleEndian.PutUint32(buf[16:], h.First)
	binary.LittleEndian.PutUint32(buf[20:], h.Live)
	binary.LittleEndian.PutUint32(buf[24:], h.RootCount)
	binary.LittleEndian.PutUint32(buf[28:], h.ImageSize)
	binary.LittleEndian.PutUint32(buf[32:], h.BodySize)
	binary.LittleEndian.PutUint32(buf[36:], h.Checksum)
	h.HeaderSum = crc32.Checksum(buf[:headerSumOffset], castagnoli)
	binary.LittleEndian.PutUint32(buf[headerSumOffset:], h.HeaderSum)
	return buf
}

// DecodeHeader parses and validates a header. Size fields are checked
// against each other so that a reader never allocates more than the
// header can justify.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: buffer too small for header", ErrCorrupt)
	}
	h := &Header{}
	h.Magic = binary.LittleEndian.Uint32(buf[0:])
	if h.Magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	h.Version = binary.LittleEndian.Uint32(buf[4:])
	if h.Version != Version {
		return nil, ErrInvalidVersion
	}
	h.HeaderSum = binary.LittleEndian.Uint32(buf[headerSumOffset:])
	if crc32.Checksum(buf[:headerSumOffset], castagnoli) != h.HeaderSum {
		return nil, fmt.Errorf("%w: header", ErrChecksum)
	}
	h.Compression = CompressionType(buf[8])
	if !h.Compression.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompress, buf[8])
	}
	h.Generation = binary.LittleEndian.Uint32(buf[12:])
	h.First = binary.LittleEndian.Uint32(buf[16:])
	h.Live = binary.LittleEndian.Uint32(buf[20:])
	h.RootCount = binary.LittleEndian.Uint32(buf[24:])
	h.ImageSize = binary.LittleEndian.Uint32(buf[28:])
	h.BodySize = binary.LittleEndian.Uint32(buf[32:])
	h.Checksum = binary.LittleEndian.Uint32(buf[36:])
	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) validate() error {
	switch {
	case uint64(h.ImageSize) > MaxImageSize:
		return fmt.Errorf("%w: image size %d exceeds %d", ErrCorrupt, h.ImageSize, uint64(MaxImageSize))
	case h.ImageSize < arena.Base || h.ImageSize%arena.Alignment != 0:
		return fmt.Errorf("%w: image size %d is not a region cursor", ErrCorrupt, h.ImageSize)
	case uint64(h.Live) > uint64(h.ImageSize-arena.Base)/value.SlotSize:
		return fmt.Errorf("%w: %d live values do not fit a %d byte image", ErrCorrupt, h.Live, h.ImageSize)
	case h.First != 0 && uint64(h.First)+value.SlotSize > uint64(h.ImageSize):
		return fmt.Errorf("%w: first value %d outside image", ErrCorrupt, h.First)
	case uint64(h.RootCount)*4 > uint64(h.BodySize):
		return fmt.Errorf("%w: %d roots exceed body", ErrCorrupt, h.RootCount)
	}
	return nil
}
