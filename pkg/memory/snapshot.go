package memory

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ZstdMagicSize is the number of leading bytes IsCompressed looks at.
const ZstdMagicSize = 4

// IsCompressed reports whether header starts a zstd frame.
func IsCompressed(header []byte) bool {
	return bytes.HasPrefix(header, zstdMagic)
}

// Snapshot is a copy of one contiguous region of the inspected address
// space. It must not be modified once shared.
type Snapshot struct {
	Base pointer.Address
	Data []byte
}

var _ Reader = (*Snapshot)(nil)

func NewSnapshot(base pointer.Address, data []byte) *Snapshot {
	return &Snapshot{Base: base, Data: data}
}

// ReadSnapshot reads a raw or zstd compressed image to be placed at base.
func ReadSnapshot(r io.Reader, base pointer.Address) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if IsCompressed(data) {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompress image: %w", err)
		}
	}
	return NewSnapshot(base, data), nil
}

// End returns the first address past the snapshot.
func (s *Snapshot) End() pointer.Address {
	return s.Base + pointer.Address(len(s.Data))
}

func (s *Snapshot) Contains(addr pointer.Address) bool {
	return addr >= s.Base && addr < s.End()
}

func (s *Snapshot) ReadAt(p []byte, addr pointer.Address) error {
	if n := s.readAt(p, addr); n < len(p) {
		return &UnreadableError{Addr: addr, Size: len(p)}
	}
	return nil
}

// readAt copies as much of p as the snapshot covers from addr.
func (s *Snapshot) readAt(p []byte, addr pointer.Address) int {
	if !s.Contains(addr) {
		return 0
	}
	return copy(p, s.Data[addr-s.Base:])
}

// Fingerprint is a content hash used to tell images apart.
func (s *Snapshot) Fingerprint() uint64 {
	return xxhash.Sum64(s.Data)
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("Snapshot[%s:%s]", s.Base, s.End())
}
