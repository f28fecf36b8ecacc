package buftest

import (
	"fmt"

	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/memory"
	"github.com/kevmo314/offsetview/pkg/pointer"
)

// Image is a growable byte image placed at a base address.
// this replicates a region of a process's memory without needing a process
// which is useful for testing decoders.
type Image struct {
	base   pointer.Address
	buf    []byte
	layout encoding.Layout
}

var _ memory.Reader = &Image{}

func NewImage(base pointer.Address, layout encoding.Layout) *Image {
	return &Image{base: base, layout: layout}
}

func (m *Image) Base() pointer.Address {
	return m.base
}

func (m *Image) Layout() encoding.Layout {
	return m.layout
}

// WriteAt copies p to addr, growing the image with zeros as needed.
func (m *Image) WriteAt(p []byte, addr pointer.Address) {
	if addr < m.base {
		panic(fmt.Sprintf("write at %s below image base %s", addr, m.base))
	}
	off := int(addr - m.base)
	if end := off + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[off:], p)
}

func (m *Image) ReadAt(p []byte, addr pointer.Address) error {
	return m.Snapshot().ReadAt(p, addr)
}

// PutOffset stores a raw offset value at addr.
func (m *Image) PutOffset(addr pointer.Address, off int64) {
	b := make([]byte, m.layout.PointerWidth)
	if err := m.layout.PutOffset(b, off); err != nil {
		panic(err)
	}
	m.WriteAt(b, addr)
}

// PutPointer stores an offset pointer at addr that resolves to target.
func (m *Image) PutPointer(addr, target pointer.Address) {
	off, err := pointer.Encode(addr, pointer.At(target))
	if err != nil {
		panic(err)
	}
	m.PutOffset(addr, off)
}

func (m *Image) PutNull(addr pointer.Address) {
	m.PutOffset(addr, pointer.NullOffset)
}

// PutSpan stores an offset span at addr over n elements starting at target.
func (m *Image) PutSpan(addr, target pointer.Address, n uint64) {
	m.PutPointer(addr, target)
	m.PutLength(addr+pointer.Address(m.layout.LengthFieldOffset()), n)
}

// PutNullSpan stores a span with a null data pointer and length n.
func (m *Image) PutNullSpan(addr pointer.Address, n uint64) {
	m.PutNull(addr)
	m.PutLength(addr+pointer.Address(m.layout.LengthFieldOffset()), n)
}

func (m *Image) PutLength(addr pointer.Address, n uint64) {
	b := make([]byte, encoding.LengthSize)
	if err := m.layout.PutLength(b, n); err != nil {
		panic(err)
	}
	m.WriteAt(b, addr)
}

func (m *Image) PutUint32(addr pointer.Address, v uint32) {
	b := make([]byte, 4)
	m.layout.Order.PutUint32(b, v)
	m.WriteAt(b, addr)
}

func (m *Image) PutUint64(addr pointer.Address, v uint64) {
	b := make([]byte, 8)
	m.layout.Order.PutUint64(b, v)
	m.WriteAt(b, addr)
}

// Snapshot returns a snapshot sharing the image's current bytes.
func (m *Image) Snapshot() *memory.Snapshot {
	return memory.NewSnapshot(m.base, m.buf)
}

func (m *Image) Bytes() []byte {
	return m.buf
}
