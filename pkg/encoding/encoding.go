package encoding

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/kevmo314/offsetview/pkg/pointer"
)

// LengthSize is the encoded size of a span length. Spans always store a
// 64-bit length so files stay binary compatible across pointer widths.
const LengthSize = 8

// Layout describes how offset pointers and spans are laid out in an image.
type Layout struct {
	PointerWidth pointer.Width
	Order        binary.ByteOrder
}

// DefaultLayout matches a 64-bit little endian host.
var DefaultLayout = Layout{PointerWidth: pointer.Width64, Order: binary.LittleEndian}

func (l Layout) Validate() error {
	if !l.PointerWidth.Valid() {
		return fmt.Errorf("invalid pointer width %d", l.PointerWidth)
	}
	if l.Order == nil {
		return fmt.Errorf("missing byte order")
	}
	return nil
}

// LengthFieldOffset is the distance from the start of a span to its length,
// which is aligned to 8 bytes after the data pointer.
func (l Layout) LengthFieldOffset() uint64 {
	return (uint64(l.PointerWidth) + LengthSize - 1) &^ (LengthSize - 1)
}

// SpanSize is the encoded size of an offset span.
func (l Layout) SpanSize() uint64 {
	return l.LengthFieldOffset() + LengthSize
}

// DecodeOffset sign-extends the first PointerWidth bytes of b.
func (l Layout) DecodeOffset(b []byte) (int64, error) {
	if len(b) < int(l.PointerWidth) {
		return 0, io.ErrUnexpectedEOF
	}
	switch l.PointerWidth {
	case pointer.Width8:
		return int64(int8(b[0])), nil
	case pointer.Width16:
		return int64(int16(l.Order.Uint16(b))), nil
	case pointer.Width32:
		return int64(int32(l.Order.Uint32(b))), nil
	case pointer.Width64:
		return int64(l.Order.Uint64(b)), nil
	}
	return 0, fmt.Errorf("invalid pointer width %d", l.PointerWidth)
}

// PutOffset writes off into b truncated to PointerWidth bytes.
func (l Layout) PutOffset(b []byte, off int64) error {
	if len(b) < int(l.PointerWidth) {
		return io.ErrShortBuffer
	}
	switch l.PointerWidth {
	case pointer.Width8:
		b[0] = byte(off)
	case pointer.Width16:
		l.Order.PutUint16(b, uint16(off))
	case pointer.Width32:
		l.Order.PutUint32(b, uint32(off))
	case pointer.Width64:
		l.Order.PutUint64(b, uint64(off))
	default:
		return fmt.Errorf("invalid pointer width %d", l.PointerWidth)
	}
	return nil
}

func (l Layout) DecodeLength(b []byte) (uint64, error) {
	if len(b) < LengthSize {
		return 0, io.ErrUnexpectedEOF
	}
	return l.Order.Uint64(b), nil
}

func (l Layout) PutLength(b []byte, n uint64) error {
	if len(b) < LengthSize {
		return io.ErrShortBuffer
	}
	l.Order.PutUint64(b, n)
	return nil
}

func (l Layout) ReadOffset(r io.Reader) (int64, error) {
	b := make([]byte, l.PointerWidth)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, err
	}
	return l.DecodeOffset(b)
}

func (l Layout) WriteOffset(w io.Writer, off int64) error {
	b := make([]byte, l.PointerWidth)
	if err := l.PutOffset(b, off); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func (l Layout) ReadLength(r io.Reader) (uint64, error) {
	var u uint64
	if err := binary.Read(r, l.Order, &u); err != nil {
		return 0, err
	}
	return u, nil
}

func (l Layout) WriteLength(w io.Writer, n uint64) error {
	return binary.Write(w, l.Order, n)
}

// ParseByteOrder maps "little" or "big" to a byte order.
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch s {
	case "", "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("unknown byte order %q", s)
}
