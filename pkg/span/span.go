// span provides bounds checked, non-materialising views over offset spans.
package span

import (
	"errors"
	"fmt"

	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/kevmo314/offsetview/pkg/types"
)

var ErrOutOfRange = errors.New("index out of range")

type RangeError struct {
	Index  int
	Length uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Length)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// OffsetSpan is an encoded span: an offset pointer to the first element and
// an element count.
type OffsetSpan struct {
	Data   pointer.OffsetPointer
	Length uint64
}

// ElementRef is a handle to one element. It holds the element's address, not
// its value.
type ElementRef struct {
	Index   int
	Address pointer.Address
	Type    *types.Type
}

func (r ElementRef) String() string {
	return fmt.Sprintf("[%d] (%s *) %s", r.Index, r.Type, r.Address)
}

// Summary is the (element type, length) descriptor of a span.
type Summary struct {
	Type   *types.Type
	Length uint64
}

func (s Summary) String() string {
	return fmt.Sprintf("offset_span<%s> of length %d", s.Type, s.Length)
}

// View is an immutable, bounds checked view over a span's elements. It never
// reads memory.
type View struct {
	data   pointer.Resolved
	length uint64
	elem   *types.Type
}

// NewView resolves s's data pointer and builds a view of elem-typed elements.
func NewView(s OffsetSpan, elem *types.Type) (*View, error) {
	return FromResolved(s.Data.Resolve(), s.Length, elem)
}

// FromResolved builds a view from an already resolved data address. A null
// data address yields an empty view whatever length is given.
func FromResolved(data pointer.Resolved, length uint64, elem *types.Type) (*View, error) {
	if err := elem.Sized(); err != nil {
		return nil, err
	}
	if data.IsNull() {
		length = 0
	}
	return &View{data: data, length: length, elem: elem}, nil
}

func (v *View) Len() uint64 {
	return v.length
}

func (v *View) Empty() bool {
	return v.length == 0
}

func (v *View) Data() pointer.Resolved {
	return v.data
}

func (v *View) Elem() *types.Type {
	return v.elem
}

func (v *View) Summary() Summary {
	return Summary{Type: v.elem, Length: v.length}
}

// At returns a handle to element i, computed as data + i*size with
// wrap-around.
func (v *View) At(i int) (ElementRef, error) {
	if i < 0 || uint64(i) >= v.length {
		return ElementRef{}, &RangeError{Index: i, Length: v.length}
	}
	base, _ := v.data.Address()
	return ElementRef{
		Index:   i,
		Address: base + pointer.Address(uint64(i)*v.elem.Size),
		Type:    v.elem,
	}, nil
}

func (v *View) Front() (ElementRef, error) {
	return v.At(0)
}

func (v *View) Back() (ElementRef, error) {
	if v.length == 0 {
		return v.At(0)
	}
	return v.At(int(v.length - 1))
}

// Subspan returns the view of elements [offset, Len).
func (v *View) Subspan(offset uint64) (*View, error) {
	if offset > v.length {
		return nil, &RangeError{Index: int(offset), Length: v.length}
	}
	if offset == v.length {
		return &View{data: v.data, length: 0, elem: v.elem}, nil
	}
	first, err := v.At(int(offset))
	if err != nil {
		return nil, err
	}
	return &View{data: pointer.At(first.Address), length: v.length - offset, elem: v.elem}, nil
}

func (v *View) String() string {
	return fmt.Sprintf("%s at %s", v.Summary(), v.data)
}
