package decoder

import (
	"fmt"

	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/memory"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/kevmo314/offsetview/pkg/types"
)

type PointerDecoder struct {
	elem   *types.Type
	layout encoding.Layout
}

func NewPointerDecoder(elem *types.Type, layout encoding.Layout) (Decoder, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &PointerDecoder{elem: elem, layout: layout}, nil
}

func (d *PointerDecoder) Decode(mem memory.Reader, addr pointer.Address) (Result, error) {
	p, err := memory.ReadOffsetPointer(mem, addr, d.layout)
	if err != nil {
		return nil, err
	}
	return &PointerResult{Type: d.elem, Pointer: p, Target: p.Resolve()}, nil
}

// PointerResult is either null or an element type and a resolved address.
type PointerResult struct {
	Type    *types.Type
	Pointer pointer.OffsetPointer
	Target  pointer.Resolved
}

func (r *PointerResult) Descriptor() Descriptor {
	return Descriptor{Kind: types.KindOffsetPointer, Elem: r.Type}
}

func (r *PointerResult) IsNull() bool {
	return r.Target.IsNull()
}

// Deref reads the element the pointer refers to. Read failures are returned
// unchanged.
func (r *PointerResult) Deref(mem memory.Reader) ([]byte, error) {
	addr, ok := r.Target.Address()
	if !ok {
		return nil, ErrNullDeref
	}
	if err := r.Type.Sized(); err != nil {
		return nil, err
	}
	b := make([]byte, r.Type.Size)
	if err := mem.ReadAt(b, addr); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PointerResult) String() string {
	return fmt.Sprintf("(%s *) %s", r.Type, r.Target)
}
