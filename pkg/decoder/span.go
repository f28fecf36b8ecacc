package decoder

import (
	"iter"

	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/memory"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/kevmo314/offsetview/pkg/span"
	"github.com/kevmo314/offsetview/pkg/types"
)

type SpanDecoder struct {
	elem   *types.Type
	layout encoding.Layout
}

func NewSpanDecoder(elem *types.Type, layout encoding.Layout) (Decoder, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &SpanDecoder{elem: elem, layout: layout}, nil
}

// Decode reads the data pointer at addr and the length that follows it.
func (d *SpanDecoder) Decode(mem memory.Reader, addr pointer.Address) (Result, error) {
	p, err := memory.ReadOffsetPointer(mem, addr, d.layout)
	if err != nil {
		return nil, err
	}
	n, err := memory.ReadLength(mem, addr+pointer.Address(d.layout.LengthFieldOffset()), d.layout)
	if err != nil {
		return nil, err
	}
	s := span.OffsetSpan{Data: p, Length: n}
	v, err := span.NewView(s, d.elem)
	if err != nil {
		return nil, err
	}
	return &SpanResult{Span: s, Seq: span.NewSequence(v)}, nil
}

// SpanResult is a decoded span: its summary and a lazy sequence of element
// handles.
type SpanResult struct {
	Span span.OffsetSpan
	Seq  *span.Sequence
}

func (r *SpanResult) Descriptor() Descriptor {
	return Descriptor{Kind: types.KindOffsetSpan, Elem: r.Seq.View().Elem()}
}

func (r *SpanResult) Summary() span.Summary {
	return r.Seq.View().Summary()
}

func (r *SpanResult) Len() uint64 {
	return r.Seq.Len()
}

func (r *SpanResult) String() string {
	return r.Summary().String()
}

// Value is an element handle together with the bytes read through it.
type Value struct {
	Ref   span.ElementRef
	Bytes []byte
	Err   error
}

// ValueAt reads element i.
func (r *SpanResult) ValueAt(mem memory.Reader, i int) (Value, error) {
	ref, err := r.Seq.ElementAt(i)
	if err != nil {
		return Value{}, err
	}
	v := readValue(mem, ref)
	return v, v.Err
}

// Values reads elements on demand in ascending order. A failed read is
// reported in Value.Err and enumeration continues.
func (r *SpanResult) Values(mem memory.Reader) iter.Seq2[int, Value] {
	return r.Window(mem, 0, -1)
}

// Window is Values restricted to count elements from start.
func (r *SpanResult) Window(mem memory.Reader, start, count int) iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i, ref := range r.Seq.Window(start, count) {
			if !yield(i, readValue(mem, ref)) {
				return
			}
		}
	}
}

func readValue(mem memory.Reader, ref span.ElementRef) Value {
	if err := ref.Type.Sized(); err != nil {
		return Value{Ref: ref, Err: err}
	}
	b := make([]byte, ref.Type.Size)
	if err := mem.ReadAt(b, ref.Address); err != nil {
		return Value{Ref: ref, Err: err}
	}
	return Value{Ref: ref, Bytes: b}
}
