package decoder

import (
	"encoding/binary"
	"testing"

	"github.com/kevmo314/offsetview/pkg/buftest"
	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/memory"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/kevmo314/offsetview/pkg/span"
	"github.com/kevmo314/offsetview/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRegistry(t *testing.T) (*Registry, *types.Table) {
	t.Helper()
	return NewRegistry(WithLogger(zaptest.NewLogger(t))), types.NewTable(encoding.DefaultLayout)
}

func lookup(t *testing.T, tab *types.Table, name string) *types.Type {
	t.Helper()
	typ, err := tab.Lookup(name)
	require.NoError(t, err)
	return typ
}

func TestPointerDecoder(t *testing.T) {
	reg, tab := newTestRegistry(t)
	ptrType := lookup(t, tab, "offset_ptr<int32>")

	t.Run("resolves relative to the field", func(t *testing.T) {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		m.PutOffset(0x1000, 0x40)
		m.PutUint32(0x1040, 42)

		res, err := reg.Decode(m, ptrType, 0x1000)
		require.NoError(t, err)
		p := res.(*PointerResult)
		require.False(t, p.IsNull())
		addr, _ := p.Target.Address()
		assert.Equal(t, pointer.Address(0x1040), addr)
		assert.Equal(t, "(int32 *) 0x1040", p.String())
		assert.Equal(t, Descriptor{Kind: types.KindOffsetPointer, Elem: ptrType.Elem}, p.Descriptor())

		b, err := p.Deref(m)
		require.NoError(t, err)
		assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(b))
	})

	t.Run("null is a result, not an error", func(t *testing.T) {
		m := buftest.NewImage(0x2000, encoding.DefaultLayout)
		m.PutNull(0x2000)

		res, err := reg.Decode(m, ptrType, 0x2000)
		require.NoError(t, err)
		p := res.(*PointerResult)
		assert.True(t, p.IsNull())
		assert.Equal(t, "(int32 *) null", p.String())
		_, err = p.Deref(m)
		assert.ErrorIs(t, err, ErrNullDeref)
	})

	t.Run("offset zero points at the field itself", func(t *testing.T) {
		m := buftest.NewImage(0x3000, encoding.DefaultLayout)
		m.PutOffset(0x3000, 0)

		res, err := reg.Decode(m, lookup(t, tab, "offset_ptr<int64>"), 0x3000)
		require.NoError(t, err)
		assert.True(t, res.(*PointerResult).Target.Equal(pointer.At(0x3000)))
	})

	t.Run("unreadable targets propagate unchanged", func(t *testing.T) {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		m.PutOffset(0x1000, 0x4000)

		res, err := reg.Decode(m, ptrType, 0x1000)
		require.NoError(t, err)
		_, err = res.(*PointerResult).Deref(m)
		require.ErrorIs(t, err, memory.ErrUnreadableMemory)
		var ue *memory.UnreadableError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, pointer.Address(0x5000), ue.Addr)
	})

	t.Run("unreadable field", func(t *testing.T) {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		_, err := reg.Decode(m, ptrType, 0x1000)
		require.ErrorIs(t, err, memory.ErrUnreadableMemory)
	})

	t.Run("32 bit layout", func(t *testing.T) {
		layout := encoding.Layout{PointerWidth: pointer.Width32, Order: binary.BigEndian}
		reg := NewRegistry(WithLayout(layout))
		m := buftest.NewImage(0x1000, layout)
		m.PutOffset(0x1010, -0x10)

		res, err := reg.Decode(m, types.NewTable(layout).PointerTo(lookup(t, tab, "char")), 0x1010)
		require.NoError(t, err)
		assert.Equal(t, "(char *) 0x1000", res.String())
	})
}

func TestSpanDecoder(t *testing.T) {
	reg, tab := newTestRegistry(t)
	spanType := lookup(t, tab, "offset_span<int32>")

	image := func() *buftest.Image {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		m.PutSpan(0x1000, 0x3000, 5)
		for i := 0; i < 5; i++ {
			m.PutUint32(pointer.Address(0x3000+4*i), uint32(10*i))
		}
		return m
	}

	t.Run("summary and element addresses", func(t *testing.T) {
		m := image()
		res, err := reg.Decode(m, spanType, 0x1000)
		require.NoError(t, err)
		s := res.(*SpanResult)
		assert.Equal(t, "offset_span<int32> of length 5", s.String())
		assert.Equal(t, uint64(5), s.Len())

		ref, err := s.Seq.ElementAt(2)
		require.NoError(t, err)
		assert.Equal(t, pointer.Address(0x3008), ref.Address)

		_, err = s.Seq.ElementAt(5)
		require.ErrorIs(t, err, span.ErrOutOfRange)
	})

	t.Run("values are read on demand", func(t *testing.T) {
		m := image()
		res, err := reg.Decode(m, spanType, 0x1000)
		require.NoError(t, err)

		var got []uint32
		for i, v := range res.(*SpanResult).Values(m) {
			require.NoError(t, v.Err)
			assert.Equal(t, i, v.Ref.Index)
			got = append(got, binary.LittleEndian.Uint32(v.Bytes))
		}
		assert.Equal(t, []uint32{0, 10, 20, 30, 40}, got)

		v, err := res.(*SpanResult).ValueAt(m, 3)
		require.NoError(t, err)
		assert.Equal(t, uint32(30), binary.LittleEndian.Uint32(v.Bytes))
	})

	t.Run("window", func(t *testing.T) {
		m := image()
		res, err := reg.Decode(m, spanType, 0x1000)
		require.NoError(t, err)
		var idx []int
		for i := range res.(*SpanResult).Window(m, 3, 10) {
			idx = append(idx, i)
		}
		assert.Equal(t, []int{3, 4}, idx)
	})

	t.Run("unreadable elements are reported per value", func(t *testing.T) {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		m.PutSpan(0x1000, 0x1010, 2)
		m.PutUint32(0x1010, 7)

		res, err := reg.Decode(m, spanType, 0x1000)
		require.NoError(t, err)
		var errs []error
		for _, v := range res.(*SpanResult).Values(m) {
			errs = append(errs, v.Err)
		}
		require.Len(t, errs, 2)
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], memory.ErrUnreadableMemory)

		_, err = res.(*SpanResult).ValueAt(m, 1)
		assert.ErrorIs(t, err, memory.ErrUnreadableMemory)
	})

	t.Run("null data pointer is empty", func(t *testing.T) {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		m.PutNullSpan(0x1000, 9)

		res, err := reg.Decode(m, spanType, 0x1000)
		require.NoError(t, err)
		s := res.(*SpanResult)
		assert.Equal(t, uint64(0), s.Len())
		assert.Equal(t, uint64(9), s.Span.Length)
		for range s.Values(m) {
			t.Fatal("expected no values")
		}
	})

	t.Run("empty span", func(t *testing.T) {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		m.PutSpan(0x1000, 0x1000, 0)

		res, err := reg.Decode(m, spanType, 0x1000)
		require.NoError(t, err)
		_, err = res.(*SpanResult).Seq.ElementAt(0)
		require.ErrorIs(t, err, span.ErrOutOfRange)
	})

	t.Run("span of offset pointers", func(t *testing.T) {
		m := buftest.NewImage(0x1000, encoding.DefaultLayout)
		m.PutSpan(0x1000, 0x1010, 2)
		m.PutPointer(0x1010, 0x1100)
		m.PutNull(0x1018)

		res, err := reg.Decode(m, lookup(t, tab, "offset_span<offset_ptr<int32>>"), 0x1000)
		require.NoError(t, err)
		var targets []string
		for _, ref := range res.(*SpanResult).Seq.All() {
			inner, err := reg.Decode(m, ref.Type, ref.Address)
			require.NoError(t, err)
			targets = append(targets, inner.String())
		}
		assert.Equal(t, []string{"(int32 *) 0x1100", "(int32 *) null"}, targets)
	})
}

func TestRegistry(t *testing.T) {
	reg, tab := newTestRegistry(t)

	t.Run("no decoder for scalars", func(t *testing.T) {
		_, err := reg.For(DescriptorOf(lookup(t, tab, "int32")))
		require.ErrorIs(t, err, ErrNoDecoder)
	})

	t.Run("unsized element types are unresolved", func(t *testing.T) {
		_, err := reg.For(Descriptor{Kind: types.KindOffsetSpan, Elem: &types.Type{Name: "opaque"}})
		require.ErrorIs(t, err, types.ErrUnresolvedType)
		_, err = reg.For(Descriptor{Kind: types.KindOffsetPointer})
		require.ErrorIs(t, err, types.ErrUnresolvedType)
	})

	t.Run("element types too large to read are unresolved", func(t *testing.T) {
		blob := &types.Type{Name: "blob", Size: 1 << 62, Kind: types.KindStruct}
		_, err := reg.For(Descriptor{Kind: types.KindOffsetPointer, Elem: blob})
		require.ErrorIs(t, err, types.ErrUnresolvedType)

		res := &PointerResult{Type: blob, Target: pointer.At(0x1000)}
		_, err = res.Deref(buftest.NewImage(0x1000, encoding.DefaultLayout))
		require.ErrorIs(t, err, types.ErrUnresolvedType)
	})

	t.Run("custom decoders", func(t *testing.T) {
		reg := NewRegistry()
		called := false
		reg.Register(types.KindStruct, func(elem *types.Type, layout encoding.Layout) (Decoder, error) {
			called = true
			return NewPointerDecoder(elem, layout)
		})
		_, err := reg.For(Descriptor{Kind: types.KindStruct, Elem: lookup(t, tab, "char")})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("invalid layout", func(t *testing.T) {
		reg := NewRegistry(WithLayout(encoding.Layout{PointerWidth: 3, Order: binary.LittleEndian}))
		_, err := reg.For(Descriptor{Kind: types.KindOffsetPointer, Elem: lookup(t, tab, "char")})
		require.Error(t, err)
	})
}
