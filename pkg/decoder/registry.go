// decoder turns encoded offset pointers and spans found in memory into
// tagged results a display layer can consume.
//
// Decoders are selected through a Registry keyed by the structured kind of
// a type descriptor, not by matching type names.
package decoder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/memory"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/kevmo314/offsetview/pkg/types"
	"go.uber.org/zap"
)

var (
	// ErrNoDecoder is returned when no decoder is registered for a kind.
	ErrNoDecoder = errors.New("no decoder for kind")

	// ErrNullDeref is returned when reading through a null pointer.
	ErrNullDeref = errors.New("dereference of null offset pointer")
)

// Descriptor selects a decoder: the kind of the encoded value and its
// element type.
type Descriptor struct {
	Kind types.Kind
	Elem *types.Type
}

// DescriptorOf returns the descriptor of an offset pointer or span type.
func DescriptorOf(t *types.Type) Descriptor {
	if t == nil {
		return Descriptor{}
	}
	return Descriptor{Kind: t.Kind, Elem: t.Elem}
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s<%s>", d.Kind, d.Elem)
}

// Result is the outcome of decoding one encoded value.
type Result interface {
	fmt.Stringer
	Descriptor() Descriptor
}

type Decoder interface {
	// Decode reads the encoded value stored at addr. It reads only the
	// encoding itself, never the elements it refers to.
	Decode(mem memory.Reader, addr pointer.Address) (Result, error)
}

type Constructor func(elem *types.Type, layout encoding.Layout) (Decoder, error)

type Registry struct {
	layout encoding.Layout
	logger *zap.Logger

	mu           sync.RWMutex
	constructors map[types.Kind]Constructor
}

type Option func(*Registry)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithLayout(layout encoding.Layout) Option {
	return func(r *Registry) {
		r.layout = layout
	}
}

// NewRegistry returns a registry holding the offset pointer and offset span
// decoders.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		layout:       encoding.DefaultLayout,
		logger:       zap.NewNop(),
		constructors: make(map[types.Kind]Constructor),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Register(types.KindOffsetPointer, NewPointerDecoder)
	r.Register(types.KindOffsetSpan, NewSpanDecoder)
	return r
}

func (r *Registry) Layout() encoding.Layout {
	return r.layout
}

// Register installs c for kind, replacing any previous constructor.
func (r *Registry) Register(kind types.Kind, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[kind] = c
}

// For builds the decoder for desc.
func (r *Registry) For(desc Descriptor) (Decoder, error) {
	r.mu.RLock()
	c, ok := r.constructors[desc.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNoDecoder, desc.Kind)
	}
	if err := desc.Elem.Sized(); err != nil {
		return nil, fmt.Errorf("decoder for %s: %w", desc, err)
	}
	return c(desc.Elem, r.layout)
}

// Decode decodes the value of type t stored at addr.
func (r *Registry) Decode(mem memory.Reader, t *types.Type, addr pointer.Address) (Result, error) {
	d, err := r.For(DescriptorOf(t))
	if err != nil {
		return nil, err
	}
	res, err := d.Decode(mem, addr)
	if err != nil {
		r.logger.Debug("decode failed", zap.Stringer("type", t), zap.Stringer("addr", addr), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("decoded", zap.Stringer("type", t), zap.Stringer("addr", addr), zap.Stringer("result", res))
	return res, nil
}
