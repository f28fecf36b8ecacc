// types describes the element types that offset pointers and spans refer to.
package types

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnresolvedType is returned when a type or its size cannot be determined.
var ErrUnresolvedType = errors.New("unresolved type")

type UnresolvedError struct {
	Name   string
	Reason string
}

func (e *UnresolvedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unresolved type %q", e.Name)
	}
	return fmt.Sprintf("unresolved type %q: %s", e.Name, e.Reason)
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolvedType
}

type Kind uint8

const (
	KindScalar Kind = iota
	KindStruct
	KindOffsetPointer
	KindOffsetSpan
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindStruct:
		return "struct"
	case KindOffsetPointer:
		return "offset_ptr"
	case KindOffsetSpan:
		return "offset_span"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "scalar":
		return KindScalar, nil
	case "struct":
		return KindStruct, nil
	case "offset_ptr":
		return KindOffsetPointer, nil
	case "offset_span":
		return KindOffsetSpan, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// Type is a type descriptor. Offset pointer and span types carry their
// element type in Elem.
type Type struct {
	Name string
	Size uint64
	Kind Kind
	Elem *Type
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// MaxSize is the largest type size that can be read into a buffer.
const MaxSize = math.MaxInt32

// Sized returns an error wrapping ErrUnresolvedType if t cannot be used to
// address elements.
func (t *Type) Sized() error {
	if t == nil {
		return &UnresolvedError{Name: "<nil>", Reason: "missing type"}
	}
	if t.Size == 0 {
		return &UnresolvedError{Name: t.Name, Reason: "size unknown"}
	}
	if t.Size > MaxSize {
		return &UnresolvedError{Name: t.Name, Reason: fmt.Sprintf("size %d exceeds %d", t.Size, MaxSize)}
	}
	return nil
}

// IsOffset reports whether values of t are offset pointers or spans.
func (t *Type) IsOffset() bool {
	return t != nil && (t.Kind == KindOffsetPointer || t.Kind == KindOffsetSpan)
}
