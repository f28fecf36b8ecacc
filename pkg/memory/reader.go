// memory provides the memory-reading capability decoders read through: byte
// snapshots, multi-region images and memory mapped image files.
package memory

import (
	"errors"
	"fmt"

	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/pointer"
)

// ErrUnreadableMemory is returned when an address range is not accessible.
var ErrUnreadableMemory = errors.New("unreadable memory")

type UnreadableError struct {
	Addr pointer.Address
	Size int
	Err  error
}

func (e *UnreadableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable memory at %s+%d: %v", e.Addr, e.Size, e.Err)
	}
	return fmt.Sprintf("unreadable memory at %s+%d", e.Addr, e.Size)
}

func (e *UnreadableError) Is(target error) bool {
	return target == ErrUnreadableMemory
}

func (e *UnreadableError) Unwrap() error {
	return e.Err
}

// Reader reads the inspected address space. ReadAt fills all of p from addr
// or fails with an error wrapping ErrUnreadableMemory.
type Reader interface {
	ReadAt(p []byte, addr pointer.Address) error
}

// ReadOffsetPointer reads the offset field stored at addr.
func ReadOffsetPointer(r Reader, addr pointer.Address, layout encoding.Layout) (pointer.OffsetPointer, error) {
	b := make([]byte, layout.PointerWidth)
	if err := r.ReadAt(b, addr); err != nil {
		return pointer.OffsetPointer{}, err
	}
	off, err := layout.DecodeOffset(b)
	if err != nil {
		return pointer.OffsetPointer{}, err
	}
	return pointer.OffsetPointer{StorageAddress: addr, StoredOffset: off, Width: layout.PointerWidth}, nil
}

// ReadLength reads a span length stored at addr.
func ReadLength(r Reader, addr pointer.Address, layout encoding.Layout) (uint64, error) {
	b := make([]byte, encoding.LengthSize)
	if err := r.ReadAt(b, addr); err != nil {
		return 0, err
	}
	return layout.DecodeLength(b)
}
