// pointer decodes self-relative offset pointers.
//
// An offset pointer stores the distance in bytes from its own storage location
// to its target, so a structure built from them can be copied or mapped at any
// base address. The stored value 1 is reserved to mean null, which leaves 0
// free to encode a pointer to itself.
package pointer

import (
	"errors"
	"fmt"
)

// NullOffset is the stored offset that encodes a null pointer.
const NullOffset = 1

// ErrUnencodable is returned when a target cannot be represented as an offset
// from the given storage address.
var ErrUnencodable = errors.New("target not encodable as an offset")

// Address is a byte address in the inspected address space.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// Width is the encoded size of an offset in bytes. Addresses resolved at a
// narrow width are truncated to that width, so storage addresses must fit in
// it (see Fits).
type Width int

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// Valid reports whether w is a supported pointer width.
func (w Width) Valid() bool {
	switch w {
	case Width8, Width16, Width32, Width64:
		return true
	}
	return false
}

// Mask returns the mask applied to addresses computed at this width. Widths
// that are not valid are treated as 64 bits.
func (w Width) Mask() uint64 {
	if !w.Valid() || w == Width64 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * uint(w))) - 1
}

// Fits reports whether addr is representable at width w.
func (w Width) Fits(addr Address) bool {
	return uint64(addr)&^w.Mask() == 0
}

// Resolved is the outcome of resolving an offset pointer: either null or an
// address. The zero value is null.
type Resolved struct {
	addr  Address
	valid bool
}

// Null returns the null resolution.
func Null() Resolved {
	return Resolved{}
}

// At returns a non-null resolution pointing at addr.
func At(addr Address) Resolved {
	return Resolved{addr: addr, valid: true}
}

func (r Resolved) IsNull() bool {
	return !r.valid
}

// Address returns the resolved address. ok is false for a null pointer.
func (r Resolved) Address() (addr Address, ok bool) {
	return r.addr, r.valid
}

// Equal compares the resolved targets, not the encodings they came from.
func (r Resolved) Equal(other Resolved) bool {
	if r.valid != other.valid {
		return false
	}
	return !r.valid || r.addr == other.addr
}

func (r Resolved) String() string {
	if !r.valid {
		return "null"
	}
	return r.addr.String()
}

// Resolve maps the address of an offset field and the value stored in it to
// the target address, using 64-bit wrap-around arithmetic. It never fails and
// never reads memory.
func Resolve(storage Address, offset int64) Resolved {
	return resolve(storage, offset, Width64)
}

func resolve(storage Address, offset int64, w Width) Resolved {
	if offset == NullOffset {
		return Null()
	}
	return At(Address((uint64(storage) + uint64(offset)) & w.Mask()))
}

// OffsetPointer is an encoded pointer as found in memory. It does not own
// the memory it refers to.
type OffsetPointer struct {
	// StorageAddress is the address of the offset field itself, not of the
	// structure that contains it.
	StorageAddress Address
	StoredOffset   int64
	// Width is the encoded size of StoredOffset. Zero means 64 bits.
	Width Width
}

func (p OffsetPointer) IsNull() bool {
	return p.StoredOffset == NullOffset
}

// Resolve returns the target of p, wrapping within p's pointer width.
func (p OffsetPointer) Resolve() Resolved {
	w := p.Width
	if w == 0 {
		w = Width64
	}
	return resolve(p.StorageAddress, p.StoredOffset, w)
}

func (p OffsetPointer) String() string {
	return fmt.Sprintf("OffsetPointer@%s{%+d}", p.StorageAddress, p.StoredOffset)
}

// Encode computes the offset to store at storage so that it resolves to
// target.
func Encode(storage Address, target Resolved) (int64, error) {
	addr, ok := target.Address()
	if !ok {
		return NullOffset, nil
	}
	offset := int64(uint64(addr) - uint64(storage))
	if offset == NullOffset {
		return 0, fmt.Errorf("%w: %s is one byte past %s", ErrUnencodable, addr, storage)
	}
	return offset, nil
}

// Translate relocates a resolved address from an image loaded at srcBase to
// the same location in a copy loaded at dstBase.
func Translate(r Resolved, srcBase, dstBase Address) Resolved {
	addr, ok := r.Address()
	if !ok {
		return r
	}
	return At(addr - srcBase + dstBase)
}
