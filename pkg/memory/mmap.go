package memory

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/kevmo314/offsetview/pkg/pointer"
	"golang.org/x/sys/unix"
)

// MappedFile is a read-only memory mapped image file placed at a base
// address. Reads go straight through the mapping.
type MappedFile struct {
	file *os.File
	snap Snapshot
}

var _ Reader = (*MappedFile)(nil)

// OpenMappedFile maps the file at path so that its first byte is at base.
func OpenMappedFile(path string, base pointer.Address) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := NewMappedFile(f, base)
	if err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

func NewMappedFile(f *os.File, base pointer.Address) (*MappedFile, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %v", err)
	}
	if fi.Size() == 0 {
		return &MappedFile{file: f, snap: Snapshot{Base: base}}, nil
	}
	b, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %v", err)
	}
	return &MappedFile{file: f, snap: Snapshot{Base: base, Data: b}}, nil
}

// Close unmaps the memory and closes the file.
func (m *MappedFile) Close() error {
	var err error
	if m.snap.Data != nil {
		err = unix.Munmap(m.snap.Data)
		m.snap.Data = nil
	}
	return errors.Join(err, m.file.Close())
}

// ReadAt reads through the mapping. A fault while touching the mapping, for
// example after the file was truncated, is reported as unreadable memory.
func (m *MappedFile) ReadAt(p []byte, addr pointer.Address) (err error) {
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = &UnreadableError{Addr: addr, Size: len(p), Err: errors.New("page fault reading memory map")}
		}
	}()
	return m.snap.ReadAt(p, addr)
}

// Snapshot returns a view of the mapping. It is only valid until Close.
func (m *MappedFile) Snapshot() *Snapshot {
	return &m.snap
}

func (m *MappedFile) Bytes() []byte {
	return m.snap.Data
}
