package memory

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/kevmo314/offsetview/pkg/encoding"
	"github.com/kevmo314/offsetview/pkg/pointer"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	s := NewSnapshot(0x1000, []byte("Hello, world!"))

	t.Run("reads inside the region", func(t *testing.T) {
		b := make([]byte, 5)
		require.NoError(t, s.ReadAt(b, 0x1007))
		assert.Equal(t, "world", string(b))
	})

	t.Run("reads past the end are unreadable", func(t *testing.T) {
		err := s.ReadAt(make([]byte, 8), 0x1008)
		require.ErrorIs(t, err, ErrUnreadableMemory)
		var ue *UnreadableError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, pointer.Address(0x1008), ue.Addr)
		assert.Equal(t, 8, ue.Size)
	})

	t.Run("reads before the base are unreadable", func(t *testing.T) {
		require.ErrorIs(t, s.ReadAt(make([]byte, 1), 0xfff), ErrUnreadableMemory)
	})

	t.Run("fingerprint follows content", func(t *testing.T) {
		same := NewSnapshot(0x9000, []byte("Hello, world!"))
		other := NewSnapshot(0x1000, []byte("Hello, there!"))
		assert.Equal(t, s.Fingerprint(), same.Fingerprint())
		assert.NotEqual(t, s.Fingerprint(), other.Fingerprint())
	})
}

func TestReadSnapshot(t *testing.T) {
	raw := bytes.Repeat([]byte{1, 2, 3, 4}, 64)

	t.Run("raw", func(t *testing.T) {
		s, err := ReadSnapshot(bytes.NewReader(raw), 0x4000)
		require.NoError(t, err)
		assert.Equal(t, raw, s.Data)
		assert.Equal(t, pointer.Address(0x4000), s.Base)
	})

	t.Run("zstd", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll(raw, nil)
		require.NoError(t, enc.Close())

		assert.True(t, IsCompressed(compressed[:ZstdMagicSize]))
		assert.False(t, IsCompressed(raw))
		assert.False(t, IsCompressed(nil))

		s, err := ReadSnapshot(bytes.NewReader(compressed), 0x4000)
		require.NoError(t, err)
		assert.Equal(t, raw, s.Data)
	})
}

func TestRegions(t *testing.T) {
	r := NewRegions()
	require.NoError(t, r.Add(NewSnapshot(0x1000, []byte{1, 2, 3, 4})))
	require.NoError(t, r.Add(NewSnapshot(0x1004, []byte{5, 6, 7, 8})))
	require.NoError(t, r.Add(NewSnapshot(0x2000, []byte{9, 10})))
	require.NoError(t, r.Add(NewSnapshot(0x3000, nil)))
	assert.Equal(t, 3, r.Len())

	t.Run("lookup", func(t *testing.T) {
		s, ok := r.Region(0x1005)
		require.True(t, ok)
		assert.Equal(t, pointer.Address(0x1004), s.Base)
		_, ok = r.Region(0x1008)
		assert.False(t, ok)
	})

	t.Run("stitches adjacent regions", func(t *testing.T) {
		b := make([]byte, 6)
		require.NoError(t, r.ReadAt(b, 0x1001))
		assert.Equal(t, []byte{2, 3, 4, 5, 6, 7}, b)
	})

	t.Run("gaps are unreadable", func(t *testing.T) {
		require.ErrorIs(t, r.ReadAt(make([]byte, 8), 0x1004), ErrUnreadableMemory)
		require.ErrorIs(t, r.ReadAt(make([]byte, 1), 0x500), ErrUnreadableMemory)
	})

	t.Run("rejects overlaps", func(t *testing.T) {
		require.Error(t, r.Add(NewSnapshot(0x1002, []byte{0, 0})))
		require.Error(t, r.Add(NewSnapshot(0x0ffe, []byte{0, 0, 0})))
		require.Error(t, r.Add(NewSnapshot(0x2000, []byte{0})))
	})
}

func TestReadOffsetPointer(t *testing.T) {
	b := make([]byte, 24)
	binary.LittleEndian.PutUint64(b[0:], 0x10)
	binary.LittleEndian.PutUint64(b[8:], 3)
	s := NewSnapshot(0x1000, b)

	p, err := ReadOffsetPointer(s, 0x1000, encoding.DefaultLayout)
	require.NoError(t, err)
	assert.Equal(t, pointer.OffsetPointer{StorageAddress: 0x1000, StoredOffset: 0x10, Width: pointer.Width64}, p)

	n, err := ReadLength(s, 0x1008, encoding.DefaultLayout)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	_, err = ReadOffsetPointer(s, 0x1014, encoding.DefaultLayout)
	require.ErrorIs(t, err, ErrUnreadableMemory)
}

func TestMappedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	require.NoError(t, os.WriteFile(path, []byte("Hello, world!"), 0644))

	m, err := OpenMappedFile(path, 0x7000)
	require.NoError(t, err)
	defer m.Close()

	b := make([]byte, 5)
	require.NoError(t, m.ReadAt(b, 0x7000))
	assert.Equal(t, "Hello", string(b))
	require.ErrorIs(t, m.ReadAt(b, 0x700a), ErrUnreadableMemory)
	assert.Equal(t, NewSnapshot(0, []byte("Hello, world!")).Fingerprint(), m.Snapshot().Fingerprint())
}

func TestMappedFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	m, err := OpenMappedFile(path, 0)
	require.NoError(t, err)
	require.ErrorIs(t, m.ReadAt(make([]byte, 1), 0), ErrUnreadableMemory)
	require.NoError(t, m.Close())
}
