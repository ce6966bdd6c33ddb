package memory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestMapping(t *testing.T) {
	n := neko.Modern(t)

	n.It("translates a range inside a region", func(t *testing.T) {
		data := []byte("hello, guest")

		m, err := NewMapping(NewReadOnlyRegion(0x100000000, data))
		require.NoError(t, err)

		span, err := m.Translate(Load, 0x100000007, 5)
		require.NoError(t, err)

		require.Equal(t, "guest", string(span))
		require.Equal(t, 5, cap(span))
	})

	n.It("returns spans that alias region memory", func(t *testing.T) {
		data := make([]byte, 4)

		m, err := NewMapping(NewWritableRegion(0x2000, data))
		require.NoError(t, err)

		span, err := m.Translate(Store, 0x2001, 2)
		require.NoError(t, err)

		span[0] = 0xaa
		span[1] = 0xbb

		require.Equal(t, []byte{0, 0xaa, 0xbb, 0}, data)
	})

	n.It("rejects a range running past the region end", func(t *testing.T) {
		m, err := NewMapping(NewWritableRegion(0x2000, make([]byte, 8)))
		require.NoError(t, err)

		_, err = m.Translate(Load, 0x2004, 5)
		require.Error(t, err)
		require.True(t, IsAccessViolation(err))

		var av *AccessViolation
		require.True(t, errors.As(err, &av))
		require.Equal(t, uint64(0x2004), av.Addr)
		require.Equal(t, uint64(5), av.Len)
		require.Equal(t, Load, av.Access)
	})

	n.It("rejects stores to read-only regions", func(t *testing.T) {
		m, err := NewMapping(NewReadOnlyRegion(0x2000, make([]byte, 8)))
		require.NoError(t, err)

		_, err = m.Translate(Load, 0x2000, 8)
		require.NoError(t, err)

		_, err = m.Translate(Store, 0x2000, 1)
		require.True(t, IsAccessViolation(err))

		var av *AccessViolation
		require.True(t, errors.As(err, &av))
		require.Equal(t, Store, av.Access)
	})

	n.It("never translates the null address", func(t *testing.T) {
		m, err := NewMapping(NewWritableRegion(0x2000, make([]byte, 8)))
		require.NoError(t, err)

		_, err = m.Translate(Load, 0, 1)
		require.True(t, IsAccessViolation(err))
	})

	n.It("rejects ranges that wrap", func(t *testing.T) {
		m, err := NewMapping(NewWritableRegion(0x2000, make([]byte, 8)))
		require.NoError(t, err)

		_, err = m.Translate(Load, 0x2000, ^uint64(0))
		require.True(t, IsAccessViolation(err))
	})

	n.It("does not span adjacent regions", func(t *testing.T) {
		m, err := NewMapping(
			NewWritableRegion(0x2000, make([]byte, 0x10)),
			NewWritableRegion(0x2010, make([]byte, 0x10)),
		)
		require.NoError(t, err)

		_, err = m.Translate(Load, 0x2008, 0x10)
		require.True(t, IsAccessViolation(err))

		span, err := m.Translate(Load, 0x2010, 0x10)
		require.NoError(t, err)
		require.Len(t, span, 0x10)
	})

	n.It("allows empty translations of mapped addresses", func(t *testing.T) {
		m, err := NewMapping(NewWritableRegion(0x2000, make([]byte, 8)))
		require.NoError(t, err)

		span, err := m.Translate(Store, 0x2003, 0)
		require.NoError(t, err)
		require.Len(t, span, 0)
	})

	n.It("rejects overlapping regions", func(t *testing.T) {
		_, err := NewMapping(
			NewWritableRegion(0x2000, make([]byte, 0x20)),
			NewWritableRegion(0x2010, make([]byte, 0x20)),
		)
		require.Equal(t, ErrOverlappingRegion, errors.Cause(err))
	})

	n.It("rejects regions on the null page", func(t *testing.T) {
		_, err := NewMapping(NewWritableRegion(0, make([]byte, 8)))
		require.Equal(t, ErrNullRegion, errors.Cause(err))
	})

	n.It("forgets cached lookups after unmap", func(t *testing.T) {
		m, err := NewMapping(NewWritableRegion(0x2000, make([]byte, 8)))
		require.NoError(t, err)

		_, err = m.Translate(Load, 0x2000, 8)
		require.NoError(t, err)

		reg, err := m.Unmap(0x2000)
		require.NoError(t, err)
		require.Equal(t, uint64(0x2000), reg.Start)

		_, err = m.Translate(Load, 0x2000, 8)
		require.True(t, IsAccessViolation(err))

		_, err = m.Unmap(0x2000)
		require.Equal(t, ErrUnknownRegion, errors.Cause(err))
	})

	n.It("keeps regions sorted", func(t *testing.T) {
		m, err := NewMapping(
			NewWritableRegion(0x9000, make([]byte, 8)),
			NewWritableRegion(0x3000, make([]byte, 8)),
			NewWritableRegion(0x5000, make([]byte, 8)),
		)
		require.NoError(t, err)

		var starts []uint64
		for _, reg := range m.Regions() {
			starts = append(starts, reg.Start)
		}

		require.Equal(t, []uint64{0x3000, 0x5000, 0x9000}, starts)
		require.Equal(t, uint64(24), m.Size())

		reg, ok := m.FindRegion(0x5007)
		require.True(t, ok)
		require.Equal(t, uint64(0x5000), reg.Start)

		_, ok = m.FindRegion(0x5008)
		require.False(t, ok)
	})

	n.It("allocates anonymous regions", func(t *testing.T) {
		reg, err := NewAnonymousRegion(0x10000, PageSize, true)
		require.NoError(t, err)

		defer reg.Release()

		m, err := NewMapping(reg)
		require.NoError(t, err)

		span, err := m.Translate(Store, 0x10000, PageSize)
		require.NoError(t, err)
		require.Equal(t, make([]byte, PageSize), span)

		_, err = NewAnonymousRegion(0x10000, 0, true)
		require.Equal(t, ErrEmptyRegion, err)
	})

	n.Meow()
}
