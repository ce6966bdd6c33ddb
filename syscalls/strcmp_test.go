package syscalls

import (
	"math"
	"testing"

	"github.com/evanphx/ebpfcall/memory"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestStrCmp(t *testing.T) {
	n := neko.Modern(t)

	const (
		vaFoo = 0x100000000
		vaBar = 0x200000000
	)

	foo := []byte("This is a string.\x00")
	bar := []byte("This is another sting.\x00")

	n.It("returns zero for equal strings", func(t *testing.T) {
		mem := newMapping(t, memory.NewReadOnlyRegion(vaFoo, foo))

		ret, err := call(InitStrCmp(0), mem, SysArgs{R1: vaFoo, R2: vaFoo})
		require.NoError(t, err)
		require.Equal(t, uint64(0), ret)
	})

	n.It("returns non-zero for different strings", func(t *testing.T) {
		mem := newMapping(t,
			memory.NewReadOnlyRegion(vaFoo, foo),
			memory.NewReadOnlyRegion(vaBar, bar),
		)

		ret, err := call(InitStrCmp(0), mem, SysArgs{R1: vaFoo, R2: vaBar})
		require.NoError(t, err)
		require.NotEqual(t, uint64(0), ret)

		// first mismatch is ' ' (0x20) against 'n' (0x6e)
		require.Equal(t, uint64(0x6e-0x20), ret)

		back, err := call(InitStrCmp(0), mem, SysArgs{R1: vaBar, R2: vaFoo})
		require.NoError(t, err)
		require.Equal(t, ret, back)
	})

	n.It("treats a shorter prefix as different", func(t *testing.T) {
		mem := newMapping(t,
			memory.NewReadOnlyRegion(vaFoo, []byte("abc\x00")),
			memory.NewReadOnlyRegion(vaBar, []byte("abcd\x00")),
		)

		ret, err := call(InitStrCmp(0), mem, SysArgs{R1: vaFoo, R2: vaBar})
		require.NoError(t, err)
		require.Equal(t, uint64('d'), ret)
	})

	n.It("short-circuits null pointers without translating", func(t *testing.T) {
		mem := newMapping(t, memory.NewReadOnlyRegion(vaFoo, foo))

		ret, err := call(InitStrCmp(0), mem, SysArgs{R1: 0, R2: vaFoo})
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), ret)

		ret, err = call(InitStrCmp(0), mem, SysArgs{R1: vaFoo, R2: 0})
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), ret)

		require.Equal(t, 0, mem.calls)
	})

	n.It("translates one byte at a time", func(t *testing.T) {
		mem := newMapping(t, memory.NewReadOnlyRegion(vaFoo, []byte("ab\x00")))

		_, err := call(InitStrCmp(0), mem, SysArgs{R1: vaFoo, R2: vaFoo})
		require.NoError(t, err)
		require.Equal(t, 6, mem.calls)
	})

	n.It("faults at the first byte past the region", func(t *testing.T) {
		mem := newMapping(t,
			memory.NewReadOnlyRegion(vaFoo, []byte("abc")),
			memory.NewReadOnlyRegion(vaBar, []byte("abcdef\x00")),
		)

		_, err := call(InitStrCmp(0), mem, SysArgs{R1: vaFoo, R2: vaBar})
		require.True(t, memory.IsAccessViolation(err))

		var av *memory.AccessViolation
		require.ErrorAs(t, err, &av)
		require.Equal(t, uint64(vaFoo+3), av.Addr)
		require.Equal(t, uint64(1), av.Len)
		require.Equal(t, memory.Load, av.Access)
	})

	n.Meow()
}
