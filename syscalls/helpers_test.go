package syscalls

import (
	"bytes"
	"context"
	"testing"

	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

// countingTranslator records how many translations a syscall asks for.
type countingTranslator struct {
	mem   memory.Translator
	calls int
}

func (c *countingTranslator) Translate(access memory.AccessType, addr, length uint64) ([]byte, error) {
	c.calls++

	if c.mem == nil {
		return nil, &memory.AccessViolation{Access: access, Addr: addr, Len: length, Reason: "nothing mapped"}
	}

	return c.mem.Translate(access, addr, length)
}

func newMapping(t *testing.T, regions ...*memory.Region) *countingTranslator {
	m, err := memory.NewMapping(regions...)
	require.NoError(t, err)

	return &countingTranslator{mem: m}
}

func call(sc Syscall, mem memory.Translator, args SysArgs) (uint64, error) {
	var res Result

	sc.Call(context.Background(), hclog.NewNullLogger(), mem, args, &res)

	if !res.Written() {
		panic("syscall wrote no result")
	}

	return res.Value()
}

func newBuffer() *bytes.Buffer {
	return &bytes.Buffer{}
}
