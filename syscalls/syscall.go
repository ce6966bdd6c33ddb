package syscalls

import (
	"context"

	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
)

// SysArgs are the five argument registers of a guest call instruction.
// A syscall reads the positions it needs and ignores the rest.
type SysArgs struct {
	R1, R2, R3, R4, R5 uint64
}

// SyscallContext is private state handed to a syscall when it is registered.
// It belongs to that one instance and persists across its invocations.
type SyscallContext uint64

// Syscall is a host function callable from guest code. Call must write res
// exactly once and must not keep mem, or any span obtained from it, past its
// return.
type Syscall interface {
	Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result)
}

// Init builds a Syscall from its initial context at registration time.
type Init func(SyscallContext) Syscall

// SyscallFunc adapts a plain function into a stateless Syscall.
type SyscallFunc func(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs) (uint64, error)

func (f SyscallFunc) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	val, err := f(ctx, l, mem, args)
	if err != nil {
		res.Fail(err)
		return
	}

	res.Ok(val)
}

// Stateless returns an Init that ignores its context and always yields f.
func Stateless(f SyscallFunc) Init {
	return func(SyscallContext) Syscall {
		return f
	}
}

// translate requests a span from mem and, on failure, records the error in
// res. Callers return immediately when ok is false.
func translate(mem memory.Translator, res *Result, access memory.AccessType, addr, length uint64) ([]byte, bool) {
	span, err := mem.Translate(access, addr, length)
	if err != nil {
		res.Fail(err)
		return nil, false
	}

	return span, true
}
