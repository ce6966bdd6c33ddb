package syscalls

import (
	"context"

	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
)

const IndexMemFrob = 2

const frobMask = 0b101010

// MemFrob is memfrob(3): every byte of [R1, R1+R2) is XORed with 42 in
// place. Running it twice over the same range restores the original bytes.
type MemFrob struct{}

func InitMemFrob(SyscallContext) Syscall {
	return &MemFrob{}
}

func (MemFrob) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	var (
		addr = args.R1
		sz   = args.R2
	)

	span, ok := translate(mem, res, memory.Store, addr, sz)
	if !ok {
		return
	}

	for i := range span {
		span[i] ^= frobMask
	}

	res.Ok(0)
}

func init() {
	Builtins[IndexMemFrob] = Builtin{Name: "bpf_mem_frob", Init: InitMemFrob}
}
