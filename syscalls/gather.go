package syscalls

import (
	"context"

	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
)

const IndexGatherBytes = 1

// GatherBytes packs the low byte of each argument into one value, R1 in
// bits 32-39 down to R5 in bits 0-7.
type GatherBytes struct{}

func InitGatherBytes(SyscallContext) Syscall {
	return &GatherBytes{}
}

func (GatherBytes) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	res.Ok((args.R1&0xff)<<32 |
		(args.R2&0xff)<<24 |
		(args.R3&0xff)<<16 |
		(args.R4&0xff)<<8 |
		args.R5&0xff)
}

func init() {
	Builtins[IndexGatherBytes] = Builtin{Name: "bpf_gather_bytes", Init: InitGatherBytes}
}
