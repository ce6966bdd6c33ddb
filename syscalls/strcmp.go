package syscalls

import (
	"context"
	"math"

	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
)

const IndexStrCmp = 3

// StrCmp compares the NUL-terminated strings at R1 and R2. It returns 0 when
// they are equal and otherwise the distance between the first differing
// bytes. A null pointer on either side yields math.MaxUint64.
//
// The length of either string is unknown up front, so every byte is
// translated on its own. A string that runs off its region faults at the
// first unmapped byte.
type StrCmp struct{}

func InitStrCmp(SyscallContext) Syscall {
	return &StrCmp{}
}

func (StrCmp) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	var (
		a = args.R1
		b = args.R2
	)

	if a == 0 || b == 0 {
		res.Ok(math.MaxUint64)
		return
	}

	for {
		ab, ok := translate(mem, res, memory.Load, a, 1)
		if !ok {
			return
		}

		bb, ok := translate(mem, res, memory.Load, b, 1)
		if !ok {
			return
		}

		x, y := ab[0], bb[0]

		if x != y || x == 0 {
			if x >= y {
				res.Ok(uint64(x - y))
			} else {
				res.Ok(uint64(y - x))
			}

			return
		}

		a++
		b++
	}
}

func init() {
	Builtins[IndexStrCmp] = Builtin{Name: "bpf_str_cmp", Init: InitStrCmp}
}
