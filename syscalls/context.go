package syscalls

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
)

const IndexWithContext = 7

// States of the WithContext example. A fresh instance starts Initialized and
// moves to Used on its first call.
const (
	ContextInitialized SyscallContext = 42
	ContextUsed        SyscallContext = 84
)

// WithContext is an example of a syscall carrying private state between
// calls. Entering it in any state but ContextInitialized is a host bug.
type WithContext struct {
	Context SyscallContext
	Out     io.Writer
}

func InitWithContext(c SyscallContext) Syscall {
	return &WithContext{
		Context: c,
		Out:     os.Stdout,
	}
}

func (w *WithContext) SetOutput(out io.Writer) {
	w.Out = out
}

// Reset returns the instance to ContextInitialized.
func (w *WithContext) Reset() {
	w.Context = ContextInitialized
}

func (w *WithContext) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	if w.Context != ContextInitialized {
		violate("syscall_with_context", "context is %d on entry, expected %d", w.Context, ContextInitialized)
	}

	fmt.Fprintf(w.Out, "syscall_with_context: %#x, %#x, %#x, %#x, %#x\n", args.R1, args.R2, args.R3, args.R4, args.R5)

	w.Context = ContextUsed

	res.Ok(0)
}

func init() {
	Builtins[IndexWithContext] = Builtin{
		Name:    "syscall_with_context",
		Init:    InitWithContext,
		Context: ContextInitialized,
	}
}
