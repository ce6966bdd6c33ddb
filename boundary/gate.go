package boundary

import (
	"context"
	"fmt"

	"github.com/evanphx/ebpfcall/log"
	"github.com/evanphx/ebpfcall/memory"
	"github.com/evanphx/ebpfcall/syscalls"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

type SyscallInvoker interface {
	Invoke(ctx context.Context, idx uint32, mem memory.Translator, args syscalls.SysArgs) (uint64, error)
}

// Registers is the guest register file. R0 receives return values and
// R1-R5 carry call arguments.
type Registers [11]uint64

// Fault records the guest-visible failure that stopped a call.
type Fault struct {
	Index uint32
	Name  string
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("syscall %s (%d) faulted: %s", f.Name, f.Index, f.Err)
}

func (f *Fault) Cause() error {
	return f.Err
}

// Machine is the slice of VM state a call instruction reads and writes.
type Machine struct {
	Regs  Registers
	Fault *Fault
}

type Gate struct {
	L       hclog.Logger
	Invoker SyscallInvoker

	// Names resolves indexes for diagnostics. Optional.
	Names func(idx uint32) string
}

func (g *Gate) logger() hclog.Logger {
	if g.L != nil {
		return g.L
	}

	return log.L
}

func (g *Gate) name(idx uint32) string {
	if g.Names == nil {
		return fmt.Sprintf("#%d", idx)
	}

	return g.Names(idx)
}

// Call executes the call instruction for idx against m. On success the
// result lands in R0; on failure m.Fault is set, R0 is left alone and
// false is returned so the interpreter can stop the guest.
func (g *Gate) Call(ctx context.Context, m *Machine, mem memory.Translator, idx uint32) bool {
	args := syscalls.SysArgs{
		R1: m.Regs[1],
		R2: m.Regs[2],
		R3: m.Regs[3],
		R4: m.Regs[4],
		R5: m.Regs[5],
	}

	val, err := g.Invoker.Invoke(ctx, idx, mem, args)
	if err != nil {
		m.Fault = &Fault{
			Index: idx,
			Name:  g.name(idx),
			Err:   err,
		}

		g.logger().Debug("guest fault", "index", idx, "name", m.Fault.Name, "error", err)
		return false
	}

	m.Regs[0] = val

	return true
}

var ErrTooManyArgs = errors.New("syscalls take at most five arguments")

// Invoke is a convenience for hosts calling a syscall directly with up to
// five arguments. Missing arguments are zero.
func (g *Gate) Invoke(ctx context.Context, mem memory.Translator, idx uint32, args ...uint64) (uint64, error) {
	if len(args) > 5 {
		return 0, errors.Wrapf(ErrTooManyArgs, "got %d", len(args))
	}

	var m Machine
	copy(m.Regs[1:6], args)

	if !g.Call(ctx, &m, mem, idx) {
		return 0, m.Fault
	}

	return m.Regs[0], nil
}
