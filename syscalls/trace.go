package syscalls

import (
	"context"
	"fmt"
	"io"
	"math/bits"
	"os"
	"unicode/utf8"

	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
)

const (
	IndexTracePrintf = 6
	IndexLogString   = 4
	IndexDumpU64     = 5
)

const traceFormat = "BpfTracePrintf: %#x, %#x, %#x\n"

// Size of traceFormat's output without any digits.
var traceOverhead = uint64(len("BpfTracePrintf: 0x, 0x, 0x\n"))

// hexDigits counts the hex digits of x, with 0 taking one. It works on the
// bit length rather than a floating-point log16, which rounds values near
// 2^64 up and reports 17 digits for ^uint64(0) instead of 16.
func hexDigits(x uint64) uint64 {
	if x == 0 {
		return 1
	}

	return uint64((bits.Len64(x) + 3) / 4)
}

// TracePrintf prints its last three arguments in hex, like the kernel's
// bpf_trace_printk with the format and size arguments dropped. It returns
// the number of bytes the message takes, computed from the operands.
type TracePrintf struct {
	Out io.Writer
}

func InitTracePrintf(SyscallContext) Syscall {
	return &TracePrintf{Out: os.Stdout}
}

func (t *TracePrintf) SetOutput(w io.Writer) {
	t.Out = w
}

func (t *TracePrintf) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	fmt.Fprintf(t.Out, traceFormat, args.R3, args.R4, args.R5)

	res.Ok(traceOverhead + hexDigits(args.R3) + hexDigits(args.R4) + hexDigits(args.R5))
}

// Printed instead of guest text that is not valid UTF-8.
const invalidUTF8Placeholder = "Invalid UTF-8 String"

// LogString prints the R2 bytes at R1 as UTF-8. The whole range is
// decoded, NULs included; any invalid byte in it replaces the message with
// a placeholder.
type LogString struct {
	Out io.Writer
}

func InitLogString(SyscallContext) Syscall {
	return &LogString{Out: os.Stdout}
}

func (s *LogString) SetOutput(w io.Writer) {
	s.Out = w
}

func (s *LogString) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	var (
		addr = args.R1
		sz   = args.R2
	)

	span, ok := translate(mem, res, memory.Load, addr, sz)
	if !ok {
		return
	}

	msg := invalidUTF8Placeholder
	if utf8.Valid(span) {
		msg = string(span)
	} else {
		l.Debug("guest string is not valid utf-8", "addr", hclog.Hex(addr), "len", sz)
	}

	fmt.Fprintf(s.Out, "log: %s\n", msg)

	res.Ok(0)
}

// DumpU64 prints all five arguments in hex.
type DumpU64 struct {
	Out io.Writer
}

func InitDumpU64(SyscallContext) Syscall {
	return &DumpU64{Out: os.Stdout}
}

func (d *DumpU64) SetOutput(w io.Writer) {
	d.Out = w
}

func (d *DumpU64) Call(ctx context.Context, l hclog.Logger, mem memory.Translator, args SysArgs, res *Result) {
	fmt.Fprintf(d.Out, "dump_64: %#x, %#x, %#x, %#x, %#x\n", args.R1, args.R2, args.R3, args.R4, args.R5)

	res.Ok(0)
}

func init() {
	Builtins[IndexTracePrintf] = Builtin{Name: "bpf_trace_printf", Init: InitTracePrintf}
	Builtins[IndexLogString] = Builtin{Name: "bpf_syscall_string", Init: InitLogString}
	Builtins[IndexDumpU64] = Builtin{Name: "bpf_syscall_u64", Init: InitDumpU64}
}
