package syscalls

import (
	"context"

	"github.com/evanphx/ebpfcall/log"
	"github.com/evanphx/ebpfcall/memory"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

type Invoker struct {
	Registry *Registry
	L        hclog.Logger
}

func (i *Invoker) logger() hclog.Logger {
	if i.L != nil {
		return i.L
	}

	return log.L
}

// Invoke runs the syscall bound to idx synchronously and returns its
// outcome. Translation failures come back as errors for the guest; contract
// violations panic through Invoke untouched.
func (i *Invoker) Invoke(ctx context.Context, idx uint32, mem memory.Translator, args SysArgs) (uint64, error) {
	l := i.logger()

	sc, ok := i.Registry.Lookup(idx)
	if !ok {
		l.Trace("syscall", "index", idx, "name", "<unknown>")
		return 0, errors.Wrapf(ErrUnknownSyscall, "index=%d", idx)
	}

	name := i.Registry.Name(idx)

	l.Trace("syscall", "index", idx, "name", name,
		"r1", hclog.Hex(args.R1), "r2", hclog.Hex(args.R2), "r3", hclog.Hex(args.R3),
		"r4", hclog.Hex(args.R4), "r5", hclog.Hex(args.R5))

	scope := &scopedTranslator{name: name, mem: mem}

	var res Result

	sc.Call(ctx, l.Named(name), scope, args, &res)

	scope.revoke()

	if !res.Written() {
		violate(name, "returned without writing a result")
	}

	val, err := res.Value()
	if err != nil {
		l.Trace("syscall failed", "index", idx, "name", name, "error", err)
		return 0, err
	}

	l.Trace("syscall returned", "index", idx, "name", name, "value", hclog.Hex(val))

	return val, nil
}

// scopedTranslator stops working once the invocation it was handed to
// returns, so a syscall that holds on to it is caught on first use.
type scopedTranslator struct {
	name    string
	mem     memory.Translator
	revoked bool
}

func (s *scopedTranslator) Translate(access memory.AccessType, addr, length uint64) ([]byte, error) {
	if s.revoked {
		violate(s.name, "translator used after its invocation returned")
	}

	return s.mem.Translate(access, addr, length)
}

func (s *scopedTranslator) revoke() {
	s.revoked = true
	s.mem = nil
}
