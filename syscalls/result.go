package syscalls

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownSyscall   = errors.New("unknown syscall")
	ErrDuplicateSyscall = errors.New("syscall index already registered")
	ErrDuplicateName    = errors.New("syscall name already registered")
)

// ContractViolation reports a host-side misconfiguration, never a guest
// fault. It is raised with panic and is not turned into a guest result.
type ContractViolation struct {
	Syscall string
	Reason  string
}

func (c *ContractViolation) Error() string {
	if c.Syscall == "" {
		return "contract violation: " + c.Reason
	}

	return fmt.Sprintf("contract violation in %s: %s", c.Syscall, c.Reason)
}

func violate(name, format string, args ...interface{}) {
	panic(&ContractViolation{
		Syscall: name,
		Reason:  fmt.Sprintf(format, args...),
	})
}

// Result is the output slot of one invocation. It holds a value or an error,
// and may be written only once.
type Result struct {
	val     uint64
	err     error
	written bool
}

func (r *Result) Ok(val uint64) {
	r.write(val, nil)
}

func (r *Result) Fail(err error) {
	if err == nil {
		violate("", "result failed with a nil error")
	}

	r.write(0, err)
}

func (r *Result) write(val uint64, err error) {
	if r.written {
		violate("", "result written twice")
	}

	r.val = val
	r.err = err
	r.written = true
}

func (r *Result) Written() bool {
	return r.written
}

func (r *Result) Value() (uint64, error) {
	return r.val, r.err
}
