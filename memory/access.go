package memory

import (
	"fmt"

	"github.com/pkg/errors"
)

// AccessType declares what a translation will be used for. Store implies
// every check Load performs plus write permission.
type AccessType int

const (
	Load AccessType = iota
	Store
)

func (a AccessType) String() string {
	switch a {
	case Load:
		return "load"
	case Store:
		return "store"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// Translator turns a guest address range into a host span. The returned
// slice has exactly length bytes and is only valid until the syscall that
// requested it returns.
type Translator interface {
	Translate(access AccessType, addr, length uint64) ([]byte, error)
}

var ErrAccessViolation = errors.New("access violation")

// AccessViolation is returned when a requested range is not fully covered by
// a single region that permits the access.
type AccessViolation struct {
	Access AccessType
	Addr   uint64
	Len    uint64
	Reason string
}

func (e *AccessViolation) Error() string {
	return fmt.Sprintf("access violation: %s of %d bytes at %#x: %s", e.Access, e.Len, e.Addr, e.Reason)
}

// Cause lets errors.Cause unwrap to ErrAccessViolation.
func (e *AccessViolation) Cause() error {
	return ErrAccessViolation
}

func (e *AccessViolation) Unwrap() error {
	return ErrAccessViolation
}

// IsAccessViolation reports whether err was produced by a failed translation.
func IsAccessViolation(err error) bool {
	return errors.Cause(err) == ErrAccessViolation
}
