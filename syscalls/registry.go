package syscalls

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

type entry struct {
	name string
	sc   Syscall
}

// Registry binds syscall instances to the index a guest call instruction
// carries. It is filled in before the guest runs and only read afterward.
type Registry struct {
	entries map[uint32]*entry
	names   map[string]uint32
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint32]*entry),
		names:   make(map[string]uint32),
	}
}

// Register constructs an instance with mk and binds it to idx.
func (r *Registry) Register(idx uint32, name string, mk Init, c SyscallContext) error {
	if prev, ok := r.entries[idx]; ok {
		return errors.Wrapf(ErrDuplicateSyscall, "registering %s at %d (held by %s)", name, idx, prev.name)
	}

	if prev, ok := r.names[name]; ok {
		return errors.Wrapf(ErrDuplicateName, "registering %s at %d (already at %d)", name, idx, prev)
	}

	r.entries[idx] = &entry{
		name: name,
		sc:   mk(c),
	}

	r.names[name] = idx

	return nil
}

// RegisterSymbol binds an instance at the index derived from its name, for
// guests that call by symbol rather than by number.
func (r *Registry) RegisterSymbol(name string, mk Init, c SyscallContext) (uint32, error) {
	idx := SymbolHash(name)

	err := r.Register(idx, name, mk, c)
	if err != nil {
		return 0, err
	}

	return idx, nil
}

func (r *Registry) Lookup(idx uint32) (Syscall, bool) {
	e, ok := r.entries[idx]
	if !ok {
		return nil, false
	}

	return e.sc, true
}

func (r *Registry) Name(idx uint32) string {
	if e, ok := r.entries[idx]; ok {
		return e.name
	}

	return "<unknown>"
}

func (r *Registry) IndexOf(name string) (uint32, bool) {
	idx, ok := r.names[name]
	return idx, ok
}

func (r *Registry) Indexes() []uint32 {
	out := make([]uint32, 0, len(r.entries))
	for idx := range r.entries {
		out = append(out, idx)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// SymbolHash maps a symbol name to a 32 bit syscall index.
func SymbolHash(name string) uint32 {
	sum := blake2b.Sum256([]byte(name))
	return binary.LittleEndian.Uint32(sum[:4])
}

// Builtin describes one of the syscalls shipped with this package.
type Builtin struct {
	Name    string
	Init    Init
	Context SyscallContext
}

var Builtins = map[uint32]Builtin{}

// outputSetter is implemented by syscalls that write to a diagnostic sink.
type outputSetter interface {
	SetOutput(w io.Writer)
}

// RegisterBuiltins adds every entry of Builtins to r at its fixed index. If
// out is non-nil it becomes the diagnostic sink of the syscalls that print.
func RegisterBuiltins(r *Registry, out io.Writer) error {
	idxs := make([]uint32, 0, len(Builtins))
	for idx := range Builtins {
		idxs = append(idxs, idx)
	}

	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	for _, idx := range idxs {
		b := Builtins[idx]

		err := r.Register(idx, b.Name, b.Init, b.Context)
		if err != nil {
			return err
		}

		if out == nil {
			continue
		}

		if setter, ok := r.entries[idx].sc.(outputSetter); ok {
			setter.SetOutput(out)
		}
	}

	return nil
}
