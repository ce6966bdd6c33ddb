package probe

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/evanphx/ebpfcall/boundary"
	"github.com/evanphx/ebpfcall/memory"
	"github.com/evanphx/ebpfcall/syscalls"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

var ErrExpectation = errors.New("call did not behave as expected")

type Outcome struct {
	Call  int
	Name  string
	Index uint32
	Value uint64
	Fault error
}

type Report struct {
	Outcomes []Outcome

	// Final contents of every region, hex encoded, keyed by region name or
	// start address.
	Regions map[string]string
}

// Run maps the scenario's regions, registers the builtin syscalls with out
// as their diagnostic sink and performs each call in order.
func Run(ctx context.Context, l hclog.Logger, sc *Scenario, out io.Writer) (*Report, error) {
	var regions []*memory.Region

	defer func() {
		for _, reg := range regions {
			if err := reg.Release(); err != nil {
				l.Error("error releasing region", "start", hclog.Hex(reg.Start), "error", err)
			}
		}
	}()

	for _, rs := range sc.Regions {
		reg, err := rs.build()
		if err != nil {
			return nil, err
		}

		regions = append(regions, reg)
	}

	mem, err := memory.NewMapping(regions...)
	if err != nil {
		return nil, errors.Wrapf(err, "building guest memory")
	}

	mem.L = l.Named("memory")

	registry := syscalls.NewRegistry()

	err = syscalls.RegisterBuiltins(registry, out)
	if err != nil {
		return nil, err
	}

	gate := &boundary.Gate{
		L: l,
		Invoker: &syscalls.Invoker{
			Registry: registry,
			L:        l.Named("syscall"),
		},
		Names: registry.Name,
	}

	report := &Report{
		Regions: make(map[string]string),
	}

	for i, c := range sc.Calls {
		idx := c.Index

		if c.Syscall != "" {
			var ok bool
			idx, ok = registry.IndexOf(c.Syscall)
			if !ok {
				return report, errors.Wrapf(syscalls.ErrUnknownSyscall, "call %d: %s", i, c.Syscall)
			}
		}

		var m boundary.Machine
		copy(m.Regs[1:6], c.Args)

		gate.Call(ctx, &m, mem, idx)

		o := Outcome{
			Call:  i,
			Name:  registry.Name(idx),
			Index: idx,
			Value: m.Regs[0],
		}

		if m.Fault != nil {
			o.Fault = m.Fault.Err
		}

		report.Outcomes = append(report.Outcomes, o)

		l.Info("call", "n", i, "name", o.Name, "value", hclog.Hex(o.Value), "fault", o.Fault)

		if err := check(c, o); err != nil {
			snapshot(report, sc, regions)
			return report, err
		}
	}

	snapshot(report, sc, regions)

	if l.IsTrace() {
		l.Trace("probe report", "dump", spew.Sdump(report))
	}

	return report, nil
}

// snapshot records the current bytes of every region in the report.
func snapshot(report *Report, sc *Scenario, regions []*memory.Region) {
	for i, rs := range sc.Regions {
		key := rs.Name
		if key == "" {
			key = fmt.Sprintf("%#x", rs.Start)
		}

		report.Regions[key] = hex.EncodeToString(regions[i].Data)
	}
}

func check(c CallSpec, o Outcome) error {
	if c.ExpectFault {
		if o.Fault == nil {
			return errors.Wrapf(ErrExpectation, "call %d (%s): expected a fault, got %#x", o.Call, o.Name, o.Value)
		}

		return nil
	}

	if o.Fault != nil && c.Expect != nil {
		return errors.Wrapf(ErrExpectation, "call %d (%s): unexpected fault: %s", o.Call, o.Name, o.Fault)
	}

	if c.Expect != nil && *c.Expect != o.Value {
		return errors.Wrapf(ErrExpectation, "call %d (%s): expected %#x, got %#x", o.Call, o.Name, *c.Expect, o.Value)
	}

	return nil
}
