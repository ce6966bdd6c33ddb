// Package probe runs syscalls against a guest memory layout described in a
// TOML file. It is a host-side harness; guests never see it.
package probe

import (
	"encoding/hex"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/evanphx/ebpfcall/memory"
	"github.com/pkg/errors"
)

// Scenario is the decoded form of a probe file.
type Scenario struct {
	Regions []RegionSpec `toml:"region"`
	Calls   []CallSpec   `toml:"call"`
}

// RegionSpec describes one guest region. Exactly one of Text, Hex or Size
// supplies its contents.
type RegionSpec struct {
	Name     string `toml:"name"`
	Start    uint64 `toml:"start"`
	Writable bool   `toml:"writable"`
	Text     string `toml:"text"`
	Hex      string `toml:"hex"`
	Size     uint64 `toml:"size"`
}

// CallSpec is one syscall invocation. The target is picked by Syscall name
// when set, otherwise by Index.
type CallSpec struct {
	Syscall string   `toml:"syscall"`
	Index   uint32   `toml:"index"`
	Args    []uint64 `toml:"args"`

	Expect      *uint64 `toml:"expect"`
	ExpectFault bool    `toml:"expect_fault"`
}

var (
	ErrBadRegion = errors.New("region needs exactly one of text, hex or size")
	ErrBadCall   = errors.New("call takes at most five arguments")
)

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario %s", path)
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing scenario %s", path)
	}

	return sc, nil
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario

	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}

	for i, c := range sc.Calls {
		if len(c.Args) > 5 {
			return nil, errors.Wrapf(ErrBadCall, "call %d", i)
		}
	}

	return &sc, nil
}

// build allocates the region's backing memory.
func (rs RegionSpec) build() (*memory.Region, error) {
	var set int
	for _, ok := range []bool{rs.Text != "", rs.Hex != "", rs.Size != 0} {
		if ok {
			set++
		}
	}

	if set != 1 {
		return nil, errors.Wrapf(ErrBadRegion, "region %q at %x", rs.Name, rs.Start)
	}

	switch {
	case rs.Text != "":
		return memory.NewRegion(rs.Start, []byte(rs.Text), rs.Writable), nil
	case rs.Hex != "":
		data, err := hex.DecodeString(rs.Hex)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding region %q", rs.Name)
		}

		return memory.NewRegion(rs.Start, data, rs.Writable), nil
	default:
		return memory.NewAnonymousRegion(rs.Start, rs.Size, rs.Writable)
	}
}
