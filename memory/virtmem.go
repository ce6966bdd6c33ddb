package memory

import (
	"sort"

	"github.com/evanphx/ebpfcall/log"
	hclog "github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const (
	PageShift = 12
	PageSize  = 1 << PageShift

	lookupCacheSize = 256
)

type Region struct {
	Start    uint64
	Writable bool
	Data     []byte

	release func() error
}

func NewRegion(start uint64, data []byte, writable bool) *Region {
	return &Region{
		Start:    start,
		Writable: writable,
		Data:     data,
	}
}

func NewReadOnlyRegion(start uint64, data []byte) *Region {
	return NewRegion(start, data, false)
}

func NewWritableRegion(start uint64, data []byte) *Region {
	return NewRegion(start, data, true)
}

var ErrEmptyRegion = errors.New("region has no backing memory")

// NewAnonymousRegion allocates size zeroed bytes of host memory outside the
// Go heap where the platform allows it. Call Release when done with it.
func NewAnonymousRegion(start, size uint64, writable bool) (*Region, error) {
	if size == 0 {
		return nil, ErrEmptyRegion
	}

	data, release, err := allocate(size)
	if err != nil {
		return nil, errors.Wrapf(err, "allocating anonymous region start=%x, size=%x", start, size)
	}

	return &Region{
		Start:    start,
		Writable: writable,
		Data:     data,
		release:  release,
	}, nil
}

// Release frees memory obtained by NewAnonymousRegion. It is a no-op for
// regions wrapping caller-owned slices.
func (reg *Region) Release() error {
	if reg.release == nil {
		return nil
	}

	err := reg.release()
	reg.release = nil
	reg.Data = nil

	return err
}

func (reg *Region) Size() uint64 {
	return uint64(len(reg.Data))
}

func (reg *Region) End() uint64 {
	return reg.Start + reg.Size()
}

func (reg *Region) Contains(x uint64) bool {
	if x < reg.Start {
		return false
	}

	if x >= reg.End() {
		return false
	}

	return true
}

func (reg *Region) overlaps(other *Region) bool {
	return reg.Start < other.End() && other.Start < reg.End()
}

// Mapping is the set of guest regions visible to one VM instance. Address 0
// is never mapped so that it can serve as a null pointer.
type Mapping struct {
	L hclog.Logger

	regions []*Region
	lookup  *lru.ARCCache
}

var (
	ErrOverlappingRegion = errors.New("region overlaps an existing region")
	ErrNullRegion        = errors.New("region covers the null page")
	ErrRegionWraps       = errors.New("region wraps the address space")
	ErrUnknownRegion     = errors.New("no region starts at address")
)

func NewMapping(regions ...*Region) (*Mapping, error) {
	cache, err := lru.NewARC(lookupCacheSize)
	if err != nil {
		return nil, err
	}

	m := &Mapping{
		L:      log.Named("memory"),
		lookup: cache,
	}

	for _, reg := range regions {
		err := m.Map(reg)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Mapping) Map(reg *Region) error {
	if reg.Size() == 0 {
		return errors.Wrapf(ErrEmptyRegion, "mapping region start=%x", reg.Start)
	}

	if reg.Start < PageSize {
		return errors.Wrapf(ErrNullRegion, "mapping region start=%x", reg.Start)
	}

	if reg.End() < reg.Start {
		return errors.Wrapf(ErrRegionWraps, "mapping region start=%x, size=%x", reg.Start, reg.Size())
	}

	idx := sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].Start > reg.Start
	})

	if idx > 0 && m.regions[idx-1].overlaps(reg) {
		return errors.Wrapf(ErrOverlappingRegion, "mapping region start=%x, size=%x", reg.Start, reg.Size())
	}

	if idx < len(m.regions) && m.regions[idx].overlaps(reg) {
		return errors.Wrapf(ErrOverlappingRegion, "mapping region start=%x, size=%x", reg.Start, reg.Size())
	}

	m.regions = append(m.regions, nil)
	copy(m.regions[idx+1:], m.regions[idx:])
	m.regions[idx] = reg

	m.lookup.Purge()

	m.L.Trace("mapped region", "start", hclog.Hex(reg.Start), "size", reg.Size(), "writable", reg.Writable)

	return nil
}

// Unmap removes the region starting at start and returns it. The region's
// memory is not released.
func (m *Mapping) Unmap(start uint64) (*Region, error) {
	for i, reg := range m.regions {
		if reg.Start == start {
			m.regions = append(m.regions[:i], m.regions[i+1:]...)
			m.lookup.Purge()

			m.L.Trace("unmapped region", "start", hclog.Hex(reg.Start), "size", reg.Size())
			return reg, nil
		}
	}

	return nil, errors.Wrapf(ErrUnknownRegion, "unmapping start=%x", start)
}

func (m *Mapping) Regions() []*Region {
	out := make([]*Region, len(m.regions))
	copy(out, m.regions)
	return out
}

func (m *Mapping) Size() uint64 {
	var sz uint64
	for _, reg := range m.regions {
		sz += reg.Size()
	}

	return sz
}

func (m *Mapping) FindRegion(addr uint64) (*Region, bool) {
	page := addr >> PageShift

	if v, ok := m.lookup.Get(page); ok {
		reg := v.(*Region)
		if reg.Contains(addr) {
			return reg, true
		}
	}

	idx := sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].Start > addr
	})

	if idx == 0 {
		return nil, false
	}

	reg := m.regions[idx-1]
	if !reg.Contains(addr) {
		return nil, false
	}

	m.lookup.Add(page, reg)

	return reg, true
}

func (m *Mapping) Translate(access AccessType, addr, length uint64) ([]byte, error) {
	end := addr + length
	if end < addr {
		return nil, m.violation(access, addr, length, "range wraps the address space")
	}

	reg, ok := m.FindRegion(addr)
	if !ok {
		return nil, m.violation(access, addr, length, "address is not mapped")
	}

	if end > reg.End() {
		return nil, m.violation(access, addr, length, "range exceeds region bound")
	}

	if access == Store && !reg.Writable {
		return nil, m.violation(access, addr, length, "region is read-only")
	}

	offset := addr - reg.Start

	return reg.Data[offset : offset+length : offset+length], nil
}

func (m *Mapping) violation(access AccessType, addr, length uint64, reason string) error {
	m.L.Trace("translation failed", "access", access, "addr", hclog.Hex(addr), "len", length, "reason", reason)

	return &AccessViolation{
		Access: access,
		Addr:   addr,
		Len:    length,
		Reason: reason,
	}
}
