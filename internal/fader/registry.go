// Package fader keeps the cached values of the device's mixer faders and
// builds the commands that move them.
package fader

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/bft-labs/faderlink/internal/codec"
	"github.com/bft-labs/faderlink/internal/domain"
	"github.com/bft-labs/faderlink/internal/protocol"
)

// MasterAddress is the address of the master fader.
const MasterAddress byte = 12

// MasterName is the display name of the master fader.
const MasterName = "MASTER"

// Fader is a named fader with a cached value. Only the value mutates.
type Fader struct {
	Address byte
	Name    string
	Master  bool

	value atomic.Int32
}

// Value returns the cached value.
func (f *Fader) Value() int {
	return int(f.value.Load())
}

func (f *Fader) template() protocol.Template {
	if f.Master {
		return protocol.MasterTemplate
	}
	return protocol.ChannelTemplate
}

// Snapshot is a point-in-time copy of a fader.
type Snapshot struct {
	Address byte
	Name    string
	Master  bool
	Value   int
}

// DefaultTable maps the eight channel faders (56..63, named "1/9".."8/16")
// and the master fader (12).
func DefaultTable() map[byte]string {
	table := make(map[byte]string, 9)
	for i := 0; i < 8; i++ {
		table[byte(56+i)] = fmt.Sprintf("%d/%d", i+1, i+9)
	}
	table[MasterAddress] = MasterName
	return table
}

// Registry owns a fixed set of faders. The address map never changes after
// construction; values are safe for concurrent use.
type Registry struct {
	faders map[byte]*Fader
}

// NewRegistry builds a registry from an address to name table. The fader
// named MASTER uses the master command template.
func NewRegistry(table map[byte]string) *Registry {
	r := &Registry{faders: make(map[byte]*Fader, len(table))}
	for addr, name := range table {
		r.faders[addr] = &Fader{Address: addr, Name: name, Master: name == MasterName}
	}
	return r
}

// NewDefaultRegistry builds a registry from DefaultTable.
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultTable())
}

// Get returns the fader at address.
func (r *Registry) Get(address byte) (*Fader, error) {
	f, ok := r.faders[address]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownAddress, address)
	}
	return f, nil
}

// Value returns the cached value at address.
func (r *Registry) Value(address byte) (int, error) {
	f, err := r.Get(address)
	if err != nil {
		return 0, err
	}
	return f.Value(), nil
}

// SetValue stores value for address. Unknown addresses are ignored and
// reported through the returned bool.
func (r *Registry) SetValue(address byte, value int) bool {
	f, ok := r.faders[address]
	if !ok {
		return false
	}
	f.value.Store(int32(value))
	return true
}

// BuildCommand returns the sysex command setting the fader at address to value.
func (r *Registry) BuildCommand(address byte, value int) (domain.Message, error) {
	f, err := r.Get(address)
	if err != nil {
		return domain.Message{}, err
	}
	group, err := codec.Encode(value)
	if err != nil {
		return domain.Message{}, err
	}
	return f.template().Build(f.Address, group), nil
}

// Snapshot returns all faders ordered by address.
func (r *Registry) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(r.faders))
	for _, f := range r.faders {
		out = append(out, Snapshot{Address: f.Address, Name: f.Name, Master: f.Master, Value: f.Value()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Lookup finds a fader by display name.
func (r *Registry) Lookup(name string) (*Fader, bool) {
	for _, f := range r.faders {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}
