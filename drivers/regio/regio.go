// Package regio provides 32-bit register ports: the interface the pin-mux
// driver talks through, an in-memory register file for hosts and tests, and
// a /dev/mem mapping for Linux targets.
package regio

import (
	"errors"
	"sync"
)

var (
	ErrUnaligned = errors.New("register address not 32-bit aligned")
	ErrReadOnly  = errors.New("register is not directly writable")
	ErrOutOfMap  = errors.New("register address outside mapped window")
)

// Port is a capability-scoped view onto memory-mapped registers.
type Port interface {
	Read32(addr uintptr) (uint32, error)
	Write32(addr uintptr, v uint32) error
}

// Write records one store that reached a Mem.
type Write struct {
	Addr  uintptr
	Value uint32
}

type span struct{ lo, hi uintptr } // [lo, hi)

// Mem is a sparse register file. Unwritten registers read as their preset
// value or zero. Addresses inside a protected span reject Write32 with
// ErrReadOnly; Poke bypasses that, as the secure firmware does.
type Mem struct {
	mu        sync.Mutex
	regs      map[uintptr]uint32
	protected []span
	writes    []Write
	reads     int
}

func NewMem() *Mem {
	return &Mem{regs: map[uintptr]uint32{}}
}

// Protect marks [base, base+size) as writable only through Poke.
func (m *Mem) Protect(base uintptr, size uintptr) {
	m.mu.Lock()
	m.protected = append(m.protected, span{lo: base, hi: base + size})
	m.mu.Unlock()
}

// Preset sets a register without recording a write.
func (m *Mem) Preset(addr uintptr, v uint32) {
	m.mu.Lock()
	m.regs[addr] = v
	m.mu.Unlock()
}

func (m *Mem) Read32(addr uintptr) (uint32, error) {
	if addr&3 != 0 {
		return 0, ErrUnaligned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.regs[addr], nil
}

func (m *Mem) Write32(addr uintptr, v uint32) error {
	if addr&3 != 0 {
		return ErrUnaligned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.protected {
		if addr >= s.lo && addr < s.hi {
			return ErrReadOnly
		}
	}
	m.store(addr, v)
	return nil
}

// Poke stores v regardless of protection and records the write.
func (m *Mem) Poke(addr uintptr, v uint32) error {
	if addr&3 != 0 {
		return ErrUnaligned
	}
	m.mu.Lock()
	m.store(addr, v)
	m.mu.Unlock()
	return nil
}

// caller holds lock
func (m *Mem) store(addr uintptr, v uint32) {
	m.regs[addr] = v
	m.writes = append(m.writes, Write{Addr: addr, Value: v})
}

// Peek returns a register value without counting a read.
func (m *Mem) Peek(addr uintptr) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// Writes returns a copy of every store seen so far, in order.
func (m *Mem) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// Reads returns how many Read32 calls were served.
func (m *Mem) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Window exposes [base, base+size) of an underlying port using offsets
// relative to base.
type Window struct {
	port Port
	base uintptr
	size uintptr
}

func NewWindow(p Port, base, size uintptr) *Window {
	return &Window{port: p, base: base, size: size}
}

func (w *Window) Read32(off uintptr) (uint32, error) {
	if off+4 > w.size {
		return 0, ErrOutOfMap
	}
	return w.port.Read32(w.base + off)
}

func (w *Window) Write32(off uintptr, v uint32) error {
	if off+4 > w.size {
		return ErrOutOfMap
	}
	return w.port.Write32(w.base+off, v)
}
