//go:build linux

package regio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem maps a physical register region through /dev/mem. Addresses passed
// to Read32/Write32 are physical addresses inside the mapped region.
type DevMem struct {
	base uintptr
	mem  []byte
}

// OpenDevMem maps size bytes of physical memory starting at base. base must
// be page aligned.
func OpenDevMem(base uintptr, size int) (*DevMem, error) {
	if base%uintptr(os.Getpagesize()) != 0 {
		return nil, fmt.Errorf("devmem: base %#x not page aligned", base)
	}
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("devmem: %w", err)
	}
	defer f.Close()

	mem, err := unix.Mmap(int(f.Fd()), int64(base), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("devmem: mmap %#x+%#x: %w", base, size, err)
	}
	return &DevMem{base: base, mem: mem}, nil
}

func (d *DevMem) reg(addr uintptr) (*uint32, error) {
	if addr&3 != 0 {
		return nil, ErrUnaligned
	}
	if addr < d.base || addr+4 > d.base+uintptr(len(d.mem)) {
		return nil, ErrOutOfMap
	}
	return (*uint32)(unsafe.Pointer(&d.mem[addr-d.base])), nil
}

func (d *DevMem) Read32(addr uintptr) (uint32, error) {
	r, err := d.reg(addr)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(r), nil
}

func (d *DevMem) Write32(addr uintptr, v uint32) error {
	r, err := d.reg(addr)
	if err != nil {
		return err
	}
	atomic.StoreUint32(r, v)
	return nil
}

func (d *DevMem) Close() error {
	if d.mem == nil {
		return nil
	}
	err := unix.Munmap(d.mem)
	d.mem = nil
	return err
}
