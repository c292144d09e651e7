package pinctrl

import (
	"errors"
	"log/slog"
	"sync"

	"pinmux-go/drivers/regio"
	"pinmux-go/drivers/tangier"
	"pinmux-go/drivers/tangier/scu"
	"pinmux-go/types"
)

// Tangier register map.
const (
	DefaultRegionBase = 0xff0c0000
	RegionSize        = 0x8000
	DefaultSCUBase    = 0xff009000
)

// Instance is one discovered pin controller: its register region base, the
// port for direct accesses and the channel for protected writes.
type Instance struct {
	Base    uintptr
	Port    regio.Port
	Channel tangier.SecureChannel
	Close   func() error
}

// Platform discovers controller instances for configured controller nodes.
type Platform interface {
	Discover(ctrl types.PinController) (Instance, error)
}

func regionBase(ctrl types.PinController) uintptr {
	if ctrl.Reg != 0 {
		return uintptr(ctrl.Reg)
	}
	return DefaultRegionBase
}

// -----------------------------------------------------------------------------
// Simulated platform
// -----------------------------------------------------------------------------

// SimPlatform backs every controller with one in-memory register file and a
// simulated SCU. At each discovered region base, the banks of the listed
// families are write-protected, so only the SCU path can change them.
type SimPlatform struct {
	Mem *regio.Mem
	SCU *scu.Simulator
	ipc *scu.IPC

	mu        sync.Mutex
	protected []int
	bases     map[uintptr]bool // region bases already protected
}

func NewSimPlatform(log *slog.Logger, protectedFamilies ...int) *SimPlatform {
	mem := regio.NewMem()
	sim := scu.NewSimulator(mem)
	return &SimPlatform{
		Mem:       mem,
		SCU:       sim,
		ipc:       scu.New(sim, scu.WithPollDelay(0), scu.WithLogger(log)),
		protected: append([]int(nil), protectedFamilies...),
		bases:     map[uintptr]bool{},
	}
}

func (p *SimPlatform) Discover(ctrl types.PinController) (Instance, error) {
	base := regionBase(ctrl)
	p.protect(base)
	return Instance{
		Base:    base,
		Port:    p.Mem,
		Channel: p.ipc,
		Close:   func() error { return nil },
	}, nil
}

func (p *SimPlatform) protect(base uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bases[base] {
		return
	}
	p.bases[base] = true
	for _, f := range p.protected {
		p.Mem.Protect(base+uintptr(f)*tangier.FamilyStride, tangier.FamilyStride)
	}
}

// -----------------------------------------------------------------------------
// /dev/mem platform
// -----------------------------------------------------------------------------

// DevMemPlatform maps the controller region and the SCU IPC block through
// /dev/mem.
type DevMemPlatform struct {
	SCUBase uintptr
	Log     *slog.Logger
}

func (p DevMemPlatform) Discover(ctrl types.PinController) (Instance, error) {
	base := regionBase(ctrl)
	region, err := regio.OpenDevMem(base, RegionSize)
	if err != nil {
		return Instance{}, err
	}
	scuBase := p.SCUBase
	if scuBase == 0 {
		scuBase = DefaultSCUBase
	}
	ipcMem, err := regio.OpenDevMem(scuBase, pageSize)
	if err != nil {
		region.Close()
		return Instance{}, err
	}
	ipc := scu.New(regio.NewWindow(ipcMem, scuBase, scu.Size), scu.WithLogger(p.Log))
	return Instance{
		Base:    base,
		Port:    region,
		Channel: ipc,
		Close: func() error {
			return errors.Join(region.Close(), ipcMem.Close())
		},
	}, nil
}

const pageSize = 0x1000
