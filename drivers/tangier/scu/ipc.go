// Package scu talks to the System Controller Unit of Intel Tangier SoCs
// through its IPC register block. The SCU performs stores into register
// banks the host cannot write directly.
package scu

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"pinmux-go/drivers/regio"
	"pinmux-go/x/conv"
)

// IPC message codes.
const (
	IPCMsgIndirectRead  = 0x02
	IPCMsgIndirectWrite = 0x05
)

// IPC register block layout, offsets from the block base.
const (
	regCmd    = 0x00
	regStatus = 0x04
	regSptr   = 0x08
	regDptr   = 0x0c
	regWbuf   = 0x80
	regRbuf   = 0xa0

	// Size is the span of the IPC register block.
	Size = 0x100

	bufWords = 4
)

const (
	statusBusy = 1 << 0
	statusErr  = 1 << 1
)

const defaultPolls = 100000

var (
	ErrTimeout  = errors.New("scu: ipc busy timeout")
	ErrIPC      = errors.New("scu: ipc command failed")
	ErrTooLong  = errors.New("scu: ipc payload exceeds 16 bytes")
	ErrAddrSize = errors.New("scu: address exceeds 32 bits")
)

// IPC drives one SCU IPC register block. Commands are serialised; the
// block holds a single in-flight command.
type IPC struct {
	mu    sync.Mutex
	regs  regio.Port // offsets relative to the block base
	polls int
	delay time.Duration
	log   *slog.Logger
}

type Option func(*IPC)

// WithPollBudget bounds how many status reads a command may wait for.
func WithPollBudget(n int) Option {
	return func(c *IPC) {
		if n > 0 {
			c.polls = n
		}
	}
}

// WithPollDelay sets the pause between status reads.
func WithPollDelay(d time.Duration) Option { return func(c *IPC) { c.delay = d } }

func WithLogger(l *slog.Logger) Option {
	return func(c *IPC) {
		if l != nil {
			c.log = l
		}
	}
}

// New binds an IPC to a port addressed relative to the IPC block base
// (see regio.NewWindow).
func New(regs regio.Port, opts ...Option) *IPC {
	c := &IPC{
		regs:  regs,
		polls: defaultPolls,
		delay: time.Microsecond,
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RawCommand issues cmd/sub with up to four input words. inLen is the
// payload length in bytes as announced to the SCU. Up to four result words
// are copied into out.
func (c *IPC) RawCommand(cmd, sub uint8, in []uint32, inLen int, out []uint32, dptr, sptr uint32) error {
	if len(in) > bufWords || len(out) > bufWords || inLen < 0 || inLen > bufWords*4 {
		return ErrTooLong
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.regs.Write32(regDptr, dptr); err != nil {
		return err
	}
	if err := c.regs.Write32(regSptr, sptr); err != nil {
		return err
	}
	for i, w := range in {
		if err := c.regs.Write32(regWbuf+uintptr(i)*4, w); err != nil {
			return err
		}
	}
	word := uint32(inLen)<<16 | uint32(sub)<<12 | uint32(cmd)
	c.log.Debug("scu_ipc_cmd",
		slog.Uint64("cmd", uint64(cmd)),
		slog.Uint64("sub", uint64(sub)),
		slog.Int("inlen", inLen),
		slog.String("dptr", conv.Hex32(dptr)),
		slog.String("sptr", conv.Hex32(sptr)))
	if err := c.regs.Write32(regCmd, word); err != nil {
		return err
	}
	if err := c.wait(); err != nil {
		c.log.Error("scu_ipc_cmd:failed", slog.Uint64("cmd", uint64(cmd)), slog.Any("err", err))
		return err
	}
	for i := range out {
		v, err := c.regs.Read32(regRbuf + uintptr(i)*4)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// caller holds lock
func (c *IPC) wait() error {
	var status uint32
	for i := 0; i < c.polls; i++ {
		var err error
		status, err = c.regs.Read32(regStatus)
		if err != nil {
			return err
		}
		if status&statusBusy == 0 {
			break
		}
		if c.delay > 0 {
			time.Sleep(c.delay)
		}
	}
	if status&statusBusy != 0 {
		return ErrTimeout
	}
	if status&statusErr != 0 {
		return ErrIPC
	}
	return nil
}

// IndirectWrite asks the SCU to store v at the physical address addr.
func (c *IPC) IndirectWrite(addr uintptr, v uint32) error {
	if uint64(addr) > math.MaxUint32 {
		return ErrAddrSize
	}
	return c.RawCommand(IPCMsgIndirectWrite, 0, []uint32{v}, 4, nil, uint32(addr), 0)
}

// IndirectRead asks the SCU for the value at the physical address addr.
func (c *IPC) IndirectRead(addr uintptr) (uint32, error) {
	if uint64(addr) > math.MaxUint32 {
		return 0, ErrAddrSize
	}
	var out [1]uint32
	if err := c.RawCommand(IPCMsgIndirectRead, 0, nil, 0, out[:], 0, uint32(addr)); err != nil {
		return 0, err
	}
	return out[0], nil
}
