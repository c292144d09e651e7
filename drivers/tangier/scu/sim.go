package scu

import (
	"sync"
)

// Target is the memory the simulated SCU stores into. regio.Mem satisfies
// it; Poke ignores host-side write protection.
type Target interface {
	Poke(addr uintptr, v uint32) error
	Peek(addr uintptr) uint32
}

// Command is one IPC command observed by a Simulator.
type Command struct {
	Cmd   uint8
	Sub   uint8
	InLen int
	Dptr  uint32
	Sptr  uint32
	Data  []uint32
}

// Simulator emulates the SCU IPC register block. Use it as the port passed
// to New: offsets are relative to the block base.
type Simulator struct {
	mu     sync.Mutex
	target Target

	dptr, sptr uint32
	wbuf       [bufWords]uint32
	rbuf       [bufWords]uint32
	status     uint32
	busyLeft   int

	// BusyPolls keeps the status BUSY for this many reads after each command.
	BusyPolls int
	// Fail makes every command complete with the ERR status bit.
	Fail bool

	cmds []Command
}

func NewSimulator(target Target) *Simulator {
	return &Simulator{target: target}
}

func (s *Simulator) Read32(off uintptr) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case off == regStatus:
		if s.busyLeft > 0 {
			s.busyLeft--
			return s.status | statusBusy, nil
		}
		return s.status, nil
	case off == regSptr:
		return s.sptr, nil
	case off == regDptr:
		return s.dptr, nil
	case off >= regRbuf && off < regRbuf+bufWords*4:
		return s.rbuf[(off-regRbuf)/4], nil
	}
	return 0, nil
}

func (s *Simulator) Write32(off uintptr, v uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case off == regCmd:
		s.exec(v)
	case off == regSptr:
		s.sptr = v
	case off == regDptr:
		s.dptr = v
	case off >= regWbuf && off < regWbuf+bufWords*4:
		s.wbuf[(off-regWbuf)/4] = v
	}
	return nil
}

// caller holds lock
func (s *Simulator) exec(word uint32) {
	c := Command{
		Cmd:   uint8(word),
		Sub:   uint8(word>>12) & 0xf,
		InLen: int(word>>16) & 0xff,
		Dptr:  s.dptr,
		Sptr:  s.sptr,
	}
	words := (c.InLen + 3) / 4
	if words > bufWords {
		words = bufWords
	}
	c.Data = append([]uint32(nil), s.wbuf[:words]...)
	s.cmds = append(s.cmds, c)
	s.busyLeft = s.BusyPolls

	if s.Fail {
		s.status = statusErr
		return
	}
	s.status = 0
	switch c.Cmd {
	case IPCMsgIndirectWrite:
		if words == 0 || s.target == nil || s.target.Poke(uintptr(c.Dptr), c.Data[0]) != nil {
			s.status = statusErr
		}
	case IPCMsgIndirectRead:
		if s.target == nil {
			s.status = statusErr
			return
		}
		s.rbuf[0] = s.target.Peek(uintptr(c.Sptr))
	default:
		s.status = statusErr
	}
}

// Commands returns a copy of every command executed so far.
func (s *Simulator) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.cmds...)
}
