package tangier

import (
	"log/slog"

	"pinmux-go/drivers/regio"
	"pinmux-go/errcode"
	"pinmux-go/x/conv"
)

// SecureChannel relays a store through a privileged coprocessor.
// *scu.IPC implements it.
type SecureChannel interface {
	IndirectWrite(addr uintptr, v uint32) error
}

// Update merges bits into old under mask; bits outside mask are kept.
func Update(old, mask, bits uint32) uint32 {
	return (old &^ mask) | (bits & mask)
}

// writer performs the bufcfg read-modify-write through either path.
type writer struct {
	port regio.Port
	ch   SecureChannel
	log  *slog.Logger
}

func (w *writer) readAndUpdate(addr uintptr, mask, bits uint32) (old, v uint32, err error) {
	old, err = w.port.Read32(addr)
	if err != nil {
		return 0, 0, errcode.Wrap(errcode.Error, "read_bufcfg", conv.HexAddr(addr), err)
	}
	v = Update(old, mask, bits)
	w.log.Debug("bufcfg",
		slog.String("addr", conv.HexAddr(addr)),
		slog.String("v", conv.Hex32(v)),
		slog.String("bits", conv.Hex32(bits)),
		slog.String("mask", conv.Hex32(mask)))
	return old, v, nil
}

// direct stores the merged value with an ordinary register write.
func (w *writer) direct(addr uintptr, mask, bits uint32) (old, v uint32, err error) {
	old, v, err = w.readAndUpdate(addr, mask, bits)
	if err != nil {
		return old, v, err
	}
	if err := w.port.Write32(addr, v); err != nil {
		return old, v, errcode.Wrap(errcode.Error, "write_bufcfg", conv.HexAddr(addr), err)
	}
	return old, v, nil
}

// protected hands the merged value to the secure channel instead of
// storing it.
func (w *writer) protected(addr uintptr, mask, bits uint32) (old, v uint32, err error) {
	if w.ch == nil {
		return 0, 0, errcode.Wrap(errcode.ChannelError, "indirect_write", "no secure channel", nil)
	}
	old, v, err = w.readAndUpdate(addr, mask, bits)
	if err != nil {
		return old, v, err
	}
	if err := w.ch.IndirectWrite(addr, v); err != nil {
		return old, v, errcode.Wrap(errcode.ChannelError, "indirect_write", conv.HexAddr(addr), err)
	}
	return old, v, nil
}
