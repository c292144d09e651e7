// Package tangier configures pin multiplexing on the Intel Tangier
// (Merrifield) pin controller.
//
// Each supported pin has a 32-bit bufcfg register whose low three bits
// select the pad function. Pins are grouped into families; a family owns a
// FamilyStride-sized register bank at the controller region base plus
// Number*FamilyStride, with bufcfg registers from BufCfgOffset onwards.
// Some banks are not writable by the host and are updated by the SCU on the
// host's behalf (see package scu).
package tangier

import (
	"log/slog"

	"pinmux-go/drivers/regio"
	"pinmux-go/errcode"
	"pinmux-go/x/conv"
)

// Compatible is the device-tree compatible string the controller binds to.
const Compatible = "intel,pinctrl-tangier"

// Controller owns the family table of one discovered pin controller.
type Controller struct {
	table FamilyTable
	w     writer
	log   *slog.Logger
}

type options struct {
	families []FamilyDesc
	log      *slog.Logger
}

type Option func(*options)

// WithFamilies replaces DefaultFamilies.
func WithFamilies(descs []FamilyDesc) Option {
	return func(o *options) { o.families = descs }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// New builds the family table for the register region at regionBase.
// port serves direct accesses; ch relays protected writes and may be nil
// when no pin is protected.
func New(regionBase uintptr, port regio.Port, ch SecureChannel, opts ...Option) (*Controller, error) {
	o := options{families: DefaultFamilies, log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	table, err := NewFamilyTable(regionBase, o.families)
	if err != nil {
		return nil, err
	}
	o.log.Debug("pinctrl_setup_families",
		slog.String("base", conv.HexAddr(regionBase)),
		slog.Int("families", table.Len()))
	return &Controller{
		table: table,
		w:     writer{port: port, ch: ch, log: o.log},
		log:   o.log,
	}, nil
}

func (c *Controller) Table() FamilyTable { return c.table }

// Result is the outcome of configuring one entry.
type Result struct {
	Index  int
	Entry  PinConfigEntry
	Family int // -1 when unresolved
	Addr   uintptr
	Old    uint32
	New    uint32
	Err    error
}

func (r Result) Code() errcode.Code { return errcode.Of(r.Err) }

// Report collects per-entry results of a configuration pass.
type Report struct {
	Results []Result
}

// Failed returns the results that carry an error.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// OK reports the number of entries that were applied.
func (r Report) OK() int { return len(r.Results) - len(r.Failed()) }

// ConfigurePin writes e.Mode into the pin's bufcfg through the path e
// selects.
func (c *Controller) ConfigurePin(e PinConfigEntry) Result {
	res := Result{Entry: e, Family: -1}
	if e.Mode&^ModeMask != 0 {
		res.Err = errcode.UnsupportedMode
		return res
	}
	f, err := c.table.Resolve(e.Pin)
	if err != nil {
		res.Err = err
		return res
	}
	res.Family = f.Number
	res.Addr = f.BufCfg(e.Pin)
	if e.Protected {
		res.Old, res.New, res.Err = c.w.protected(res.Addr, ModeMask, e.Mode)
	} else {
		res.Old, res.New, res.Err = c.w.direct(res.Addr, ModeMask, e.Mode)
	}
	return res
}

// Configure applies records in order. A failing entry is logged and
// recorded; the pass always continues with the next one.
func (c *Controller) Configure(records []Record) Report {
	rep := Report{Results: make([]Result, 0, len(records))}
	for i, rec := range records {
		var res Result
		e, err := ParseEntry(rec)
		if err != nil {
			res = Result{Entry: e, Family: -1, Err: err}
		} else {
			res = c.ConfigurePin(e)
		}
		res.Index = i
		if res.Err != nil {
			c.log.Error("pinctrl_cfg_pin:failed",
				slog.Int("index", i),
				slog.Int("pin", res.Entry.Pin),
				slog.String("code", string(res.Code())),
				slog.Any("err", res.Err))
		} else {
			c.log.Debug("pinctrl_cfg_pin",
				slog.Int("pin", e.Pin),
				slog.Uint64("mode", uint64(e.Mode)),
				slog.Bool("protected", e.Protected),
				slog.String("addr", conv.HexAddr(res.Addr)))
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}
