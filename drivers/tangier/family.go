package tangier

import (
	"strconv"

	"pinmux-go/errcode"
)

const (
	// FamilyStride is the register span reserved for each family.
	FamilyStride = 0x400
	// BufCfgOffset is where the per-pin bufcfg registers start in a family.
	BufCfgOffset = 0x100
	// RegisterStride is the size of one bufcfg register.
	RegisterStride = 4
)

// FamilyDesc is a static family descriptor with an inclusive pin range.
type FamilyDesc struct {
	Number int
	First  int
	Last   int
}

// DefaultFamilies lists the families this driver supports: SD/SDIO and I2C.
var DefaultFamilies = []FamilyDesc{
	{Number: 3, First: 37, Last: 56},
	{Number: 7, First: 101, Last: 114},
}

// Family is a contiguous pin range sharing one register bank.
type Family struct {
	Number   int
	PinBase  int
	PinCount int
	Base     uintptr
}

func (f Family) Contains(pin int) bool {
	return pin >= f.PinBase && pin < f.PinBase+f.PinCount
}

// BufCfg returns the address of pin's bufcfg register. pin must be in range.
func (f Family) BufCfg(pin int) uintptr {
	bufno := uintptr(pin - f.PinBase)
	return f.Base + BufCfgOffset + bufno*RegisterStride
}

// FamilyTable is the immutable, ordered set of families of one controller.
type FamilyTable struct {
	fams []Family
}

// NewFamilyTable places each family at regionBase + Number*FamilyStride.
// Ranges must be non-empty and pairwise disjoint.
func NewFamilyTable(regionBase uintptr, descs []FamilyDesc) (FamilyTable, error) {
	fams := make([]Family, 0, len(descs))
	for _, d := range descs {
		if d.Last < d.First || d.Number < 0 {
			return FamilyTable{}, errcode.Wrap(errcode.InvalidConfig, "family_table",
				"family "+strconv.Itoa(d.Number)+" has an empty pin range", nil)
		}
		f := Family{
			Number:   d.Number,
			PinBase:  d.First,
			PinCount: d.Last - d.First + 1,
			Base:     regionBase + uintptr(d.Number)*FamilyStride,
		}
		for _, o := range fams {
			if f.PinBase < o.PinBase+o.PinCount && o.PinBase < f.PinBase+f.PinCount {
				return FamilyTable{}, errcode.Wrap(errcode.InvalidConfig, "family_table",
					"families "+strconv.Itoa(o.Number)+" and "+strconv.Itoa(f.Number)+" overlap", nil)
			}
		}
		fams = append(fams, f)
	}
	return FamilyTable{fams: fams}, nil
}

// Resolve returns the family owning pin, or errcode.FamilyNotFound.
func (t FamilyTable) Resolve(pin int) (Family, error) {
	for _, f := range t.fams {
		if f.Contains(pin) {
			return f, nil
		}
	}
	return Family{}, errcode.FamilyNotFound
}

// BufCfg resolves pin and returns its bufcfg register address.
func (t FamilyTable) BufCfg(pin int) (uintptr, error) {
	f, err := t.Resolve(pin)
	if err != nil {
		return 0, err
	}
	return f.BufCfg(pin), nil
}

// Families returns a copy of the table in declaration order.
func (t FamilyTable) Families() []Family {
	return append([]Family(nil), t.fams...)
}

func (t FamilyTable) Len() int { return len(t.fams) }
