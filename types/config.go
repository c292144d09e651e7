package types

// Pin-mux configuration supplied on topic "config/pinctrl".

type PinctrlConfig struct {
	Controllers []PinController `json:"controllers" yaml:"controllers"`
}

// PinController describes one pin controller node and its pin subnodes.
type PinController struct {
	Name       string    `json:"name" yaml:"name"`
	Compatible string    `json:"compatible" yaml:"compatible"`
	Reg        uint64    `json:"reg,omitempty" yaml:"reg,omitempty"` // region base; 0 defers to discovery
	Pins       []PinNode `json:"pins" yaml:"pins"`
}

// PinNode carries one pin's raw properties ("pad-offset", "mode-func",
// "protected"); they are validated by the driver, not here.
type PinNode struct {
	Name  string         `json:"name" yaml:"name"`
	Props map[string]any `json:"props" yaml:",inline"`
}
