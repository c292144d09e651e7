package types

// ------------------------
// Service state (retained)
// ------------------------

type PinctrlState struct {
	Level  string `json:"level"`           // "idle", "ready", "error", "stopped"
	Status string `json:"status"`          // machine-readable short code
	Error  string `json:"error,omitempty"` // cause, when Level is "error"
	TS     int64  `json:"ts_ms"`
}

// ------------------------
// Per-pin outcome (retained)
// ------------------------

// PinStatus is published under pinctrl/<controller>/pin/<name>/status.
type PinStatus struct {
	Pin       int    `json:"pin"`
	Mode      uint32 `json:"mode"`
	Protected bool   `json:"protected,omitempty"`
	Family    int    `json:"family"`         // -1 when unresolved
	Addr      string `json:"addr,omitempty"` // bufcfg address, hex
	Value     string `json:"value,omitempty"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"` // errcode.Code
	TS        int64  `json:"ts_ms"`
}

// ControllerSummary is published under pinctrl/<controller>/summary once a
// configuration pass has finished.
type ControllerSummary struct {
	Compatible string `json:"compatible"`
	Base       string `json:"base"`
	Pins       int    `json:"pins"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"` // probe failure
	TS         int64  `json:"ts_ms"`
}
