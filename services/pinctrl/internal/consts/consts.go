package consts

// Topic tokens
const (
	TokConfig  = "config"
	TokPinctrl = "pinctrl"
	TokPin     = "pin"
	TokState   = "state"
	TokStatus  = "status"
	TokSummary = "summary"
)

// Service state levels
const (
	LevelIdle    = "idle"
	LevelReady   = "ready"
	LevelError   = "error"
	LevelStopped = "stopped"
)

// Service state codes
const (
	StatusAwaitingConfig = "awaiting_config"
	StatusConfigured     = "configured"
	StatusPartial        = "configured_with_errors"
	StatusBadConfig      = "config_wrong_type"
	StatusCancelled      = "context_cancelled"
)
