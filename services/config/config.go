package config

import (
	"context"
	"errors"
	"log/slog"

	"gopkg.in/yaml.v3"

	"pinmux-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

var (
	ErrNoDevice   = errors.New("config: missing device ID in context")
	ErrNoConfig   = errors.New("config: no embedded config for device")
	ErrNotMapping = errors.New("config: document is not a mapping")
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Devices lists the device IDs with an embedded config.
func Devices() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	return out
}

type ConfigService struct {
	Name string
	raw  []byte // overrides the embedded lookup when set
	log  *slog.Logger
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName, log: slog.Default()}
}

// WithBytes makes the service publish raw instead of an embedded config.
func (s *ConfigService) WithBytes(raw []byte) *ConfigService {
	s.raw = raw
	return s
}

func (s *ConfigService) WithLogger(l *slog.Logger) *ConfigService {
	if l != nil {
		s.log = l
	}
	return s
}

// Decode parses a YAML (or JSON) document into its top-level sections.
func Decode(raw []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return m, nil
}

// publishConfig publishes every top-level key as a retained config/<key>
// message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	raw := s.raw
	if raw == nil {
		device, _ := ctx.Value(CtxDeviceKey).(string)
		if device == "" {
			return ErrNoDevice
		}
		b, ok := EmbeddedConfigLookup(device)
		if !ok || len(b) == 0 {
			return ErrNoConfig
		}
		raw = b
	}

	m, err := Decode(raw)
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start publishes the config in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.Error("config_publish:failed", slog.Any("err", err))
		}
	}()
}
