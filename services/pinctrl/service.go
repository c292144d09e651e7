// Package pinctrl is the bring-up service that applies pin-mux
// configuration. It consumes config/pinctrl, runs one configuration pass per
// controller instance and publishes the per-pin outcome:
//
//	pinctrl/state                               service state (retained)
//	pinctrl/<controller>/pin/<name>/status      types.PinStatus (retained)
//	pinctrl/<controller>/summary                types.ControllerSummary (retained)
package pinctrl

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"pinmux-go/bus"
	"pinmux-go/drivers/tangier"
	"pinmux-go/errcode"
	"pinmux-go/services/pinctrl/internal/consts"
	"pinmux-go/types"
	"pinmux-go/x/conv"
	"pinmux-go/x/strx"
	"pinmux-go/x/yamlx"
)

var topicConfig = bus.T(consts.TokConfig, consts.TokPinctrl)

func TopicState() bus.Topic { return bus.T(consts.TokPinctrl, consts.TokState) }

func TopicPinStatus(ctrl, pin string) bus.Topic {
	return bus.T(consts.TokPinctrl, ctrl, consts.TokPin, pin, consts.TokStatus)
}

func TopicSummary(ctrl string) bus.Topic {
	return bus.T(consts.TokPinctrl, ctrl, consts.TokSummary)
}

// ControllerResult is the outcome of one controller's configuration pass.
type ControllerResult struct {
	Name   string
	Base   uintptr
	Report tangier.Report
	Err    error // discovery or setup failure; Report is empty then
}

type Service struct {
	conn *bus.Connection
	plat Platform
	log  *slog.Logger
	now  func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func New(conn *bus.Connection, plat Platform, opts ...Option) *Service {
	s := &Service{conn: conn, plat: plat, log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState(consts.LevelIdle, consts.StatusAwaitingConfig, nil)

	for {
		select {
		case <-ctx.Done():
			s.publishState(consts.LevelStopped, consts.StatusCancelled, nil)
			return

		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.log.Error("pinctrl_config:decode", slog.Any("err", err))
				s.publishState(consts.LevelError, consts.StatusBadConfig, err)
				continue
			}
			results := s.Apply(cfg)
			status := consts.StatusConfigured
			for _, r := range results {
				if r.Err != nil || len(r.Report.Failed()) > 0 {
					status = consts.StatusPartial
				}
			}
			// Individual pin failures never fail bring-up.
			s.publishState(consts.LevelReady, status, nil)
		}
	}
}

// Apply runs a configuration pass for each controller in cfg, in order, and
// publishes the results.
func (s *Service) Apply(cfg types.PinctrlConfig) []ControllerResult {
	out := make([]ControllerResult, 0, len(cfg.Controllers))
	for _, ctrl := range cfg.Controllers {
		res := s.applyController(ctrl)
		if res.Err != nil {
			s.log.Error("pinctrl_probe:failed",
				slog.String("controller", ctrl.Name),
				slog.String("compatible", ctrl.Compatible),
				slog.Any("err", res.Err))
		}
		s.publishResult(ctrl, res)
		out = append(out, res)
	}
	return out
}

func (s *Service) applyController(ctrl types.PinController) ControllerResult {
	res := ControllerResult{Name: ctrl.Name}
	if ctrl.Compatible != tangier.Compatible {
		res.Err = errcode.Wrap(errcode.UnknownController, "probe", ctrl.Compatible, nil)
		return res
	}
	inst, err := s.plat.Discover(ctrl)
	if err != nil {
		res.Err = errcode.Wrap(errcode.UnknownController, "discover", ctrl.Name, err)
		return res
	}
	if inst.Close != nil {
		defer func() {
			if err := inst.Close(); err != nil {
				s.log.Warn("pinctrl_release", slog.String("controller", ctrl.Name), slog.Any("err", err))
			}
		}()
	}
	res.Base = inst.Base

	c, err := tangier.New(inst.Base, inst.Port, inst.Channel,
		tangier.WithLogger(s.log.With(slog.String("controller", ctrl.Name))))
	if err != nil {
		res.Err = err
		return res
	}
	records := make([]tangier.Record, len(ctrl.Pins))
	for i, p := range ctrl.Pins {
		records[i] = tangier.Record(p.Props)
	}
	res.Report = c.Configure(records)
	s.log.Info("pinctrl_probe",
		slog.String("controller", ctrl.Name),
		slog.String("base", conv.HexAddr(inst.Base)),
		slog.Int("pins", len(records)),
		slog.Int("failed", len(res.Report.Failed())))
	return res
}

func (s *Service) publishResult(ctrl types.PinController, res ControllerResult) {
	ts := s.now().UnixMilli()
	for _, r := range res.Report.Results {
		st := types.PinStatus{
			Pin:       r.Entry.Pin,
			Mode:      r.Entry.Mode,
			Protected: r.Entry.Protected,
			Family:    r.Family,
			OK:        r.Err == nil,
			TS:        ts,
		}
		if r.Family >= 0 {
			st.Addr = conv.HexAddr(r.Addr)
		}
		if r.Err == nil {
			st.Value = conv.Hex32(r.New)
		} else {
			st.Error = string(r.Code())
		}
		s.conn.Publish(s.conn.NewMessage(TopicPinStatus(ctrl.Name, pinName(ctrl.Pins[r.Index], r.Index)), st, true))
	}
	s.conn.Publish(s.conn.NewMessage(TopicSummary(ctrl.Name), types.ControllerSummary{
		Compatible: ctrl.Compatible,
		Base:       conv.HexAddr(res.Base),
		Pins:       len(res.Report.Results),
		Failed:     len(res.Report.Failed()),
		Error:      errString(res.Err),
		TS:         ts,
	}, true))
}

func (s *Service) publishState(level, status string, err error) {
	s.conn.Publish(s.conn.NewMessage(TopicState(), types.PinctrlState{
		Level:  level,
		Status: status,
		Error:  errString(err),
		TS:     s.now().UnixMilli(),
	}, true))
}

func pinName(p types.PinNode, i int) string {
	return strx.Coalesce(p.Name, "entry"+strconv.Itoa(i))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// decodeConfig accepts a typed config, a raw YAML document or the generic
// tree the config service publishes.
func decodeConfig(src any) (types.PinctrlConfig, error) {
	switch v := src.(type) {
	case types.PinctrlConfig:
		return v, nil
	case *types.PinctrlConfig:
		if v != nil {
			return *v, nil
		}
	case map[string]any, []byte:
		var cfg types.PinctrlConfig
		if err := yamlx.Decode(v, &cfg); err != nil {
			return cfg, errcode.Wrap(errcode.InvalidPayload, "decode", "", err)
		}
		return cfg, nil
	}
	return types.PinctrlConfig{}, errcode.InvalidPayload
}
