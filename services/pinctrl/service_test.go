package pinctrl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinmux-go/bus"
	"pinmux-go/drivers/regio"
	"pinmux-go/drivers/tangier"
	"pinmux-go/errcode"
	"pinmux-go/services/config"
	"pinmux-go/services/pinctrl/internal/consts"
	"pinmux-go/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func bufcfg(family, pin, first int) uintptr {
	return DefaultRegionBase + uintptr(family)*tangier.FamilyStride + tangier.BufCfgOffset + uintptr(pin-first)*tangier.RegisterStride
}

func waitState(t *testing.T, sub *bus.Subscription, level string) types.PinctrlState {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			st, ok := m.Payload.(types.PinctrlState)
			require.True(t, ok, "state payload %T", m.Payload)
			if st.Level == level {
				return st
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state %q", level)
		}
	}
}

func retained[T any](t *testing.T, c *bus.Connection, topic bus.Topic) T {
	t.Helper()
	sub := c.Subscribe(topic)
	defer c.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		v, ok := m.Payload.(T)
		require.True(t, ok, "payload %T on %s", m.Payload, topic)
		return v
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("no retained message on %s", topic)
		var zero T
		return zero
	}
}

type harness struct {
	bus    *bus.Bus
	conn   *bus.Connection
	plat   *SimPlatform
	state  *bus.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func start(t *testing.T, protected ...int) *harness {
	t.Helper()
	b := bus.NewBus(32)
	h := &harness{
		bus:  b,
		conn: b.NewConnection("test"),
		plat: NewSimPlatform(quiet, protected...),
		done: make(chan struct{}),
	}
	h.state = h.conn.Subscribe(TopicState())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	svc := New(b.NewConnection("pinctrl"), h.plat, WithLogger(quiet))
	go func() {
		svc.Run(ctx)
		close(h.done)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	waitState(t, h.state, consts.LevelIdle)
	return h
}

func TestService_AppliesEmbeddedBoardConfig(t *testing.T) {
	h := start(t, 7)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "edison")
	config.NewConfigService().WithLogger(quiet).Start(ctx, h.bus.NewConnection("config"))

	st := waitState(t, h.state, consts.LevelReady)
	assert.Equal(t, consts.StatusConfigured, st.Status)
	assert.Empty(t, st.Error)

	scl := bufcfg(7, 111, 101)
	sda := bufcfg(7, 112, 101)
	wp := bufcfg(3, 39, 37)
	assert.Equal(t, uint32(1), h.plat.Mem.Peek(scl))
	assert.Equal(t, uint32(1), h.plat.Mem.Peek(sda))
	assert.Equal(t, uint32(0), h.plat.Mem.Peek(wp))

	// The protected pads went through the SCU; only sd-wp was stored directly.
	assert.Len(t, h.plat.SCU.Commands(), 2)
	writes := h.plat.Mem.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, regio.Write{Addr: wp, Value: 0}, writes[2])

	ps := retained[types.PinStatus](t, h.conn, TopicPinStatus("tangier", "i2c6-scl"))
	assert.True(t, ps.OK)
	assert.True(t, ps.Protected)
	assert.Equal(t, 111, ps.Pin)
	assert.Equal(t, 7, ps.Family)
	assert.Equal(t, "0xff0c1d28", ps.Addr)
	assert.Equal(t, "0x00000001", ps.Value)

	sum := retained[types.ControllerSummary](t, h.conn, TopicSummary("tangier"))
	assert.Equal(t, tangier.Compatible, sum.Compatible)
	assert.Equal(t, "0xff0c0000", sum.Base)
	assert.Equal(t, 3, sum.Pins)
	assert.Zero(t, sum.Failed)
}

func TestService_PartialFailureStillReady(t *testing.T) {
	h := start(t)
	h.plat.Mem.Preset(bufcfg(3, 37, 37), 0xffff_fff0)

	h.conn.Publish(h.conn.NewMessage(topicConfig, types.PinctrlConfig{
		Controllers: []types.PinController{{
			Name:       "tangier",
			Compatible: tangier.Compatible,
			Pins: []types.PinNode{
				{Name: "a", Props: map[string]any{"pad-offset": 37, "mode-func": 5}},
				{Props: map[string]any{"pad-offset": 999, "mode-func": 1}},
				{Name: "bad-mode", Props: map[string]any{"pad-offset": 38, "mode-func": 9}},
			},
		}},
	}, true))

	st := waitState(t, h.state, consts.LevelReady)
	assert.Equal(t, consts.StatusPartial, st.Status)
	assert.Equal(t, uint32(0xffff_fff5), h.plat.Mem.Peek(bufcfg(3, 37, 37)))

	miss := retained[types.PinStatus](t, h.conn, TopicPinStatus("tangier", "entry1"))
	assert.False(t, miss.OK)
	assert.Equal(t, string(errcode.FamilyNotFound), miss.Error)
	assert.Equal(t, -1, miss.Family)
	assert.Empty(t, miss.Addr)

	bad := retained[types.PinStatus](t, h.conn, TopicPinStatus("tangier", "bad-mode"))
	assert.Equal(t, string(errcode.UnsupportedMode), bad.Error)
	assert.Equal(t, 38, bad.Pin)

	sum := retained[types.ControllerSummary](t, h.conn, TopicSummary("tangier"))
	assert.Equal(t, 3, sum.Pins)
	assert.Equal(t, 2, sum.Failed)
}

func TestService_UnknownController(t *testing.T) {
	h := start(t)

	h.conn.Publish(h.conn.NewMessage(topicConfig, &types.PinctrlConfig{
		Controllers: []types.PinController{
			{Name: "other", Compatible: "acme,pinctrl", Pins: []types.PinNode{
				{Name: "x", Props: map[string]any{"pad-offset": 37, "mode-func": 1}},
			}},
		},
	}, false))

	st := waitState(t, h.state, consts.LevelReady)
	assert.Equal(t, consts.StatusPartial, st.Status)
	assert.Empty(t, h.plat.Mem.Writes())

	sum := retained[types.ControllerSummary](t, h.conn, TopicSummary("other"))
	assert.Contains(t, sum.Error, string(errcode.UnknownController))
	assert.Zero(t, sum.Pins)
}

func TestService_BadPayload(t *testing.T) {
	h := start(t)

	h.conn.Publish(h.conn.NewMessage(topicConfig, "not a config", false))
	st := waitState(t, h.state, consts.LevelError)
	assert.Equal(t, consts.StatusBadConfig, st.Status)
	assert.Equal(t, string(errcode.InvalidPayload), st.Error)
}

func TestService_StopsOnCancel(t *testing.T) {
	h := start(t)
	h.cancel()
	st := waitState(t, h.state, consts.LevelStopped)
	assert.Equal(t, consts.StatusCancelled, st.Status)
	<-h.done
}

type failingPlatform struct{}

func (failingPlatform) Discover(types.PinController) (Instance, error) {
	return Instance{}, errors.New("no such device")
}

func TestApply_DiscoverFailure(t *testing.T) {
	b := bus.NewBus(8)
	svc := New(b.NewConnection("pinctrl"), failingPlatform{}, WithLogger(quiet))

	res := svc.Apply(types.PinctrlConfig{Controllers: []types.PinController{
		{Name: "tangier", Compatible: tangier.Compatible},
	}})
	require.Len(t, res, 1)
	assert.ErrorIs(t, res[0].Err, errcode.UnknownController)
}

func TestDecodeConfig_GenericTree(t *testing.T) {
	m, err := config.Decode([]byte(`
pinctrl:
  controllers:
    - name: t
      compatible: intel,pinctrl-tangier
      reg: 0xff0c0000
      pins:
        - name: p
          pad-offset: 101
          mode-func: 2
          protected: true
`))
	require.NoError(t, err)

	cfg, err := decodeConfig(m["pinctrl"])
	require.NoError(t, err)
	require.Len(t, cfg.Controllers, 1)
	c := cfg.Controllers[0]
	assert.Equal(t, uint64(0xff0c0000), c.Reg)
	require.Len(t, c.Pins, 1)
	assert.Equal(t, "p", c.Pins[0].Name)
	assert.Equal(t, 101, c.Pins[0].Props["pad-offset"])
	assert.Equal(t, true, c.Pins[0].Props["protected"])
	assert.NotContains(t, c.Pins[0].Props, "name")

	_, err = decodeConfig(42)
	assert.ErrorIs(t, err, errcode.InvalidPayload)
}
