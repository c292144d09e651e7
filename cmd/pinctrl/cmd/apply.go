package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pinmux-go/bus"
	"pinmux-go/services/config"
	"pinmux-go/services/pinctrl"
	"pinmux-go/services/recorder"
	"pinmux-go/types"
	"pinmux-go/x/strx"
)

var (
	applyFile      string
	applyDevice    string
	applyDevMem    bool
	applyBase      string
	applySCUBase   string
	applyProtected []int
	applyTimeout   time.Duration
	applyRecord    string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a board pin-mux table",
	Long: `Run one configuration pass over a board pin-mux table and print the
outcome of every pin. Failing pins are reported and do not stop the pass.

By default the pass runs against a simulated register file in which the banks
of the --protect families only accept SCU writes. With --devmem the
controller region and the SCU IPC block are mapped from /dev/mem.

Examples:
  pinctrl apply --device edison
  pinctrl apply -f board.yaml --protect 7
  pinctrl apply -f board.yaml --devmem --scu-base 0xff009000`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "",
		"board YAML file with a top-level pinctrl section")
	applyCmd.Flags().StringVarP(&applyDevice, "device", "d", "edison",
		"embedded board config to use when no file is given")
	applyCmd.Flags().BoolVar(&applyDevMem, "devmem", false,
		"access the real controller through /dev/mem")
	applyCmd.Flags().StringVar(&applyBase, "base", "",
		"override the controller region base")
	applyCmd.Flags().StringVar(&applySCUBase, "scu-base", "",
		"SCU IPC register block base (devmem only)")
	applyCmd.Flags().IntSliceVar(&applyProtected, "protect", []int{7},
		"simulator: families whose bank only the SCU may write")
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", 5*time.Second,
		"give up if the pass has not finished by then")
	applyCmd.Flags().StringVar(&applyRecord, "record", "",
		"append the pinctrl bus traffic of the pass to this CBOR file")
}

// loadBoard reads the board file, or the embedded config for --device, and
// checks that it carries a pinctrl section.
func loadBoard() ([]byte, error) {
	var raw []byte
	if applyFile != "" {
		b, err := os.ReadFile(applyFile)
		if err != nil {
			return nil, err
		}
		raw = b
	} else {
		b, ok := config.EmbeddedConfigLookup(applyDevice)
		if !ok {
			return nil, fmt.Errorf("no embedded config for device %q (have %v)", applyDevice, config.Devices())
		}
		raw = b
	}
	doc, err := config.Decode(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := doc["pinctrl"]; !ok {
		return nil, errors.New("board config has no pinctrl section")
	}
	return raw, nil
}

// rebased forces every controller onto one region base.
type rebased struct {
	pinctrl.Platform
	base uintptr
}

func (r rebased) Discover(ctrl types.PinController) (pinctrl.Instance, error) {
	ctrl.Reg = uint64(r.base)
	return r.Platform.Discover(ctrl)
}

func runApply(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	raw, err := loadBoard()
	if err != nil {
		return err
	}

	var plat pinctrl.Platform
	if applyDevMem {
		dm := pinctrl.DevMemPlatform{Log: log}
		if applySCUBase != "" {
			if dm.SCUBase, err = parseAddr(applySCUBase); err != nil {
				return err
			}
		}
		plat = dm
	} else {
		plat = pinctrl.NewSimPlatform(log, applyProtected...)
	}
	if applyBase != "" {
		base, err := parseAddr(applyBase)
		if err != nil {
			return err
		}
		plat = rebased{Platform: plat, base: base}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), applyTimeout)
	defer cancel()

	b := bus.NewBus(256)
	conn := b.NewConnection("cli")
	defer conn.Disconnect()
	stateSub := conn.Subscribe(pinctrl.TopicState())

	if applyRecord != "" {
		stop, err := startRecorder(b, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	svc := pinctrl.New(b.NewConnection("pinctrl"), plat, pinctrl.WithLogger(log))
	go svc.Run(ctx)

	config.NewConfigService().WithBytes(raw).WithLogger(log).Start(ctx, b.NewConnection("config"))

	st, err := waitDone(ctx, stateSub)
	if err != nil {
		return err
	}
	if st.Level == "error" {
		return fmt.Errorf("%s: %s", st.Status, st.Error)
	}
	printResults(cmd, conn)
	fmt.Fprintln(cmd.OutOrStdout(), "status:", st.Status)
	return nil
}

// startRecorder records pinctrl/# into applyRecord; stop flushes and closes
// the file.
func startRecorder(b *bus.Bus, log *slog.Logger) (stop func(), err error) {
	f, err := os.OpenFile(applyRecord, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	rec := recorder.New(f, log)
	conn := b.NewConnection("recorder")
	go func() {
		defer close(done)
		rec.Run(ctx, conn, bus.T("pinctrl", "#"))
	}()
	return func() {
		cancel()
		<-done
		if err := f.Close(); err != nil {
			log.Warn("recorder_close", slog.Any("err", err))
		}
	}, nil
}

func waitDone(ctx context.Context, sub *bus.Subscription) (types.PinctrlState, error) {
	for {
		select {
		case <-ctx.Done():
			return types.PinctrlState{}, errors.New("timed out waiting for the configuration pass")
		case m := <-sub.Channel():
			st, ok := m.Payload.(types.PinctrlState)
			if !ok {
				continue
			}
			if st.Level == "ready" || st.Level == "error" {
				return st, nil
			}
		}
	}
}

func printResults(cmd *cobra.Command, conn *bus.Connection) {
	sub := conn.Subscribe(bus.T("pinctrl", "+", "pin", "+", "status"))
	defer conn.Unsubscribe(sub)

	type row struct {
		ctrl, name string
		st         types.PinStatus
	}
	var rows []row
drain:
	for {
		select {
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.PinStatus); ok {
				rows = append(rows, row{fmt.Sprint(m.Topic.At(1)), fmt.Sprint(m.Topic.At(3)), st})
			}
		default:
			break drain
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ctrl != rows[j].ctrl {
			return rows[i].ctrl < rows[j].ctrl
		}
		return rows[i].name < rows[j].name
	})

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTROLLER\tNAME\tPIN\tMODE\tPATH\tBUFCFG\tVALUE\tRESULT")
	for _, r := range rows {
		path := "direct"
		if r.st.Protected {
			path = "scu"
		}
		result := "ok"
		if !r.st.OK {
			result = r.st.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			r.ctrl, r.name, r.st.Pin, r.st.Mode, path, strx.Coalesce(r.st.Addr, "-"), strx.Coalesce(r.st.Value, "-"), result)
	}
	tw.Flush()
}
