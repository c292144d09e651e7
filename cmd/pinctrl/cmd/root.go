package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pinctrl",
	Short: "Tangier pin-mux configuration tool",
	Long: `Resolve Tangier pins to their bufcfg registers and apply board pin-mux
configuration, either against a simulated register file or against the real
controller through /dev/mem.

Examples:
  pinctrl families                        # List the pin families and bank bases
  pinctrl addr 37 111                     # Show bufcfg addresses of pins
  pinctrl apply --device edison           # Apply the embedded Edison table (simulator)
  pinctrl apply -f board.yaml --devmem    # Apply a board file on real hardware`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"log level (debug, info, warn, error)")
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("bad --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// parseAddr accepts decimal, 0x hex or 0o octal.
func parseAddr(s string) (uintptr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %w", s, err)
	}
	return uintptr(v), nil
}
