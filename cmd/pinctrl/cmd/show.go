package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pinmux-go/services/recorder"
)

var showCmd = &cobra.Command{
	Use:   "show <file.cbor>",
	Short: "Print a recording made with apply --record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	evs, err := recorder.ReadAll(f)
	out := cmd.OutOrStdout()
	for _, e := range evs {
		fmt.Fprintf(out, "%4d %s %s %v\n", e.Seq, e.Timestamp.Format("15:04:05.000000"), e.Topic, e.Payload)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}
