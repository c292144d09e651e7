package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pinmux-go/errcode"
	"pinmux-go/services/pinctrl"
	"pinmux-go/x/conv"
)

var addrCmd = &cobra.Command{
	Use:   "addr <pin>...",
	Short: "Print the bufcfg register address of each pin",
	Long: `Resolve each pin to its family and print the address of its bufcfg
register. Pins outside every family are reported and do not stop the others.

Examples:
  pinctrl addr 37 101
  pinctrl addr --base 0xff0c0000 111`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAddr,
}

func init() {
	rootCmd.AddCommand(addrCmd)
	addrCmd.Flags().StringVar(&regionBaseFlag, "base", conv.HexAddr(pinctrl.DefaultRegionBase),
		"controller register region base")
}

func runAddr(cmd *cobra.Command, args []string) error {
	table, err := familyTable()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, a := range args {
		pin, err := strconv.ParseInt(a, 0, 32)
		if err != nil {
			return fmt.Errorf("bad pin %q: %w", a, err)
		}
		f, err := table.Resolve(int(pin))
		if err != nil {
			fmt.Fprintf(out, "pin %d: %s\n", pin, errcode.Of(err))
			continue
		}
		fmt.Fprintf(out, "pin %d: family %d bufcfg %s\n", pin, f.Number, conv.HexAddr(f.BufCfg(int(pin))))
	}
	return nil
}
