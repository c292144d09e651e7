package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pinmux-go/drivers/tangier"
	"pinmux-go/services/pinctrl"
	"pinmux-go/x/conv"
)

var regionBaseFlag string

var familiesCmd = &cobra.Command{
	Use:   "families",
	Short: "List pin families and their register banks",
	Args:  cobra.NoArgs,
	RunE:  runFamilies,
}

func init() {
	rootCmd.AddCommand(familiesCmd)
	familiesCmd.Flags().StringVar(&regionBaseFlag, "base", conv.HexAddr(pinctrl.DefaultRegionBase),
		"controller register region base")
}

func familyTable() (tangier.FamilyTable, error) {
	base, err := parseAddr(regionBaseFlag)
	if err != nil {
		return tangier.FamilyTable{}, err
	}
	return tangier.NewFamilyTable(base, tangier.DefaultFamilies)
}

func runFamilies(cmd *cobra.Command, args []string) error {
	table, err := familyTable()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FAMILY\tPINS\tBANK\tFIRST BUFCFG")
	for _, f := range table.Families() {
		fmt.Fprintf(tw, "%d\t%d..%d\t%s\t%s\n",
			f.Number, f.PinBase, f.PinBase+f.PinCount-1,
			conv.HexAddr(f.Base), conv.HexAddr(f.BufCfg(f.PinBase)))
	}
	return tw.Flush()
}
