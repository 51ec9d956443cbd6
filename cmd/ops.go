package cmd

import (
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sluicedata/sluice/aggregates"
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the aggregation operations group_by blocks accept",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		names := make([]string, 0, len(aggregates.Table))
		for name := range aggregates.Table {
			names = append(names, name)
		}
		sort.Strings(names)

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetColWidth(24)
		table.SetRowLine(false)
		table.SetHeader([]string{"op", "kind", "arguments", "output", "composite"})
		table.SetAutoFormatHeaders(false)

		for _, name := range names {
			descriptor := aggregates.Table[name]
			arguments := strconv.Itoa(descriptor.Arity)
			if descriptor.Arity == aggregates.ArityVariadic {
				arguments = "1+"
			}
			output := "one field"
			if descriptor.MirrorsArguments {
				output = "argument fields"
			}
			table.Append([]string{name, descriptor.Kind.String(), arguments, output, descriptor.Composite})
		}
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(opsCmd)
}
