package cmd

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas <pipefile>",
	Short: "Print the final schema of every sink in a pipefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		build, err := loadBuild(args[0])
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetColWidth(24)
		table.SetRowLine(false)
		table.SetHeader([]string{"sink", "field", "type"})
		table.SetAutoFormatHeaders(false)

		for _, binding := range build.Flow.SinkBindings() {
			for _, field := range binding.Schema.Fields() {
				table.Append([]string{binding.Name, field.Name, field.Type.String()})
			}
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemasCmd)
}
