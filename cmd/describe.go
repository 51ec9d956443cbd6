package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	"github.com/sluicedata/sluice/graph"
	"github.com/sluicedata/sluice/pipeline"
)

var describeCmd = &cobra.Command{
	Use:   "describe <pipefile>",
	Short: "Print the stage tree of a pipefile with the schema at every stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		build, err := loadBuild(args[0])
		if err != nil {
			return err
		}

		switch {
		case describeRaw:
			spew.Fdump(cmd.OutOrStdout(), build.Flow.Visualize())
			return nil
		case describeDot:
			fmt.Fprintln(cmd.OutOrStdout(), graph.Show(build.Flow.Visualize()).String())
			return nil
		case describeOpen:
			return renderAndOpen(build.Flow.Visualize())
		default:
			fmt.Fprint(cmd.OutOrStdout(), pipeline.Describe(build.Flow))
			return nil
		}
	},
}

// renderAndOpen pipes the dot form through graphviz into a temporary png
// and opens it with the system viewer.
func renderAndOpen(tree *graph.Node) error {
	file, err := os.CreateTemp(os.TempDir(), "sluice-describe-*.png")
	if err != nil {
		return fmt.Errorf("couldn't create temporary file: %w", err)
	}
	render := exec.Command("dot", "-Tpng")
	render.Stdin = strings.NewReader(graph.Show(tree).String())
	render.Stdout = file
	render.Stderr = os.Stderr
	if err := render.Run(); err != nil {
		return fmt.Errorf("couldn't render graph: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("couldn't close temporary file: %w", err)
	}
	if err := open.Start(file.Name()); err != nil {
		return fmt.Errorf("couldn't open graph: %w", err)
	}
	return nil
}

var (
	describeDot  bool
	describeOpen bool
	describeRaw  bool
)

func init() {
	describeCmd.Flags().BoolVar(&describeDot, "dot", false, "Print the graphviz dot form instead of text.")
	describeCmd.Flags().BoolVar(&describeOpen, "open", false, "Render the graph to a png and open it.")
	describeCmd.Flags().BoolVar(&describeRaw, "raw", false, "Dump the raw describe tree.")
	rootCmd.AddCommand(describeCmd)
}
