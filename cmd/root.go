package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/sluicedata/sluice/config"
	"github.com/sluicedata/sluice/pipefile"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sluice",
	Short: "Compose batch dataflow pipelines and inspect their schemas",
	Long: `sluice builds pipelines from declarative pipefiles and tracks the
field schema through every stage without moving a single row.`,
	Example: `sluice describe daily.yml
sluice describe daily.yml --dot
sluice schemas daily.yml
sluice sandbox`,
	SilenceErrors: true,
}

var (
	configPath  string
	profileMode string
	profiler    interface{ Stop() }
)

func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file to use instead of ~/.sluice/config.yml.")
	rootCmd.PersistentFlags().StringVar(&profileMode, "profile", "", "Collect a profile while the command runs; one of cpu, mem.")
	rootCmd.PersistentPreRunE = startProfiler
	rootCmd.PersistentPostRun = stopProfiler
}

func startProfiler(cmd *cobra.Command, args []string) error {
	switch profileMode {
	case "":
	case "cpu":
		profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."))
	case "mem":
		profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."))
	default:
		return fmt.Errorf("unknown profile mode %q, want cpu or mem", profileMode)
	}
	return nil
}

func stopProfiler(cmd *cobra.Command, args []string) {
	if profiler != nil {
		profiler.Stop()
	}
}

// loadBuild reads the CLI configuration and builds the given pipefile
// against it.
func loadBuild(path string) (*pipefile.Build, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	build, err := pipefile.Load(path, pipefile.Options{Databases: cfg.Databases})
	if err != nil {
		return nil, fmt.Errorf("couldn't build pipefile: %w", err)
	}
	return build, nil
}

func readConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.ReadFrom(configPath)
	} else {
		cfg, err = config.Read()
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read config: %w", err)
	}
	return cfg, nil
}
