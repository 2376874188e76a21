package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "vctrain",
	Short: "Train diffusion voice conversion models",
	Long: `vctrain - train a speaker-conditioned diffusion model.

Examples:
  # Train on synthetic data with the default config
  vctrain train --model out.model --iters 1000

  # Use a config file and export Prometheus metrics
  vctrain train --config cfg.yaml --model out.model --metrics-addr :9090`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(trainCmd)
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
