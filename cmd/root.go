package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-sdboot/pkg/app"
)

var (
	// Global output flags only
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string
)

var rootCmd = &cobra.Command{
	Use:   "go-sdboot",
	Short: "SD card GPT boot stage, simulated against card images",
	Long: `go-sdboot runs the first-stage SD boot sequence of an FPGA board against
raw card images: it initializes the card, finds the partition whose GPT type
GUID matches the configured one, and copies its sectors verbatim to the fixed
load address. Failures print the board's diagnostic code and halt.

Commands:
  boot       Run the boot sequence against a card image
  inspect    Show the GPT of a card image and the entry boot would pick
  mkimage    Build a card image holding a payload partition
  codes      List the diagnostic codes printed on the console`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: sdboot-config.yaml in ., ./config, $HOME/.sdboot, /etc/sdboot)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}

// newAppContext builds the application context from the global flags
func newAppContext() (*app.Context, error) {
	if err := app.ValidateOutputFormat(GetOutputFormat()); err != nil {
		return nil, err
	}

	logger, err := app.NewLogger(GetVerbose(), GetQuiet())
	if err != nil {
		return nil, fmt.Errorf("cannot create logger: %w", err)
	}

	ctx := app.NewContext()
	ctx.OutputFormat = GetOutputFormat()
	ctx.Verbose = GetVerbose()
	ctx.Quiet = GetQuiet()
	ctx.Logger = logger
	return ctx, nil
}
