package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-sdboot/internal/boot"
	"github.com/deploymenttheory/go-sdboot/internal/fault"
	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
	"github.com/deploymenttheory/go-sdboot/pkg/app/bootrun"
)

var (
	// Overrides of the configured boot constants
	bootDestination   string
	bootDestSize      string
	bootClockKHz      uint32
	bootPartitionType string

	// Fault injection
	injectInit   string
	injectCopy   string
	injectCopyAt int

	// Host behavior
	bootDump   string
	bootVerify bool
	noHalt     bool
)

var bootCmd = &cobra.Command{
	Use:   "boot [image-path]",
	Short: "Run the boot sequence against a card image",
	Long: `Run the SD boot sequence against a raw card image.

The board's serial console output goes to stdout. On failure the diagnostic
code is printed and the stage halts until interrupted (Ctrl-C stands in for a
power cycle); with --no-halt it exits with status 1 instead.

Examples:
  # Boot the EFI System Partition of a card image
  go-sdboot boot card.img

  # Load a Linux filesystem partition and save what landed in memory
  go-sdboot boot card.img --partition-type 0FC63DAF-8483-4772-8E79-3D69D8477DE4 --dump payload.bin

  # Rehearse the console output of an ACMD41 handshake failure
  go-sdboot boot card.img --inject-init acmd41 --no-halt

  # Fail the bulk copy with a CRC mismatch (read 3 when the entry sits in the
  # first table block: header, table block, payload)
  go-sdboot boot card.img --inject-copy crc --inject-copy-at 3 --no-halt`,

	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath := ""
		if len(args) == 1 {
			imagePath = args[0]
		}
		return runBoot(cmd, imagePath)
	},
}

func init() {
	rootCmd.AddCommand(bootCmd)

	bootCmd.Flags().StringVar(&bootDestination, "dest", "", "load address (default from config, 0x80000000)")
	bootCmd.Flags().StringVar(&bootDestSize, "dest-size", "", "size of the load region in bytes (default from config, 30 MiB)")
	bootCmd.Flags().Uint32Var(&bootClockKHz, "clock-khz", 0, "peripheral input clock in kHz (default from config)")
	bootCmd.Flags().StringVar(&bootPartitionType, "partition-type", "", "partition type GUID to load (default EFI System)")

	bootCmd.Flags().StringVar(&injectInit, "inject-init", "", "fail card init at step (cmd0, cmd8, acmd41, cmd58, cmd16, other, or a number)")
	bootCmd.Flags().StringVar(&injectCopy, "inject-copy", "", "fail a read with (cmd18, crc, other, or a number)")
	bootCmd.Flags().IntVar(&injectCopyAt, "inject-copy-at", 1, "read command (1-based) that --inject-copy fails")

	bootCmd.Flags().StringVar(&bootDump, "dump", "", "write the loaded payload to this file")
	bootCmd.Flags().BoolVar(&bootVerify, "verify", false, "load twice and compare the results")
	bootCmd.Flags().BoolVar(&noHalt, "no-halt", false, "exit with status 1 instead of halting on failure")
}

func runBoot(cmd *cobra.Command, imagePath string) error {
	ctx, err := newAppContext()
	if err != nil {
		return err
	}
	defer ctx.Logger.Sync()

	config, err := boot.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if err := applyBootOverrides(cmd, config, imagePath); err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var halter interfaces.Halter = fault.UntilReset{
		Ctx:   signalCtx,
		Reset: func() { os.Exit(1) },
	}
	if noHalt {
		halter = &fault.Recorder{}
	}

	request := &bootrun.Request{
		Config:       *config,
		InjectInit:   injectInit,
		InjectCopy:   injectCopy,
		InjectCopyAt: injectCopyAt,
		DumpPath:     bootDump,
		Verify:       bootVerify,
		Console:      os.Stdout,
		Halter:       halter,
	}

	response, err := bootrun.Handle(ctx, request)
	if response != nil && !ctx.Quiet {
		if ferr := bootrun.FormatOutput(os.Stderr, response, ctx.OutputFormat); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return err
	}

	ctx.Log(bootrun.FormatSummary(response))
	return nil
}

// applyBootOverrides merges the positional image path and explicitly set
// flags over the loaded configuration
func applyBootOverrides(cmd *cobra.Command, config *boot.Config, imagePath string) error {
	if imagePath != "" {
		config.ImagePath = imagePath
	}
	if cmd.Flags().Changed("dest") {
		addr, err := parseUint(bootDestination)
		if err != nil {
			return err
		}
		config.DestinationAddress = addr
	}
	if cmd.Flags().Changed("dest-size") {
		size, err := parseSize(bootDestSize)
		if err != nil {
			return err
		}
		config.DestinationSize = size
	}
	if cmd.Flags().Changed("clock-khz") {
		config.ClockKHz = bootClockKHz
	}
	if cmd.Flags().Changed("partition-type") {
		config.PartitionType = bootPartitionType
	}
	return nil
}
