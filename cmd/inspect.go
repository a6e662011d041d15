package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-sdboot/internal/boot"
	"github.com/deploymenttheory/go-sdboot/pkg/app/inspect"
)

var inspectPartitionType string

var inspectCmd = &cobra.Command{
	Use:   "inspect [image-path]",
	Short: "Show the GPT of a card image and the entry boot would pick",
	Long: `Decode the primary GPT header and partition entries of a card image.

The entry the boot stage would load for the configured partition type is
marked in the BOOT column.

Examples:
  go-sdboot inspect card.img
  go-sdboot inspect card.img -o json
  go-sdboot inspect card.img --partition-type 0FC63DAF-8483-4772-8E79-3D69D8477DE4`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectPartitionType, "partition-type", "", "partition type GUID to mark (default from config)")
}

func runInspect(cmd *cobra.Command, imagePath string) error {
	ctx, err := newAppContext()
	if err != nil {
		return err
	}
	defer ctx.Logger.Sync()

	partitionType := inspectPartitionType
	if !cmd.Flags().Changed("partition-type") {
		config, err := boot.LoadConfig(configFile)
		if err != nil {
			return err
		}
		partitionType = config.PartitionType
	}

	response, err := inspect.Handle(ctx, &inspect.Request{
		ImagePath:     imagePath,
		PartitionType: partitionType,
	})
	if err != nil {
		return err
	}

	return inspect.FormatOutput(os.Stdout, response, ctx.OutputFormat)
}
