package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-sdboot/internal/types"
	"github.com/deploymenttheory/go-sdboot/pkg/app/mkimage"
)

var (
	mkimagePartitionType string
	mkimageName          string
)

var mkimageCmd = &cobra.Command{
	Use:   "mkimage [payload-path] [image-path]",
	Short: "Build a card image holding a payload partition",
	Long: `Write a GPT card image whose only partition holds the payload file,
aligned to 1 MiB. The image can be booted with "go-sdboot boot" or written
to a card with dd.

Examples:
  go-sdboot mkimage bbl.bin card.img
  go-sdboot mkimage kernel.bin card.img --partition-type 0FC63DAF-8483-4772-8E79-3D69D8477DE4 --name kernel`,

	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMkimage(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(mkimageCmd)

	mkimageCmd.Flags().StringVar(&mkimagePartitionType, "partition-type", types.EFISystemPartitionGUID, "partition type GUID")
	mkimageCmd.Flags().StringVar(&mkimageName, "name", "payload", "partition name")
}

func runMkimage(payloadPath, imagePath string) error {
	ctx, err := newAppContext()
	if err != nil {
		return err
	}
	defer ctx.Logger.Sync()

	response, err := mkimage.Handle(ctx, &mkimage.Request{
		OutputPath:    imagePath,
		PayloadPath:   payloadPath,
		PartitionType: mkimagePartitionType,
		Name:          mkimageName,
	})
	if err != nil {
		return err
	}

	if !ctx.Quiet {
		fmt.Fprintf(os.Stdout, "Wrote %s: %s payload at LBA %d-%d, image %s\n",
			response.OutputPath, humanize.IBytes(uint64(response.Payload)),
			response.Partition.FirstLBA, response.Partition.LastLBA,
			humanize.IBytes(response.Blocks*types.BlockSize))
	}
	return nil
}
