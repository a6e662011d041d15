package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-sdboot/pkg/app"
	"github.com/deploymenttheory/go-sdboot/pkg/app/codes"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List the diagnostic codes printed on the console",
	Long: `List the diagnostic codes the boot stage prints after "Error 0x" before
halting. The values are stable across releases.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.ValidateOutputFormat(GetOutputFormat()); err != nil {
			return err
		}
		return codes.FormatOutput(os.Stdout, GetOutputFormat())
	},
}

func init() {
	rootCmd.AddCommand(codesCmd)
}
