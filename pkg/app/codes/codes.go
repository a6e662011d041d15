package codes

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-sdboot/internal/fault"
)

// FormatOutput prints the diagnostic code table
func FormatOutput(w io.Writer, format string) error {
	table := fault.Codes()

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(table)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(table)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "CODE\tSUBSYSTEM\tDESCRIPTION\n")
		fmt.Fprintf(tw, "----\t---------\t-----------\n")
		for _, info := range table {
			fmt.Fprintf(tw, "0x%x\t%s\t%s\n", uint32(info.Code), info.Subsystem, info.Description)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
