package bootrun

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// FormatOutput formats a boot response according to output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable formats the response as a key/value table
func formatTable(w io.Writer, response *Response) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "IMAGE\t%s\n", response.ImagePath)
	fmt.Fprintf(tw, "PARTITION TYPE\t%s\n", response.PartitionGUID)
	fmt.Fprintf(tw, "STATE\t%s\n", response.State)
	fmt.Fprintf(tw, "CODE\t%s\n", response.Code)
	if response.Succeeded() {
		fmt.Fprintf(tw, "PARTITION\tLBA %d-%d (%d sectors)\n",
			response.Partition.FirstLBA, response.Partition.LastLBA, response.Partition.SectorCount())
		fmt.Fprintf(tw, "LOADED\t%s (%d bytes)\n", humanize.IBytes(response.Bytes), response.Bytes)
		fmt.Fprintf(tw, "ENTRY\t0x%x\n", response.EntryAddress)
		fmt.Fprintf(tw, "SHA256\t%s\n", response.SHA256)
	}
	fmt.Fprintf(tw, "READS\t%d command(s), %s\n",
		response.ReadCommands, humanize.IBytes(response.BlocksRead*512))
	if response.Verified {
		fmt.Fprintf(tw, "VERIFIED\tsecond load identical\n")
	}
	if response.DumpPath != "" {
		fmt.Fprintf(tw, "DUMP\t%s\n", response.DumpPath)
	}
	fmt.Fprintf(tw, "TIME\t%v\n", response.Duration)

	return tw.Flush()
}

// formatJSON formats the response as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats the response as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}

// FormatSummary provides a one-line summary for verbose output
func FormatSummary(response *Response) string {
	if !response.Succeeded() {
		return fmt.Sprintf("Boot halted with code %s", response.Code)
	}
	return fmt.Sprintf("Loaded %s from LBA %d-%d to 0x%x in %v",
		humanize.IBytes(response.Bytes), response.Partition.FirstLBA, response.Partition.LastLBA,
		response.EntryAddress, response.Duration)
}
