package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// FormatOutput formats an inspection response according to output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable formats the header summary followed by one row per partition
func formatTable(w io.Writer, response *Response) error {
	h := response.Header
	fmt.Fprintf(w, "Image: %s (%s)\n", response.ImagePath, humanize.IBytes(uint64(response.ImageBytes)))
	fmt.Fprintf(w, "Disk GUID: %s\n", h.DiskGUID)
	fmt.Fprintf(w, "Entries: %d x %d bytes at LBA %d (header CRC %s, entries CRC %s)\n\n",
		h.NumEntries, h.EntrySize, h.EntriesLBA, okString(response.HeaderOK), okString(response.EntriesOK))

	if response.BootRange != nil {
		fmt.Fprintf(w, "Boot loads: LBA %d-%d (%s)\n\n", response.BootRange.FirstLBA, response.BootRange.LastLBA,
			humanize.IBytes(response.BootRange.Bytes()))
	}

	if len(response.Partitions) == 0 {
		fmt.Fprintln(w, "No partitions found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tNAME\tTYPE\tFIRST LBA\tLAST LBA\tSIZE\tBOOT\n")
	fmt.Fprintf(tw, "-\t----\t----\t---------\t--------\t----\t----\n")
	for _, p := range response.Partitions {
		boot := ""
		if p.Selected {
			boot = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s (%s)\t%d\t%d\t%s\t%s\n",
			p.Index+1, p.Name, p.TypeName, p.TypeGUID, p.FirstLBA, p.LastLBA, humanize.IBytes(p.Bytes), boot)
	}
	return tw.Flush()
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "BAD"
}
