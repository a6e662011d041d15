package inspect

import (
	"github.com/deploymenttheory/go-sdboot/internal/gpt"
)

// Request represents a partition table inspection request
type Request struct {
	ImagePath string

	// PartitionType marks the entry the boot stage would select
	PartitionType string
}

// Response represents the decoded partition table of an image
type Response struct {
	ImagePath  string      `json:"image_path" yaml:"image_path"`
	ImageBytes int64       `json:"image_bytes" yaml:"image_bytes"`
	Header     gpt.Header  `json:"header" yaml:"header"`
	HeaderOK   bool        `json:"header_crc_ok" yaml:"header_crc_ok"`
	EntriesOK  bool        `json:"entries_crc_ok" yaml:"entries_crc_ok"`
	Partitions []Partition `json:"partitions" yaml:"partitions"`

	// BootRange is what the boot stage would load for PartitionType, nil
	// when it would halt with partition not found
	BootRange *gpt.PartitionRange `json:"boot_range,omitempty" yaml:"boot_range,omitempty"`
}

// Partition is a table entry annotated for display
type Partition struct {
	gpt.Entry `yaml:",inline"`
	TypeName  string `json:"type_name" yaml:"type_name"`
	Bytes     uint64 `json:"bytes" yaml:"bytes"`
	Selected  bool   `json:"selected" yaml:"selected"`
}

// knownTypes names common partition type GUIDs
var knownTypes = map[string]string{
	"C12A7328-F81F-11D2-BA4B-00A0C93EC93B": "EFI System",
	"0FC63DAF-8483-4772-8E79-3D69D8477DE4": "Linux filesystem",
	"0657FD6D-A4AB-43C4-84E5-0933C84B4F4F": "Linux swap",
	"EBD0A0A2-B9E5-4433-87C0-68B6B72699C7": "Microsoft basic data",
	"21686148-6449-6E6F-744E-656564454649": "BIOS boot",
	"7C3457EF-0000-11AA-AA11-00306543ECAC": "Apple APFS",
}

// TypeName returns a human-readable name for a partition type GUID
func TypeName(g gpt.GUID) string {
	if name, ok := knownTypes[g.String()]; ok {
		return name
	}
	return "unknown"
}
