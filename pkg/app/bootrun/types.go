package bootrun

import (
	"io"
	"time"

	"github.com/deploymenttheory/go-sdboot/internal/boot"
	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
)

// Request represents a boot attempt against a card image
type Request struct {
	Config boot.Config

	// Fault injection
	InjectInit   string
	InjectCopy   string
	InjectCopyAt int

	// Post-load actions
	DumpPath string
	Verify   bool

	// Console receives the board's serial output
	Console io.Writer

	// Halter parks the stage on failure
	Halter interfaces.Halter
}

// Response represents the outcome of a boot attempt
type Response struct {
	ImagePath     string             `json:"image_path" yaml:"image_path"`
	PartitionGUID string             `json:"partition_type" yaml:"partition_type"`
	Partition     gpt.PartitionRange `json:"partition" yaml:"partition"`
	EntryAddress  uint64             `json:"entry_address" yaml:"entry_address"`
	Bytes         uint64             `json:"bytes" yaml:"bytes"`
	Code          string             `json:"code" yaml:"code"`
	State         string             `json:"state" yaml:"state"`
	ReadCommands  uint64             `json:"read_commands" yaml:"read_commands"`
	BlocksRead    uint64             `json:"blocks_read" yaml:"blocks_read"`
	SHA256        string             `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Verified      bool               `json:"verified" yaml:"verified"`
	DumpPath      string             `json:"dump_path,omitempty" yaml:"dump_path,omitempty"`
	Duration      time.Duration      `json:"duration" yaml:"duration"`
}

// Succeeded reports whether the payload was loaded
func (r *Response) Succeeded() bool {
	return r.State == "RUNNING"
}
