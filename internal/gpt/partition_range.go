package gpt

import "github.com/deploymenttheory/go-sdboot/internal/types"

// PartitionRange is an inclusive range of logical blocks.
type PartitionRange struct {
	FirstLBA uint64 `json:"first_lba" yaml:"first_lba"`
	LastLBA  uint64 `json:"last_lba" yaml:"last_lba"`
}

// InvalidRange returns the sentinel meaning "no partition matched".
func InvalidRange() PartitionRange {
	return PartitionRange{FirstLBA: 1, LastLBA: 0}
}

// IsValid reports whether the range addresses at least one block.
func (r PartitionRange) IsValid() bool {
	return r.FirstLBA <= r.LastLBA
}

// SectorCount returns the number of blocks in the range, zero if invalid.
func (r PartitionRange) SectorCount() uint64 {
	if !r.IsValid() {
		return 0
	}
	return r.LastLBA - r.FirstLBA + 1
}

// Bytes returns the size of the range in bytes.
func (r PartitionRange) Bytes() uint64 {
	return r.SectorCount() * types.BlockSize
}
