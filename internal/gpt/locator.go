package gpt

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// Locator scans a partition entry array, one block at a time, for a
// partition type GUID.
type Locator struct {
	device interfaces.BlockDevice
	logger *zap.Logger
}

// NewLocator creates a locator reading through device. A nil logger disables logging.
func NewLocator(device interfaces.BlockDevice, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{device: device, logger: logger}
}

// FindPartition returns the range of the first entry, in ascending LBA then
// ascending in-block order, whose type GUID equals target. It returns
// InvalidRange when no entry matches.
//
// Each table block is read into scratch, which must hold at least one block
// and is overwritten. A failed read aborts the scan and is returned wrapped,
// so the device's copy error stays reachable with errors.As.
func (l *Locator) FindPartition(scratch []byte, tableStartLBA uint64, entryCount, entrySize uint32, target GUID) (PartitionRange, error) {
	if len(scratch) < types.BlockSize {
		return InvalidRange(), errors.Newf("scratch buffer holds %d bytes, need %d", len(scratch), types.BlockSize)
	}
	if !scannable(entryCount, entrySize) {
		l.logger.Debug("partition table has no scannable entries",
			zap.Uint32("entry_count", entryCount),
			zap.Uint32("entry_size", entrySize))
		return InvalidRange(), nil
	}

	block := scratch[:types.BlockSize]
	endLBA := tableStartLBA + tableBlocks(entryCount, entrySize) // exclusive
	perBlock := types.BlockSize / entrySize
	remaining := entryCount

	for lba := tableStartLBA; lba < endLBA; lba++ {
		if err := l.device.ReadBlocks(block, lba, 1); err != nil {
			return InvalidRange(), errors.Wrapf(err, "failed to read partition table block %d", lba)
		}

		slots := min(perBlock, remaining)
		remaining -= slots
		if slot, found, ok := matchSlot(block, slots, entrySize, target); ok {
			l.logger.Debug("matched partition entry",
				zap.Uint64("lba", lba),
				zap.Uint32("slot", slot),
				zap.Uint64("first_lba", found.FirstLBA),
				zap.Uint64("last_lba", found.LastLBA))
			return found, nil
		}
	}

	l.logger.Debug("no partition entry matched",
		zap.Stringer("type_guid", target),
		zap.Uint64("table_lba", tableStartLBA),
		zap.Uint64("table_end_lba", endLBA))
	return InvalidRange(), nil
}

// scannable reports whether a table of entryCount entries of entrySize bytes
// can be walked block by block.
func scannable(entryCount, entrySize uint32) bool {
	return entryCount > 0 && entrySize >= minEntrySize && entrySize <= types.BlockSize
}

// matchSlot checks the first slots entries of one table block, each entrySize
// bytes from the start of the block, and returns the first whose type GUID is
// target. Entries never straddle blocks: bytes past the last whole slot are
// ignored.
func matchSlot(block []byte, slots, entrySize uint32, target GUID) (uint32, PartitionRange, bool) {
	for i := uint32(0); i < slots; i++ {
		offset := i * entrySize
		if !bytes.Equal(block[offset:offset+types.GPTGUIDSize], target[:]) {
			continue
		}
		return i, PartitionRange{
			FirstLBA: binary.LittleEndian.Uint64(block[offset+types.GPTEntryFirstLBAOffset:]),
			LastLBA:  binary.LittleEndian.Uint64(block[offset+types.GPTEntryLastLBAOffset:]),
		}, true
	}
	return 0, InvalidRange(), false
}
