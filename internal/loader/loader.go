// Package loader copies the boot payload partition from the card into memory.
package loader

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
	"github.com/deploymenttheory/go-sdboot/internal/types"
)

var (
	// ErrPartitionNotFound is returned when no entry carries the requested type GUID.
	ErrPartitionNotFound = errors.New("no partition with the requested type GUID")

	// ErrPayloadTooLarge is returned when the partition does not fit the destination.
	ErrPayloadTooLarge = errors.New("partition does not fit the destination region")
)

// Loader reads the GPT of a card and copies one partition verbatim into memory.
type Loader struct {
	device  interfaces.BlockDevice
	locator *gpt.Locator
	logger  *zap.Logger
}

// New creates a loader for an initialized device. A nil logger disables logging.
func New(device interfaces.BlockDevice, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		device:  device,
		locator: gpt.NewLocator(device, logger),
		logger:  logger,
	}
}

// Load locates the first partition whose type GUID equals target and copies
// all of its sectors into dst with a single bulk read. On error the contents
// of dst are undefined.
func (l *Loader) Load(dst []byte, target gpt.GUID) (gpt.PartitionRange, error) {
	// The scratch block holds the header first and then each table block.
	var scratch [types.BlockSize]byte

	if err := l.device.ReadBlocks(scratch[:], types.GPTHeaderLBA, 1); err != nil {
		return gpt.InvalidRange(), errors.Wrap(err, "failed to read GPT header")
	}

	header, err := gpt.ParseHeader(scratch[:])
	if err != nil {
		return gpt.InvalidRange(), err
	}
	if !header.HasSignature() {
		l.logger.Warn("GPT header signature missing, scanning anyway", zap.Uint64("lba", types.GPTHeaderLBA))
	}

	// Copied out before the locator overwrites scratch.
	tableLBA := header.EntriesLBA
	entryCount := header.NumEntries
	entrySize := header.EntrySize

	l.logger.Debug("read GPT header",
		zap.Uint64("entries_lba", tableLBA),
		zap.Uint32("num_entries", entryCount),
		zap.Uint32("entry_size", entrySize))

	part, err := l.locator.FindPartition(scratch[:], tableLBA, entryCount, entrySize, target)
	if err != nil {
		return gpt.InvalidRange(), err
	}
	if !part.IsValid() {
		return gpt.InvalidRange(), errors.Wrapf(ErrPartitionNotFound, "type %s", target)
	}

	capacity := uint64(len(dst)) / types.BlockSize
	if part.LastLBA-part.FirstLBA >= capacity {
		return gpt.InvalidRange(), errors.Wrapf(ErrPayloadTooLarge,
			"LBA %d-%d into %d byte region", part.FirstLBA, part.LastLBA, len(dst))
	}

	sectors := part.SectorCount()
	l.logger.Debug("copying partition",
		zap.Uint64("first_lba", part.FirstLBA),
		zap.Uint64("last_lba", part.LastLBA),
		zap.Uint64("sector_count", sectors))

	if err := l.device.ReadBlocks(dst[:sectors*types.BlockSize], part.FirstLBA, sectors); err != nil {
		return gpt.InvalidRange(), errors.Wrap(err, "failed to copy partition")
	}

	return part, nil
}
