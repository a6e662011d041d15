package gpt

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// DefaultNumEntries is the size of the entry array NewImageBuilder lays out.
const DefaultNumEntries = 128

const (
	defaultEntriesLBA = 2
	gptRevision1      = 0x00010000
	mbrSignature      = 0xAA55
	mbrTypeProtective = 0xEE
)

// PartitionSpec describes one partition written by ImageBuilder.
type PartitionSpec struct {
	Type     GUID
	Unique   GUID
	FirstLBA uint64
	LastLBA  uint64
	Name     string
	// Data is copied to the start of the partition; it must fit in the range.
	Data []byte
}

// ImageBuilder assembles raw card images with a protective MBR, a primary GPT
// header and entry array, and the backup entry array and header in the last
// blocks of the image.
type ImageBuilder struct {
	blocks     uint64
	diskGUID   GUID
	entriesLBA uint64
	numEntries uint32
	entrySize  uint32
	slots      map[int]PartitionSpec
	next       int
}

// NewImageBuilder creates a builder for an image of the given size in blocks,
// with a standard 128 x 128-byte entry array at LBA 2.
func NewImageBuilder(blocks uint64) *ImageBuilder {
	return &ImageBuilder{
		blocks:     blocks,
		entriesLBA: defaultEntriesLBA,
		numEntries: DefaultNumEntries,
		entrySize:  types.GPTEntrySize,
		slots:      make(map[int]PartitionSpec),
	}
}

// WithTable overrides the location and geometry of the entry array.
func (b *ImageBuilder) WithTable(entriesLBA uint64, numEntries, entrySize uint32) *ImageBuilder {
	b.entriesLBA = entriesLBA
	b.numEntries = numEntries
	b.entrySize = entrySize
	return b
}

// WithDiskGUID sets the disk GUID recorded in the header.
func (b *ImageBuilder) WithDiskGUID(g GUID) *ImageBuilder {
	b.diskGUID = g
	return b
}

// AddPartition places p in the next free entry slot.
func (b *ImageBuilder) AddPartition(p PartitionSpec) *ImageBuilder {
	for {
		if _, used := b.slots[b.next]; !used {
			break
		}
		b.next++
	}
	b.slots[b.next] = p
	b.next++
	return b
}

// SetPartition places p in entry slot index, replacing what was there.
func (b *ImageBuilder) SetPartition(index int, p PartitionSpec) *ImageBuilder {
	b.slots[index] = p
	return b
}

// FirstUsableLBA returns the first block after the entry array.
func (b *ImageBuilder) FirstUsableLBA() uint64 {
	return b.entriesLBA + tableBlocks(b.numEntries, b.entrySize)
}

// LastUsableLBA returns the last block before the backup entry array.
func (b *ImageBuilder) LastUsableLBA() uint64 {
	return b.blocks - 1 - BackupBlocks(b.numEntries, b.entrySize)
}

// BackupBlocks returns how many blocks at the end of an image hold the backup
// entry array and backup header.
func BackupBlocks(numEntries, entrySize uint32) uint64 {
	return tableBlocks(numEntries, entrySize) + 1
}

// Build renders the image.
func (b *ImageBuilder) Build() ([]byte, error) {
	if b.blocks <= types.GPTHeaderLBA {
		return nil, errors.Newf("image of %d blocks cannot hold a GPT header", b.blocks)
	}
	if b.entriesLBA <= types.GPTHeaderLBA {
		return nil, errors.Newf("entry array at LBA %d overlaps the GPT header", b.entriesLBA)
	}
	if b.entrySize < minEntrySize || b.entrySize > types.BlockSize {
		return nil, errors.Newf("unsupported entry size %d", b.entrySize)
	}
	if b.FirstUsableLBA()+BackupBlocks(b.numEntries, b.entrySize) > b.blocks {
		return nil, errors.Newf("primary and backup entry arrays do not fit an image of %d blocks", b.blocks)
	}
	firstUsable, lastUsable := b.FirstUsableLBA(), b.LastUsableLBA()

	image := make([]byte, b.blocks*types.BlockSize)
	b.writeProtectiveMBR(image)

	array := make([]byte, uint64(b.numEntries)*uint64(b.entrySize))
	for index, p := range b.slots {
		if index < 0 || index >= int(b.numEntries) {
			return nil, errors.Newf("entry slot %d outside array of %d entries", index, b.numEntries)
		}
		if p.FirstLBA <= p.LastLBA && (p.FirstLBA < firstUsable || p.LastLBA > lastUsable) {
			return nil, errors.Newf("partition %d at LBA %d-%d outside usable blocks %d-%d",
				index, p.FirstLBA, p.LastLBA, firstUsable, lastUsable)
		}
		if len(p.Data) > 0 {
			r := PartitionRange{FirstLBA: p.FirstLBA, LastLBA: p.LastLBA}
			if uint64(len(p.Data)) > r.Bytes() {
				return nil, errors.Newf("partition %d data of %d bytes exceeds its %d bytes", index, len(p.Data), r.Bytes())
			}
			copy(image[p.FirstLBA*types.BlockSize:], p.Data)
		}

		entry := Entry{
			TypeGUID:   p.Type,
			UniqueGUID: p.Unique,
			FirstLBA:   p.FirstLBA,
			LastLBA:    p.LastLBA,
			Name:       p.Name,
		}
		copy(array[uint64(index)*uint64(b.entrySize):], encodeEntry(entry, b.entrySize))
	}
	copy(image[b.entriesLBA*types.BlockSize:], array)

	backupLBA := b.blocks - 1
	backupEntriesLBA := lastUsable + 1
	copy(image[backupEntriesLBA*types.BlockSize:], array)

	primary := Header{
		Revision:       gptRevision1,
		HeaderSize:     gptHeaderSize,
		MyLBA:          types.GPTHeaderLBA,
		AlternateLBA:   backupLBA,
		FirstUsableLBA: firstUsable,
		LastUsableLBA:  lastUsable,
		DiskGUID:       b.diskGUID,
		EntriesLBA:     b.entriesLBA,
		NumEntries:     b.numEntries,
		EntrySize:      b.entrySize,
		EntriesCRC32:   crc32.ChecksumIEEE(array),
	}
	copy(primary.Signature[:], types.GPTSignature)
	copy(image[types.GPTHeaderLBA*types.BlockSize:], encodeHeader(primary))

	backup := primary
	backup.MyLBA, backup.AlternateLBA = backupLBA, types.GPTHeaderLBA
	backup.EntriesLBA = backupEntriesLBA
	copy(image[backupLBA*types.BlockSize:], encodeHeader(backup))

	return image, nil
}

func (b *ImageBuilder) writeProtectiveMBR(image []byte) {
	const partitionRecord = 446
	sectors := b.blocks - 1
	if sectors > 0xFFFFFFFF {
		sectors = 0xFFFFFFFF
	}
	image[partitionRecord+4] = mbrTypeProtective
	binary.LittleEndian.PutUint32(image[partitionRecord+8:], 1)
	binary.LittleEndian.PutUint32(image[partitionRecord+12:], uint32(sectors))
	binary.LittleEndian.PutUint16(image[510:], mbrSignature)
}
