package gpt

import (
	"hash/crc32"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// maxTableBytes bounds the entry array ReadTable is willing to buffer.
const maxTableBytes = 1 << 20

// Table is a fully decoded partition entry array, used by operator tooling.
// The boot path never materializes it and scans with a Locator instead.
type Table struct {
	Header       Header  `json:"header" yaml:"header"`
	HeaderCRCOK  bool    `json:"header_crc_ok" yaml:"header_crc_ok"`
	EntriesCRCOK bool    `json:"entries_crc_ok" yaml:"entries_crc_ok"`
	Entries      []Entry `json:"entries" yaml:"entries"`

	// raw is the entry array as read, whole blocks
	raw []byte
}

// ReadTable reads the primary header and every used entry of the array.
func ReadTable(device interfaces.BlockDevice) (*Table, error) {
	block := make([]byte, types.BlockSize)
	if err := device.ReadBlocks(block, types.GPTHeaderLBA, 1); err != nil {
		return nil, errors.Wrap(err, "failed to read GPT header")
	}

	header, err := ParseHeader(block)
	if err != nil {
		return nil, err
	}
	if !header.HasSignature() {
		return nil, errors.Newf("no GPT signature at LBA %d", types.GPTHeaderLBA)
	}
	if header.EntrySize < minEntrySize {
		return nil, errors.Newf("unsupported partition entry size %d", header.EntrySize)
	}

	table := &Table{
		Header:      header,
		HeaderCRCOK: VerifyHeaderChecksum(block),
	}

	tableBytes := uint64(header.NumEntries) * uint64(header.EntrySize)
	if tableBytes > maxTableBytes {
		return nil, errors.Newf("partition entry array of %d bytes exceeds %d byte limit", tableBytes, maxTableBytes)
	}

	raw := make([]byte, header.TableBlocks()*types.BlockSize)
	if err := device.ReadBlocks(raw, header.EntriesLBA, header.TableBlocks()); err != nil {
		return nil, errors.Wrap(err, "failed to read partition entry array")
	}
	table.EntriesCRCOK = crc32.ChecksumIEEE(raw[:tableBytes]) == header.EntriesCRC32
	table.raw = raw

	for i := uint32(0); i < header.NumEntries; i++ {
		offset := uint64(i) * uint64(header.EntrySize)
		entry, err := ParseEntry(raw[offset : offset+uint64(header.EntrySize)])
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		if entry.IsEmpty() {
			continue
		}
		entry.Index = int(i)
		table.Entries = append(table.Entries, entry)
	}

	return table, nil
}

// Locate walks the entry array the way Locator.FindPartition does, one block
// at a time with entries starting at each block boundary, and returns the
// range the boot stage would load for typeGUID. The entry is the decoded table
// entry at the same position, or nil when the match does not line up with one.
// A not-found or inverted result yields InvalidRange and a nil entry.
func (t *Table) Locate(typeGUID GUID) (PartitionRange, *Entry) {
	entryCount, entrySize := t.Header.NumEntries, t.Header.EntrySize
	if !scannable(entryCount, entrySize) {
		return InvalidRange(), nil
	}

	perBlock := types.BlockSize / entrySize
	remaining := entryCount
	for start := 0; start+types.BlockSize <= len(t.raw) && remaining > 0; start += types.BlockSize {
		slots := min(perBlock, remaining)
		remaining -= slots

		slot, found, ok := matchSlot(t.raw[start:start+types.BlockSize], slots, entrySize, typeGUID)
		if !ok {
			continue
		}
		if !found.IsValid() {
			return InvalidRange(), nil
		}
		return found, t.entryAt(uint64(start) + uint64(slot)*uint64(entrySize))
	}
	return InvalidRange(), nil
}

// Select returns the table entry FindPartition would pick for typeGUID, or nil
// when the boot stage would not find a loadable partition.
func (t *Table) Select(typeGUID GUID) *Entry {
	_, entry := t.Locate(typeGUID)
	return entry
}

// entryAt returns the decoded entry starting at byte offset of the array.
func (t *Table) entryAt(offset uint64) *Entry {
	size := uint64(t.Header.EntrySize)
	if offset%size != 0 {
		return nil
	}
	index := int(offset / size)
	for i := range t.Entries {
		if t.Entries[i].Index == index {
			return &t.Entries[i]
		}
	}
	return nil
}
