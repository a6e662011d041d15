package gpt

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// gptHeaderSize is the size of the defined part of the header (up to the
// partition entry array CRC32); the rest of the block is reserved.
const gptHeaderSize = 92

// Header holds the fields of a primary GPT header. It is a value type: parsing
// copies every field out of the block, so the block can be reused afterwards.
// Based on UEFI Specification 2.10, Section 5.3.2
type Header struct {
	Signature      [8]byte `json:"-" yaml:"-"`
	Revision       uint32  `json:"revision" yaml:"revision"`
	HeaderSize     uint32  `json:"header_size" yaml:"header_size"`
	HeaderCRC32    uint32  `json:"header_crc32" yaml:"header_crc32"`
	MyLBA          uint64  `json:"my_lba" yaml:"my_lba"`
	AlternateLBA   uint64  `json:"alternate_lba" yaml:"alternate_lba"`
	FirstUsableLBA uint64  `json:"first_usable_lba" yaml:"first_usable_lba"`
	LastUsableLBA  uint64  `json:"last_usable_lba" yaml:"last_usable_lba"`
	DiskGUID       GUID    `json:"disk_guid" yaml:"disk_guid"`
	EntriesLBA     uint64  `json:"entries_lba" yaml:"entries_lba"`
	NumEntries     uint32  `json:"num_entries" yaml:"num_entries"`
	EntrySize      uint32  `json:"entry_size" yaml:"entry_size"`
	EntriesCRC32   uint32  `json:"entries_crc32" yaml:"entries_crc32"`
}

// ParseHeader decodes the header stored at the start of block.
func ParseHeader(block []byte) (Header, error) {
	if len(block) < gptHeaderSize {
		return Header{}, errors.Newf("header block too small: %d bytes", len(block))
	}

	var h Header
	copy(h.Signature[:], block[types.GPTHeaderSignatureOffset:types.GPTHeaderSignatureOffset+8])
	h.Revision = binary.LittleEndian.Uint32(block[types.GPTHeaderRevisionOffset:])
	h.HeaderSize = binary.LittleEndian.Uint32(block[types.GPTHeaderSizeOffset:])
	h.HeaderCRC32 = binary.LittleEndian.Uint32(block[types.GPTHeaderCRC32Offset:])
	h.MyLBA = binary.LittleEndian.Uint64(block[types.GPTHeaderMyLBAOffset:])
	h.AlternateLBA = binary.LittleEndian.Uint64(block[types.GPTHeaderAlternateLBAOffset:])
	h.FirstUsableLBA = binary.LittleEndian.Uint64(block[types.GPTHeaderFirstUsableOffset:])
	h.LastUsableLBA = binary.LittleEndian.Uint64(block[types.GPTHeaderLastUsableOffset:])
	copy(h.DiskGUID[:], block[types.GPTHeaderDiskGUIDOffset:types.GPTHeaderDiskGUIDOffset+types.GPTGUIDSize])
	h.EntriesLBA = binary.LittleEndian.Uint64(block[types.GPTHeaderEntriesLBAOffset:])
	h.NumEntries = binary.LittleEndian.Uint32(block[types.GPTHeaderNumEntriesOffset:])
	h.EntrySize = binary.LittleEndian.Uint32(block[types.GPTHeaderEntrySizeOffset:])
	h.EntriesCRC32 = binary.LittleEndian.Uint32(block[types.GPTHeaderEntriesCRCOffset:])

	return h, nil
}

// HasSignature reports whether the header carries the "EFI PART" signature.
func (h Header) HasSignature() bool {
	return string(h.Signature[:]) == types.GPTSignature
}

// TableBlocks returns the number of blocks spanned by the partition entry array.
func (h Header) TableBlocks() uint64 {
	return tableBlocks(h.NumEntries, h.EntrySize)
}

// VerifyHeaderChecksum recomputes the header CRC32 over the raw header block.
func VerifyHeaderChecksum(block []byte) bool {
	h, err := ParseHeader(block)
	if err != nil || h.HeaderSize < gptHeaderSize || int(h.HeaderSize) > len(block) {
		return false
	}
	return headerChecksum(block[:h.HeaderSize]) == h.HeaderCRC32
}

func headerChecksum(raw []byte) uint32 {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	binary.LittleEndian.PutUint32(buf[types.GPTHeaderCRC32Offset:], 0)
	return crc32.ChecksumIEEE(buf)
}

func encodeHeader(h Header) []byte {
	block := make([]byte, types.BlockSize)
	copy(block[types.GPTHeaderSignatureOffset:], h.Signature[:])
	binary.LittleEndian.PutUint32(block[types.GPTHeaderRevisionOffset:], h.Revision)
	binary.LittleEndian.PutUint32(block[types.GPTHeaderSizeOffset:], h.HeaderSize)
	binary.LittleEndian.PutUint64(block[types.GPTHeaderMyLBAOffset:], h.MyLBA)
	binary.LittleEndian.PutUint64(block[types.GPTHeaderAlternateLBAOffset:], h.AlternateLBA)
	binary.LittleEndian.PutUint64(block[types.GPTHeaderFirstUsableOffset:], h.FirstUsableLBA)
	binary.LittleEndian.PutUint64(block[types.GPTHeaderLastUsableOffset:], h.LastUsableLBA)
	copy(block[types.GPTHeaderDiskGUIDOffset:], h.DiskGUID[:])
	binary.LittleEndian.PutUint64(block[types.GPTHeaderEntriesLBAOffset:], h.EntriesLBA)
	binary.LittleEndian.PutUint32(block[types.GPTHeaderNumEntriesOffset:], h.NumEntries)
	binary.LittleEndian.PutUint32(block[types.GPTHeaderEntrySizeOffset:], h.EntrySize)
	binary.LittleEndian.PutUint32(block[types.GPTHeaderEntriesCRCOffset:], h.EntriesCRC32)
	binary.LittleEndian.PutUint32(block[types.GPTHeaderCRC32Offset:], headerChecksum(block[:h.HeaderSize]))
	return block
}

func tableBlocks(numEntries, entrySize uint32) uint64 {
	tableBytes := uint64(numEntries) * uint64(entrySize)
	return (tableBytes + types.BlockSize - 1) / types.BlockSize
}
