package types

// LBA is a zero-based logical block address on the card.
type LBA uint64

// Block geometry and GPT on-disk layout constants
const (
	// Reference: UEFI Specification Part 1, Chapter 5

	BlockSize    = 512 // Logical block size of SD cards and GPT (bytes)
	GPTHeaderLBA = 1   // LBA 1: Primary GPT header location

	GPTSignature = "EFI PART"

	// GPT header field offsets, relative to the start of the header block
	GPTHeaderSignatureOffset    = 0
	GPTHeaderRevisionOffset     = 8
	GPTHeaderSizeOffset         = 12
	GPTHeaderCRC32Offset        = 16
	GPTHeaderMyLBAOffset        = 24
	GPTHeaderAlternateLBAOffset = 32
	GPTHeaderFirstUsableOffset  = 40
	GPTHeaderLastUsableOffset   = 48
	GPTHeaderDiskGUIDOffset     = 56
	GPTHeaderEntriesLBAOffset   = 72 // uint64: first LBA of the partition entry array
	GPTHeaderNumEntriesOffset   = 80 // uint32: number of entries in the array
	GPTHeaderEntrySizeOffset    = 84 // uint32: size of one entry in bytes
	GPTHeaderEntriesCRCOffset   = 88

	// GPT partition entry field offsets
	GPTEntryTypeGUIDOffset   = 0
	GPTEntryUniqueGUIDOffset = 16
	GPTEntryFirstLBAOffset   = 32
	GPTEntryLastLBAOffset    = 40
	GPTEntryAttributesOffset = 48
	GPTEntryNameOffset       = 56
	GPTEntryNameSize         = 72 // UTF-16LE, 36 code units

	GPTEntrySize = 128 // Standard size of each GPT partition entry (bytes)
	GPTGUIDSize  = 16
)

// EFISystemPartitionGUID is the textual type GUID of an EFI System Partition,
// the partition the boot stage loads by default.
const EFISystemPartitionGUID string = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"

// Board defaults
const (
	DefaultDestinationAddress = 0x80000000 // DRAM base of the board
	DefaultPayloadSize        = 30 << 20   // 30 MiB payload budget
	DefaultClockKHz           = 50000      // Peripheral input clock
)
