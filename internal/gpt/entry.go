package gpt

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// minEntrySize is the smallest entry that still holds the type GUID and the
// first/last LBA fields.
const minEntrySize = types.GPTEntryLastLBAOffset + 8

// Entry is a decoded GPT partition entry.
// Based on UEFI Specification 2.10, Section 5.3.3
type Entry struct {
	Index      int    `json:"index" yaml:"index"`
	TypeGUID   GUID   `json:"type_guid" yaml:"type_guid"`
	UniqueGUID GUID   `json:"unique_guid" yaml:"unique_guid"`
	FirstLBA   uint64 `json:"first_lba" yaml:"first_lba"`
	LastLBA    uint64 `json:"last_lba" yaml:"last_lba"`
	Attributes uint64 `json:"attributes" yaml:"attributes"`
	Name       string `json:"name" yaml:"name"`
}

// ParseEntry decodes one partition entry. Entries shorter than the standard
// 128 bytes are decoded as far as their size allows.
func ParseEntry(raw []byte) (Entry, error) {
	if len(raw) < minEntrySize {
		return Entry{}, errors.Newf("partition entry too small: %d bytes", len(raw))
	}

	var e Entry
	copy(e.TypeGUID[:], raw[types.GPTEntryTypeGUIDOffset:])
	copy(e.UniqueGUID[:], raw[types.GPTEntryUniqueGUIDOffset:])
	e.FirstLBA = binary.LittleEndian.Uint64(raw[types.GPTEntryFirstLBAOffset:])
	e.LastLBA = binary.LittleEndian.Uint64(raw[types.GPTEntryLastLBAOffset:])
	if len(raw) >= types.GPTEntryAttributesOffset+8 {
		e.Attributes = binary.LittleEndian.Uint64(raw[types.GPTEntryAttributesOffset:])
	}
	if len(raw) >= types.GPTEntryNameOffset+types.GPTEntryNameSize {
		e.Name = decodeName(raw[types.GPTEntryNameOffset : types.GPTEntryNameOffset+types.GPTEntryNameSize])
	}
	return e, nil
}

// IsEmpty reports whether the entry is unused.
func (e Entry) IsEmpty() bool {
	return e.TypeGUID.IsZero()
}

// Range returns the entry's block range.
func (e Entry) Range() PartitionRange {
	return PartitionRange{FirstLBA: e.FirstLBA, LastLBA: e.LastLBA}
}

func encodeEntry(e Entry, size uint32) []byte {
	raw := make([]byte, size)
	copy(raw[types.GPTEntryTypeGUIDOffset:], e.TypeGUID[:])
	copy(raw[types.GPTEntryUniqueGUIDOffset:], e.UniqueGUID[:])
	binary.LittleEndian.PutUint64(raw[types.GPTEntryFirstLBAOffset:], e.FirstLBA)
	binary.LittleEndian.PutUint64(raw[types.GPTEntryLastLBAOffset:], e.LastLBA)
	if size >= types.GPTEntryAttributesOffset+8 {
		binary.LittleEndian.PutUint64(raw[types.GPTEntryAttributesOffset:], e.Attributes)
	}
	if size >= types.GPTEntryNameOffset+types.GPTEntryNameSize {
		encodeName(raw[types.GPTEntryNameOffset:types.GPTEntryNameOffset+types.GPTEntryNameSize], e.Name)
	}
	return raw
}

// decodeName converts the UTF-16LE, NUL-terminated partition name.
func decodeName(raw []byte) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u := binary.LittleEndian.Uint16(raw[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func encodeName(dst []byte, name string) {
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		if 2*i+1 >= len(dst) {
			break
		}
		binary.LittleEndian.PutUint16(dst[2*i:], u)
	}
}
