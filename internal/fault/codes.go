// Package fault maps boot failures to stable diagnostic codes, reports them on
// the console and parks the processor.
package fault

import "fmt"

// Code is a diagnostic code shown on the console. Values are stable across
// releases; technicians identify failures by them.
type Code uint32

const (
	CodeOK                Code = 0x0
	CodePartitionNotFound Code = 0x3
	CodeInitCmd0          Code = 0x5
	CodeInitCmd8          Code = 0x6
	CodeInitAcmd41        Code = 0x7
	CodeInitCmd58         Code = 0x8
	CodeInitCmd16         Code = 0x9
	CodeCopyCmd18         Code = 0xa
	CodeCopyCmd18CRC      Code = 0xb
	CodeUnexpected        Code = 0xc
)

// Subsystem names the part of the boot sequence a code belongs to.
type Subsystem string

const (
	SubsystemNone      Subsystem = "none"
	SubsystemPartition Subsystem = "partition"
	SubsystemInit      Subsystem = "init"
	SubsystemCopy      Subsystem = "copy"
	SubsystemOther     Subsystem = "unexpected"
)

// CodeInfo describes one entry of the code table.
type CodeInfo struct {
	Code        Code      `json:"code" yaml:"code"`
	Hex         string    `json:"hex" yaml:"hex"`
	Subsystem   Subsystem `json:"subsystem" yaml:"subsystem"`
	Description string    `json:"description" yaml:"description"`
}

// codeTable is kept in ascending code order.
var codeTable = []CodeInfo{
	{CodePartitionNotFound, "", SubsystemPartition, "GPT partition with boot type GUID not found"},
	{CodeInitCmd0, "", SubsystemInit, "SD card did not answer CMD0 (GO_IDLE_STATE)"},
	{CodeInitCmd8, "", SubsystemInit, "SD card rejected CMD8 (SEND_IF_COND)"},
	{CodeInitAcmd41, "", SubsystemInit, "SD card did not leave idle on ACMD41 (SD_SEND_OP_COND)"},
	{CodeInitCmd58, "", SubsystemInit, "SD card rejected CMD58 (READ_OCR)"},
	{CodeInitCmd16, "", SubsystemInit, "SD card rejected CMD16 (SET_BLOCKLEN)"},
	{CodeCopyCmd18, "", SubsystemCopy, "CMD18 (READ_MULTIPLE_BLOCK) failed"},
	{CodeCopyCmd18CRC, "", SubsystemCopy, "CMD18 data block CRC mismatch"},
	{CodeUnexpected, "", SubsystemOther, "unexpected or unrecognized error"},
}

// Codes returns the diagnostic code table in ascending code order.
func Codes() []CodeInfo {
	out := make([]CodeInfo, 0, len(codeTable))
	for _, info := range codeTable {
		info.Hex = info.Code.Hex()
		out = append(out, info)
	}
	return out
}

// Lookup returns the table entry for c.
func Lookup(c Code) (CodeInfo, bool) {
	for _, info := range codeTable {
		if info.Code == c {
			info.Hex = c.Hex()
			return info, true
		}
	}
	return CodeInfo{}, false
}

// Hex returns the code as printed on the console.
func (c Code) Hex() string {
	return fmt.Sprintf("0x%016x", uint64(c))
}

// Subsystem returns the subsystem the code belongs to.
func (c Code) Subsystem() Subsystem {
	if c == CodeOK {
		return SubsystemNone
	}
	if info, ok := Lookup(c); ok {
		return info.Subsystem
	}
	return SubsystemOther
}

func (c Code) String() string {
	if c == CodeOK {
		return "ok"
	}
	if info, ok := Lookup(c); ok {
		return info.Description
	}
	return fmt.Sprintf("unknown code 0x%x", uint32(c))
}
