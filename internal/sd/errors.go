package sd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// InitErrorKind identifies which step of the card handshake failed.
type InitErrorKind int

const (
	InitOther InitErrorKind = iota
	InitCmd0Failed
	InitCmd8Failed
	InitAcmd41Failed
	InitCmd58Failed
	InitCmd16Failed
)

func (k InitErrorKind) String() string {
	switch k {
	case InitOther:
		return "other"
	case InitCmd0Failed:
		return "CMD0 (GO_IDLE_STATE)"
	case InitCmd8Failed:
		return "CMD8 (SEND_IF_COND)"
	case InitAcmd41Failed:
		return "ACMD41 (SD_SEND_OP_COND)"
	case InitCmd58Failed:
		return "CMD58 (READ_OCR)"
	case InitCmd16Failed:
		return "CMD16 (SET_BLOCKLEN)"
	default:
		return fmt.Sprintf("unknown init step %d", int(k))
	}
}

// CopyErrorKind identifies why a multi-block read failed.
type CopyErrorKind int

const (
	CopyOther CopyErrorKind = iota
	CopyCmd18Failed
	CopyCmd18CRCMismatch
)

func (k CopyErrorKind) String() string {
	switch k {
	case CopyOther:
		return "other"
	case CopyCmd18Failed:
		return "CMD18 (READ_MULTIPLE_BLOCK)"
	case CopyCmd18CRCMismatch:
		return "CMD18 CRC mismatch"
	default:
		return fmt.Sprintf("unknown copy failure %d", int(k))
	}
}

// InitError is returned by Initialize when the card handshake fails.
type InitError struct {
	Kind   InitErrorKind
	Reason string
}

func (e *InitError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("sd init failed at %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("sd init failed at %s", e.Kind)
}

// CopyError is returned by ReadBlocks when a transfer fails.
type CopyError struct {
	Kind     CopyErrorKind
	StartLBA uint64
	Count    uint64
	Reason   string
}

func (e *CopyError) Error() string {
	msg := fmt.Sprintf("sd copy of %d block(s) at LBA %d failed: %s", e.Count, e.StartLBA, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsInitError returns true if err is, or wraps, an InitError.
func IsInitError(err error) bool {
	var initErr *InitError
	return errors.As(err, &initErr)
}

// IsCopyError returns true if err is, or wraps, a CopyError.
func IsCopyError(err error) bool {
	var copyErr *CopyError
	return errors.As(err, &copyErr)
}

var initErrorNames = map[string]InitErrorKind{
	"other":  InitOther,
	"cmd0":   InitCmd0Failed,
	"cmd8":   InitCmd8Failed,
	"acmd41": InitAcmd41Failed,
	"cmd58":  InitCmd58Failed,
	"cmd16":  InitCmd16Failed,
}

var copyErrorNames = map[string]CopyErrorKind{
	"other": CopyOther,
	"cmd18": CopyCmd18Failed,
	"crc":   CopyCmd18CRCMismatch,
}

// ParseInitErrorKind accepts a step name (cmd0, cmd8, acmd41, cmd58, cmd16,
// other) or a raw numeric kind, which may be one this package does not define.
func ParseInitErrorKind(name string) (InitErrorKind, error) {
	if kind, ok := initErrorNames[strings.ToLower(name)]; ok {
		return kind, nil
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, errors.Newf("unknown init failure %q", name)
	}
	return InitErrorKind(n), nil
}

// ParseCopyErrorKind accepts cmd18, crc, other or a raw numeric kind.
func ParseCopyErrorKind(name string) (CopyErrorKind, error) {
	if kind, ok := copyErrorNames[strings.ToLower(name)]; ok {
		return kind, nil
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, errors.Newf("unknown copy failure %q", name)
	}
	return CopyErrorKind(n), nil
}
