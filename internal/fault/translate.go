package fault

import (
	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-sdboot/internal/loader"
	"github.com/deploymenttheory/go-sdboot/internal/sd"
)

// Translate maps an error from the boot sequence to its diagnostic code.
// It never fails: nil maps to CodeOK and anything it does not recognize,
// including driver error kinds added later, maps to CodeUnexpected.
func Translate(err error) Code {
	if err == nil {
		return CodeOK
	}

	var initErr *sd.InitError
	if errors.As(err, &initErr) {
		return translateInit(initErr.Kind)
	}

	var copyErr *sd.CopyError
	if errors.As(err, &copyErr) {
		return translateCopy(copyErr.Kind)
	}

	if errors.Is(err, loader.ErrPartitionNotFound) {
		return CodePartitionNotFound
	}

	return CodeUnexpected
}

func translateInit(kind sd.InitErrorKind) Code {
	switch kind {
	case sd.InitCmd0Failed:
		return CodeInitCmd0
	case sd.InitCmd8Failed:
		return CodeInitCmd8
	case sd.InitAcmd41Failed:
		return CodeInitAcmd41
	case sd.InitCmd58Failed:
		return CodeInitCmd58
	case sd.InitCmd16Failed:
		return CodeInitCmd16
	default:
		return CodeUnexpected
	}
}

func translateCopy(kind sd.CopyErrorKind) Code {
	switch kind {
	case sd.CopyCmd18Failed:
		return CodeCopyCmd18
	case sd.CopyCmd18CRCMismatch:
		return CodeCopyCmd18CRC
	default:
		return CodeUnexpected
	}
}
