package sd

import (
	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
)

// FaultyCard wraps a block device and injects handshake or transfer failures.
// It is used to rehearse the diagnostic codes an operator sees on the console.
type FaultyCard struct {
	device      interfaces.BlockDevice
	initErr     error
	copyErr     error
	copyFaultAt int
	reads       int
}

// Compile-time check
var _ interfaces.BlockDevice = (*FaultyCard)(nil)

// FaultOption configures a FaultyCard.
type FaultOption func(*FaultyCard)

// FailInitialize makes Initialize fail with the given handshake step.
func FailInitialize(kind InitErrorKind) FaultOption {
	return func(f *FaultyCard) {
		f.initErr = &InitError{Kind: kind, Reason: "injected"}
	}
}

// FailInitializeWith makes Initialize return err verbatim.
func FailInitializeWith(err error) FaultOption {
	return func(f *FaultyCard) {
		f.initErr = err
	}
}

// FailRead makes the nth read command (1-based) fail with the given kind.
// Reads before it are passed through to the wrapped device.
func FailRead(kind CopyErrorKind, nth int) FaultOption {
	return func(f *FaultyCard) {
		f.copyErr = &CopyError{Kind: kind, Reason: "injected"}
		f.copyFaultAt = nth
	}
}

// FailReadWith makes the nth read command (1-based) return err verbatim.
func FailReadWith(err error, nth int) FaultOption {
	return func(f *FaultyCard) {
		f.copyErr = err
		f.copyFaultAt = nth
	}
}

// NewFaultyCard wraps device with the given faults.
func NewFaultyCard(device interfaces.BlockDevice, opts ...FaultOption) *FaultyCard {
	f := &FaultyCard{device: device}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Initialize fails with the injected handshake error, if any.
func (f *FaultyCard) Initialize(clockKHz uint32) error {
	if f.initErr != nil {
		return f.initErr
	}
	return f.device.Initialize(clockKHz)
}

// ReadBlocks fails on the configured read command.
func (f *FaultyCard) ReadBlocks(dst []byte, startLBA uint64, count uint64) error {
	f.reads++
	if f.copyErr != nil && f.reads == f.copyFaultAt {
		if copyErr, ok := f.copyErr.(*CopyError); ok {
			injected := *copyErr
			injected.StartLBA = startLBA
			injected.Count = count
			return &injected
		}
		return f.copyErr
	}
	return f.device.ReadBlocks(dst, startLBA, count)
}

// Reads returns the number of read commands seen so far.
func (f *FaultyCard) Reads() int {
	return f.reads
}
