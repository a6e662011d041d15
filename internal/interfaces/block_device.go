// File: internal/interfaces/block_device.go
package interfaces

// BlockDevice is the synchronous block device facade the boot stage drives.
// Both calls block until the underlying bus transaction completes; there is no
// timeout and no cancellation.
type BlockDevice interface {
	// Initialize performs the card power-up and identification handshake
	// using the given peripheral input clock.
	Initialize(clockKHz uint32) error

	// ReadBlocks reads count consecutive 512-byte blocks starting at startLBA
	// into dst, which must hold at least count*512 bytes.
	ReadBlocks(dst []byte, startLBA uint64, count uint64) error
}

// BlockDeviceStats contains transfer statistics for a block device
type BlockDeviceStats struct {
	// Number of read commands issued
	ReadCommands uint64

	// Total number of blocks transferred
	BlocksRead uint64

	// Total bytes transferred
	BytesRead uint64
}

// StatsReporter is implemented by devices that track transfer statistics
type StatsReporter interface {
	Stats() BlockDeviceStats
}
