package sd

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// ImageCard is an SD card simulated by a raw disk image. Block n of the card
// is the 512 bytes at offset n*512 of the image.
type ImageCard struct {
	image       io.ReaderAt
	closer      io.Closer
	size        int64
	path        string
	initialized bool
	clockKHz    uint32
	stats       interfaces.BlockDeviceStats
	mu          sync.Mutex
}

// Compile-time check to ensure ImageCard implements the block device facade
var _ interfaces.BlockDevice = (*ImageCard)(nil)
var _ interfaces.StatsReporter = (*ImageCard)(nil)

// OpenImage opens a raw disk image file as a card
func OpenImage(path string) (*ImageCard, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open card image")
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "failed to stat card image")
	}

	card := NewImageCard(file, stat.Size())
	card.closer = file
	card.path = path
	return card, nil
}

// NewImageCard creates a card backed by any random-access reader of the given size
func NewImageCard(image io.ReaderAt, size int64) *ImageCard {
	return &ImageCard{
		image: image,
		size:  size,
	}
}

// NewMemoryCard creates a card backed by an in-memory image
func NewMemoryCard(image []byte) *ImageCard {
	return NewImageCard(bytes.NewReader(image), int64(len(image)))
}

// Initialize performs the simulated power-up handshake. An empty image behaves
// like a missing card: nothing answers CMD0.
func (c *ImageCard) Initialize(clockKHz uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.size < types.BlockSize {
		return &InitError{Kind: InitCmd0Failed, Reason: "no card responded to GO_IDLE_STATE"}
	}
	if clockKHz == 0 {
		return &InitError{Kind: InitOther, Reason: "peripheral input clock is zero"}
	}

	c.clockKHz = clockKHz
	c.initialized = true
	return nil
}

// ReadBlocks copies count blocks starting at startLBA into dst with a single
// multi-block read.
func (c *ImageCard) ReadBlocks(dst []byte, startLBA uint64, count uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fail := func(kind CopyErrorKind, reason string) error {
		return &CopyError{Kind: kind, StartLBA: startLBA, Count: count, Reason: reason}
	}

	if !c.initialized {
		return fail(CopyOther, "card not initialized")
	}
	if count == 0 {
		return nil
	}
	if count > math.MaxInt64/types.BlockSize {
		return fail(CopyOther, "block count overflows transfer size")
	}

	need := count * types.BlockSize
	if uint64(len(dst)) < need {
		return fail(CopyOther, fmt.Sprintf("destination holds %d bytes, transfer needs %d", len(dst), need))
	}

	end := startLBA + count
	if end < startLBA || end > c.Blocks() {
		return fail(CopyCmd18Failed, fmt.Sprintf("address out of range (card has %d blocks)", c.Blocks()))
	}

	n, err := c.image.ReadAt(dst[:need], int64(startLBA)*types.BlockSize)
	if err != nil && !(errors.Is(err, io.EOF) && uint64(n) == need) {
		return fail(CopyCmd18Failed, err.Error())
	}

	c.stats.ReadCommands++
	c.stats.BlocksRead += count
	c.stats.BytesRead += need
	return nil
}

// Blocks returns the number of whole blocks on the card
func (c *ImageCard) Blocks() uint64 {
	return uint64(c.size) / types.BlockSize
}

// Size returns the size of the card image in bytes
func (c *ImageCard) Size() int64 {
	return c.size
}

// Path returns the image path, empty for cards not opened from a file
func (c *ImageCard) Path() string {
	return c.path
}

// ClockKHz returns the clock the card was initialized with
func (c *ImageCard) ClockKHz() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clockKHz
}

// Stats returns current transfer statistics
func (c *ImageCard) Stats() interfaces.BlockDeviceStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close releases the backing file, if any
func (c *ImageCard) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
