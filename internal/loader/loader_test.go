package loader

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/sd"
	"github.com/deploymenttheory/go-sdboot/internal/types"
)

type readCall struct {
	lba   uint64
	count uint64
}

type recordingCard struct {
	*sd.ImageCard
	reads []readCall
}

func (r *recordingCard) ReadBlocks(dst []byte, startLBA uint64, count uint64) error {
	r.reads = append(r.reads, readCall{lba: startLBA, count: count})
	return r.ImageCard.ReadBlocks(dst, startLBA, count)
}

func newCard(t *testing.T, image []byte) *recordingCard {
	t.Helper()
	card := sd.NewMemoryCard(image)
	require.NoError(t, card.Initialize(types.DefaultClockKHz))
	return &recordingCard{ImageCard: card}
}

// pattern returns n bytes that differ from block to block.
func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/types.BlockSize)
	}
	return data
}

func espImage(t *testing.T, first, last uint64, data []byte) []byte {
	t.Helper()
	image, err := gpt.NewImageBuilder(4096).
		AddPartition(gpt.PartitionSpec{
			Type:     gpt.MustParseGUID("0FC63DAF-8483-4772-8E79-3D69D8477DE4"),
			FirstLBA: 2048,
			LastLBA:  2099,
		}).
		AddPartition(gpt.PartitionSpec{
			Type:     gpt.EFISystemPartition,
			FirstLBA: first,
			LastLBA:  last,
			Data:     data,
		}).
		Build()
	require.NoError(t, err)
	return image
}

func TestLoadCopiesPartitionInOneRead(t *testing.T) {
	payload := pattern(10 * types.BlockSize)
	card := newCard(t, espImage(t, 100, 109, payload))
	dst := make([]byte, types.DefaultPayloadSize)

	part, err := New(card, nil).Load(dst, gpt.EFISystemPartition)
	require.NoError(t, err)

	assert.Equal(t, gpt.PartitionRange{FirstLBA: 100, LastLBA: 109}, part)
	assert.Equal(t, payload, dst[:5120])

	// header, one table block, then the bulk copy
	require.Len(t, card.reads, 3)
	assert.Equal(t, readCall{lba: 1, count: 1}, card.reads[0])
	assert.Equal(t, readCall{lba: 2, count: 1}, card.reads[1])
	assert.Equal(t, readCall{lba: 100, count: 10}, card.reads[2])
}

func TestLoadLeavesBytesPastPartitionUntouched(t *testing.T) {
	card := newCard(t, espImage(t, 100, 100, pattern(types.BlockSize)))
	dst := bytes.Repeat([]byte{0xCC}, 4*types.BlockSize)

	_, err := New(card, nil).Load(dst, gpt.EFISystemPartition)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xCC}, 3*types.BlockSize), dst[types.BlockSize:])
}

func TestLoadIsIdempotent(t *testing.T) {
	payload := pattern(64 * types.BlockSize)
	image := espImage(t, 3000, 3063, payload)

	first := make([]byte, 64*types.BlockSize)
	second := make([]byte, 64*types.BlockSize)

	l := New(newCard(t, image), nil)
	r1, err := l.Load(first, gpt.EFISystemPartition)
	require.NoError(t, err)
	r2, err := l.Load(second, gpt.EFISystemPartition)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, first, second)
	assert.Equal(t, payload, first)
}

func TestLoadPartitionNotFound(t *testing.T) {
	image, err := gpt.NewImageBuilder(4096).
		AddPartition(gpt.PartitionSpec{
			Type:     gpt.MustParseGUID("0FC63DAF-8483-4772-8E79-3D69D8477DE4"),
			FirstLBA: 2048,
			LastLBA:  4000,
		}).
		Build()
	require.NoError(t, err)
	card := newCard(t, image)

	part, err := New(card, nil).Load(make([]byte, types.BlockSize), gpt.EFISystemPartition)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPartitionNotFound))
	assert.False(t, part.IsValid())

	// the header plus all 32 table blocks, no copy
	assert.Len(t, card.reads, 33)
}

func TestLoadInvertedRangeIsNotFound(t *testing.T) {
	card := newCard(t, espImage(t, 200, 100, nil))

	_, err := New(card, nil).Load(make([]byte, types.BlockSize), gpt.EFISystemPartition)
	assert.True(t, errors.Is(err, ErrPartitionNotFound))
}

func TestLoadPayloadTooLarge(t *testing.T) {
	card := newCard(t, espImage(t, 100, 109, nil))

	_, err := New(card, nil).Load(make([]byte, 9*types.BlockSize), gpt.EFISystemPartition)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge))
	assert.Len(t, card.reads, 2)
}

func TestLoadPropagatesDeviceErrors(t *testing.T) {
	image := espImage(t, 100, 109, nil)

	tests := []struct {
		name     string
		nth      int
		kind     sd.CopyErrorKind
		startLBA uint64
	}{
		{name: "header read", nth: 1, kind: sd.CopyCmd18Failed, startLBA: 1},
		{name: "table read", nth: 2, kind: sd.CopyCmd18CRCMismatch, startLBA: 2},
		{name: "payload copy", nth: 3, kind: sd.CopyCmd18CRCMismatch, startLBA: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := sd.NewFaultyCard(newCard(t, image), sd.FailRead(tt.kind, tt.nth))

			_, err := New(card, nil).Load(make([]byte, types.DefaultPayloadSize), gpt.EFISystemPartition)
			require.Error(t, err)

			var copyErr *sd.CopyError
			require.True(t, errors.As(err, &copyErr))
			assert.Equal(t, tt.kind, copyErr.Kind)
			assert.Equal(t, tt.startLBA, copyErr.StartLBA)
			assert.False(t, errors.Is(err, ErrPartitionNotFound))
		})
	}
}

func TestLoadScansWithHeaderValuesAfterScratchReuse(t *testing.T) {
	// The table block at LBA 40 holds entries whose bytes, read over the
	// header, would describe a different table location and geometry.
	image, err := gpt.NewImageBuilder(4096).
		WithTable(40, 8, 128).
		SetPartition(0, gpt.PartitionSpec{
			Type:     gpt.MustParseGUID("0FC63DAF-8483-4772-8E79-3D69D8477DE4"),
			FirstLBA: 3000,
			LastLBA:  3000,
			Name:     "decoy",
		}).
		SetPartition(5, gpt.PartitionSpec{
			Type:     gpt.EFISystemPartition,
			FirstLBA: 500,
			LastLBA:  503,
			Data:     pattern(4 * types.BlockSize),
		}).
		Build()
	require.NoError(t, err)
	card := newCard(t, image)

	dst := make([]byte, 8*types.BlockSize)
	part, err := New(card, nil).Load(dst, gpt.EFISystemPartition)
	require.NoError(t, err)

	assert.Equal(t, gpt.PartitionRange{FirstLBA: 500, LastLBA: 503}, part)
	assert.Equal(t, []readCall{{1, 1}, {40, 1}, {41, 1}, {500, 4}}, card.reads)
}
