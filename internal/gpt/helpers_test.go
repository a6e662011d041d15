package gpt

import (
	"github.com/deploymenttheory/go-sdboot/internal/sd"
)

type readCall struct {
	lba   uint64
	count uint64
}

// recordingCard wraps a card and records every read command
type recordingCard struct {
	*sd.ImageCard
	reads []readCall
}

func (r *recordingCard) ReadBlocks(dst []byte, startLBA uint64, count uint64) error {
	r.reads = append(r.reads, readCall{lba: startLBA, count: count})
	return r.ImageCard.ReadBlocks(dst, startLBA, count)
}

func newRecordingCard(image []byte) *recordingCard {
	card := sd.NewMemoryCard(image)
	if err := card.Initialize(25000); err != nil {
		panic(err)
	}
	return &recordingCard{ImageCard: card}
}

var (
	linuxFS   = MustParseGUID("0FC63DAF-8483-4772-8E79-3D69D8477DE4")
	linuxSwap = MustParseGUID("0657FD6D-A4AB-43C4-84E5-0933C84B4F4F")
)
