package mkimage

import (
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/types"
	"github.com/deploymenttheory/go-sdboot/pkg/app"
)

// alignBlocks is the partition start alignment (1 MiB)
const alignBlocks = 2048

// Request describes a card image holding a payload partition
type Request struct {
	OutputPath    string
	PayloadPath   string
	PartitionType string
	Name          string
}

// Response reports what was written
type Response struct {
	OutputPath string             `json:"output_path" yaml:"output_path"`
	Blocks     uint64             `json:"blocks" yaml:"blocks"`
	Partition  gpt.PartitionRange `json:"partition" yaml:"partition"`
	Payload    int                `json:"payload_bytes" yaml:"payload_bytes"`
}

// Validate validates an image request
func (r *Request) Validate() error {
	if r.OutputPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "output path is required", nil)
	}
	if r.PayloadPath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "payload path is required", nil)
	}
	if _, err := gpt.ParseGUID(r.PartitionType); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid partition type GUID", err)
	}
	return nil
}

// Handle writes a GPT card image with the payload as its only partition,
// starting at the first 1 MiB boundary after the entry array.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(req.PayloadPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, "cannot read payload", err)
	}
	if len(payload) == 0 {
		return nil, app.NewError(app.ErrCodeInvalidInput, "payload is empty", nil)
	}

	partType, _ := gpt.ParseGUID(req.PartitionType)
	sectors := (uint64(len(payload)) + types.BlockSize - 1) / types.BlockSize
	first := uint64(alignBlocks)
	part := gpt.PartitionRange{FirstLBA: first, LastLBA: first + sectors - 1}
	blocks := part.LastLBA + 1 + gpt.BackupBlocks(gpt.DefaultNumEntries, types.GPTEntrySize)

	image, err := gpt.NewImageBuilder(blocks).
		WithDiskGUID(gpt.FromUUID(uuid.New())).
		AddPartition(gpt.PartitionSpec{
			Type:     partType,
			Unique:   gpt.FromUUID(uuid.New()),
			FirstLBA: part.FirstLBA,
			LastLBA:  part.LastLBA,
			Name:     req.Name,
			Data:     payload,
		}).
		Build()
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "cannot build image", err)
	}

	if err := os.WriteFile(req.OutputPath, image, 0o644); err != nil {
		return nil, app.NewError(app.ErrCodeOutput, "cannot write image", err)
	}

	ctx.Log("Wrote card image",
		zap.String("path", req.OutputPath),
		zap.Uint64("blocks", blocks),
		zap.Uint64("first_lba", part.FirstLBA),
		zap.Uint64("last_lba", part.LastLBA))

	return &Response{
		OutputPath: req.OutputPath,
		Blocks:     blocks,
		Partition:  part,
		Payload:    len(payload),
	}, nil
}
