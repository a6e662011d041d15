package inspect

import (
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/sd"
	"github.com/deploymenttheory/go-sdboot/internal/types"
	"github.com/deploymenttheory/go-sdboot/pkg/app"
)

// Handle decodes the partition table of a card image
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	card, err := sd.OpenImage(req.ImagePath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, "cannot open card image", err)
	}
	defer card.Close()

	if err := card.Initialize(types.DefaultClockKHz); err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, "card image is not usable", err)
	}

	table, err := gpt.ReadTable(card)
	if err != nil {
		return nil, app.NewError(app.ErrCodeNoGPT, "cannot read partition table", err)
	}
	ctx.Log("Read partition table",
		zap.String("image", req.ImagePath),
		zap.Int("entries", len(table.Entries)))

	response := &Response{
		ImagePath:  req.ImagePath,
		ImageBytes: card.Size(),
		Header:     table.Header,
		HeaderOK:   table.HeaderCRCOK,
		EntriesOK:  table.EntriesCRCOK,
		Partitions: make([]Partition, 0, len(table.Entries)),
	}

	var selected *gpt.Entry
	if req.PartitionType != "" {
		target, _ := gpt.ParseGUID(req.PartitionType)
		bootRange, entry := table.Locate(target)
		selected = entry
		if bootRange.IsValid() {
			response.BootRange = &bootRange
		}
	}

	for _, entry := range table.Entries {
		response.Partitions = append(response.Partitions, Partition{
			Entry:    entry,
			TypeName: TypeName(entry.TypeGUID),
			Bytes:    entry.Range().Bytes(),
			Selected: selected != nil && selected.Index == entry.Index,
		})
	}

	return response, nil
}
