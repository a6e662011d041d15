package inspect

import (
	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/pkg/app"
)

// Validate validates an inspection request
func (r *Request) Validate() error {
	if r.ImagePath == "" {
		return app.NewError(app.ErrCodeInvalidInput, "image path is required", nil)
	}

	if r.PartitionType != "" {
		if _, err := gpt.ParseGUID(r.PartitionType); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid partition type GUID", err)
		}
	}

	return nil
}
