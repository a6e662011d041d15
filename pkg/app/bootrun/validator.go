package bootrun

import (
	"github.com/deploymenttheory/go-sdboot/internal/sd"
	"github.com/deploymenttheory/go-sdboot/pkg/app"
)

// Validate validates a boot request
func (r *Request) Validate() error {
	if err := r.Config.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid boot configuration", err)
	}

	if r.InjectInit != "" {
		if _, err := sd.ParseInitErrorKind(r.InjectInit); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid --inject-init value", err)
		}
	}

	if r.InjectCopy != "" {
		if _, err := sd.ParseCopyErrorKind(r.InjectCopy); err != nil {
			return app.NewError(app.ErrCodeInvalidInput, "invalid --inject-copy value", err)
		}
		if r.InjectCopyAt < 1 {
			return app.NewError(app.ErrCodeInvalidInput, "--inject-copy-at must be 1 or greater", nil)
		}
	}

	if r.Halter == nil {
		return app.NewError(app.ErrCodeInvalidInput, "a halter is required", nil)
	}

	return nil
}

// faultOptions converts the injection settings into card fault options.
// Validate must have succeeded.
func (r *Request) faultOptions() []sd.FaultOption {
	var opts []sd.FaultOption
	if r.InjectInit != "" {
		kind, _ := sd.ParseInitErrorKind(r.InjectInit)
		opts = append(opts, sd.FailInitialize(kind))
	}
	if r.InjectCopy != "" {
		kind, _ := sd.ParseCopyErrorKind(r.InjectCopy)
		opts = append(opts, sd.FailRead(kind, r.InjectCopyAt))
	}
	return opts
}
