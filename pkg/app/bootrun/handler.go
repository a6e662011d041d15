package bootrun

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-sdboot/internal/boot"
	"github.com/deploymenttheory/go-sdboot/internal/console"
	"github.com/deploymenttheory/go-sdboot/internal/fault"
	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
	"github.com/deploymenttheory/go-sdboot/internal/memory"
	"github.com/deploymenttheory/go-sdboot/internal/sd"
	"github.com/deploymenttheory/go-sdboot/pkg/app"
)

// Handle runs a boot attempt against the requested card image. A failed boot
// is reported on the console and parks in the request's halter; if the halter
// returns, Handle returns the response together with a BOOT_FAILED error.
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	card, err := sd.OpenImage(req.Config.ImagePath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeImageAccess, "cannot open card image", err)
	}
	defer card.Close()

	ctx.Log("Booting from card image",
		zap.String("image", req.Config.ImagePath),
		zap.Uint64("blocks", card.Blocks()))
	ctx.Progress("Initializing card...", 10)

	var device interfaces.BlockDevice = card
	if opts := req.faultOptions(); len(opts) > 0 {
		device = sd.NewFaultyCard(card, opts...)
	}

	consoleOut := req.Console
	if consoleOut == nil {
		consoleOut = io.Discard
	}

	// 2. Run the stage
	mem, result, stage, err := attempt(ctx, req, device, consoleOut)
	response := &Response{
		ImagePath:     req.Config.ImagePath,
		PartitionGUID: req.Config.PartitionType,
		Code:          fault.CodeOK.Hex(),
	}
	if stage != nil {
		response.State = stage.State().String()
	}
	stats := card.Stats()
	response.ReadCommands = stats.ReadCommands
	response.BlocksRead = stats.BlocksRead

	if err != nil {
		response.Duration = time.Since(startTime)
		var failure *boot.Failure
		if errors.As(err, &failure) {
			response.Code = failure.Code.Hex()
			return response, app.NewError(app.ErrCodeBootFailed,
				fmt.Sprintf("boot failed with code %s (%s)", failure.Code.Hex(), failure.Code), failure.Err)
		}
		return nil, app.NewError(app.ErrCodeInvalidInput, "cannot prepare boot attempt", err)
	}

	ctx.Progress("Payload loaded", 80)

	payload, err := loadedPayload(mem, result)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(payload)
	response.Partition = result.Partition
	response.EntryAddress = result.EntryAddress
	response.Bytes = result.Bytes
	response.SHA256 = hex.EncodeToString(digest[:])

	// 3. Optionally repeat the load and compare
	if req.Verify {
		again, secondResult, _, err := attempt(ctx, req, device, io.Discard)
		if err != nil {
			return nil, app.NewError(app.ErrCodeBootFailed, "verification attempt failed", err)
		}
		second, err := loadedPayload(again, secondResult)
		if err != nil {
			return nil, err
		}
		response.Verified = bytes.Equal(payload, second)
		if !response.Verified {
			ctx.Error("second load differs from the first", zap.String("image", req.Config.ImagePath))
		}
	}

	// 4. Optionally dump the payload
	if req.DumpPath != "" {
		if err := mem.Dump(req.DumpPath, result.EntryAddress, result.Bytes); err != nil {
			return nil, app.NewError(app.ErrCodeOutput, "cannot write payload dump", err)
		}
		response.DumpPath = req.DumpPath
	}

	ctx.Progress("Complete", 100)
	response.Duration = time.Since(startTime)
	ctx.Log("Boot completed",
		zap.Uint64("bytes", response.Bytes),
		zap.Duration("duration", response.Duration))

	return response, nil
}

// attempt runs one stage with fresh memory, as after a power cycle.
func attempt(ctx *app.Context, req *Request, device interfaces.BlockDevice, consoleOut io.Writer) (*memory.Region, *boot.Result, *boot.Stage, error) {
	mem, err := memory.NewRegion(req.Config.DestinationAddress, req.Config.DestinationSize)
	if err != nil {
		return nil, nil, nil, err
	}

	stage, err := boot.NewStage(req.Config, device, mem, console.NewUART(consoleOut), req.Halter, ctx.Logger)
	if err != nil {
		return nil, nil, nil, err
	}

	result, err := stage.Run()
	return mem, result, stage, err
}

// loadedPayload returns the memory a successful stage copied the payload into.
func loadedPayload(mem *memory.Region, result *boot.Result) ([]byte, error) {
	payload, err := mem.Slice(result.EntryAddress, result.Bytes)
	if err != nil {
		return nil, app.NewError(app.ErrCodeOutput, "loaded payload is outside memory", err)
	}
	return payload, nil
}
