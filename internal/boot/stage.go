// Package boot runs the first-stage boot sequence: bring up the card, load the
// payload partition into memory, or report a diagnostic code and halt.
package boot

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-sdboot/internal/console"
	"github.com/deploymenttheory/go-sdboot/internal/fault"
	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
	"github.com/deploymenttheory/go-sdboot/internal/loader"
	"github.com/deploymenttheory/go-sdboot/internal/memory"
)

// Banner is printed on the console when the stage starts.
const Banner = "Loading from SD card...\r\n"

// Result describes a successful load. Control passes to EntryAddress.
type Result struct {
	Partition    gpt.PartitionRange
	EntryAddress uint64
	Bytes        uint64
}

// ErrStageUsed is returned by Run on a stage that already ran.
var ErrStageUsed = errors.New("boot stage already ran; a new attempt needs a new stage")

// Failure is returned by Run when the halter lets control come back.
type Failure struct {
	Code fault.Code
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("boot failed with code %s: %v", f.Code.Hex(), f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Stage is one boot attempt. It is not reusable; a new attempt is a new Stage,
// just as a retry on the board is a power cycle.
type Stage struct {
	config   Config
	target   gpt.GUID
	device   interfaces.BlockDevice
	memory   *memory.Region
	console  *console.Console
	reporter *fault.Reporter
	logger   *zap.Logger
	ran      bool
}

// NewStage validates the configuration and prepares a boot attempt. The
// destination range must lie inside mem.
func NewStage(config Config, device interfaces.BlockDevice, mem *memory.Region, tx interfaces.Transmitter, halter interfaces.Halter, logger *zap.Logger) (*Stage, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid boot configuration")
	}
	target, err := config.TargetGUID()
	if err != nil {
		return nil, err
	}
	if !mem.Contains(config.DestinationAddress, config.DestinationSize) {
		return nil, errors.Newf("destination 0x%x+0x%x is not backed by memory 0x%x-0x%x",
			config.DestinationAddress, config.DestinationSize, mem.Base, mem.End())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	con := console.New(tx)
	return &Stage{
		config:   config,
		target:   target,
		device:   device,
		memory:   mem,
		console:  con,
		reporter: fault.NewReporter(con, halter),
		logger:   logger,
	}, nil
}

// Run executes the sequence. On success the payload is in memory and the
// result names where to jump. On failure the code is reported and the stage
// halts; Run only returns a *Failure if the halter returns. Run works once:
// later calls return ErrStageUsed without touching the console or the card.
func (s *Stage) Run() (*Result, error) {
	if s.ran {
		return nil, ErrStageUsed
	}
	s.ran = true

	if err := s.console.Puts(Banner); err != nil {
		s.logger.Warn("console unavailable", zap.Error(err))
	}

	if err := s.device.Initialize(s.config.ClockKHz); err != nil {
		return nil, s.fail(errors.Wrap(err, "failed to initialize SD card"))
	}
	s.logger.Debug("SD card initialized", zap.Uint32("clock_khz", s.config.ClockKHz))

	dst, err := s.memory.Slice(s.config.DestinationAddress, s.config.DestinationSize)
	if err != nil {
		return nil, s.fail(err)
	}

	part, err := loader.New(s.device, s.logger).Load(dst, s.target)
	if err != nil {
		return nil, s.fail(err)
	}

	s.logger.Info("payload loaded",
		zap.Uint64("first_lba", part.FirstLBA),
		zap.Uint64("last_lba", part.LastLBA),
		zap.Uint64("bytes", part.Bytes()),
		zap.String("entry", fmt.Sprintf("0x%x", s.config.DestinationAddress)))

	return &Result{
		Partition:    part,
		EntryAddress: s.config.DestinationAddress,
		Bytes:        part.Bytes(),
	}, nil
}

// State returns the state of the attempt.
func (s *Stage) State() fault.State {
	return s.reporter.State()
}

func (s *Stage) fail(err error) error {
	code := fault.Translate(err)
	s.logger.Error("boot failed", zap.Error(err), zap.String("code", code.Hex()))
	s.reporter.Fail(code)
	return &Failure{Code: code, Err: err}
}
