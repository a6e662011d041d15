package fault

import (
	"sync"

	"github.com/deploymenttheory/go-sdboot/internal/console"
	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
)

// Preamble precedes the hexadecimal code on the console.
const Preamble = "Error 0x"

// State is the execution state of the boot stage.
type State int

const (
	// Running is the initial state, and the only one from which the loaded
	// payload is entered.
	Running State = iota
	// Halted is terminal: nothing leaves it short of a hardware reset.
	Halted
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Halted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// Reporter prints fatal diagnostics and moves the boot stage from Running to
// Halted.
type Reporter struct {
	console *console.Console
	halter  interfaces.Halter

	mu    sync.Mutex
	state State
	code  Code
}

// NewReporter creates a reporter in the Running state.
func NewReporter(c *console.Console, halter interfaces.Halter) *Reporter {
	return &Reporter{console: c, halter: halter, state: Running}
}

// Fail reports code and halts. With a production halter it never returns.
// CodeOK is ignored. Once halted, further failures are not printed and only
// park the caller again.
func (r *Reporter) Fail(code Code) {
	if code == CodeOK {
		return
	}

	r.mu.Lock()
	first := r.state == Running
	if first {
		r.state = Halted
		r.code = code
	}
	r.mu.Unlock()

	if first {
		// Nothing useful can be done about a broken serial line at this point.
		_ = r.console.Printf("%s%lx\r\n", console.Str(Preamble), console.Hex(code))
	}
	r.halter.Halt()
}

// State returns the current state.
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Code returns the code that halted the stage, CodeOK while running.
func (r *Reporter) Code() Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}
