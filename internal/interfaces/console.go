// File: internal/interfaces/console.go
package interfaces

// Transmitter sends single bytes over a serial line.
type Transmitter interface {
	WriteByte(c byte) error
}

// Halter parks the processor. Halt never returns in production implementations.
type Halter interface {
	Halt()
}
