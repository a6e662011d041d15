// Package console writes diagnostics to the serial line, one byte at a time.
package console

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-sdboot/internal/interfaces"
)

const hexDigits = "0123456789abcdef"

// Console is the text output of the boot stage.
type Console struct {
	tx interfaces.Transmitter
}

// New creates a console transmitting through tx.
func New(tx interfaces.Transmitter) *Console {
	return &Console{tx: tx}
}

// Puts writes s verbatim.
func (c *Console) Puts(s string) error {
	for i := 0; i < len(s); i++ {
		if err := c.tx.WriteByte(s[i]); err != nil {
			return errors.Wrap(err, "uart transmit failed")
		}
	}
	return nil
}

// PutHex writes v as 16 zero-padded lower-case hex digits.
func (c *Console) PutHex(v uint64) error {
	return c.putHex(v, 16)
}

func (c *Console) putHex(v uint64, digits int) error {
	var buf [16]byte
	for i := digits - 1; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return c.Puts(string(buf[:digits]))
}

// UART transmits bytes to an io.Writer, such as the host terminal standing in
// for the board's serial port.
type UART struct {
	w    io.Writer
	sent uint64
}

// NewUART creates a UART writing to w.
func NewUART(w io.Writer) *UART {
	return &UART{w: w}
}

// WriteByte sends one byte.
func (u *UART) WriteByte(c byte) error {
	if _, err := u.w.Write([]byte{c}); err != nil {
		return err
	}
	u.sent++
	return nil
}

// Sent returns the number of bytes transmitted.
func (u *UART) Sent() uint64 {
	return u.sent
}
