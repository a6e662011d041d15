package console

import (
	"github.com/cockroachdb/errors"
)

// Arg is a typed formatter argument. The set is closed: Str, Char and Hex.
type Arg interface {
	directive() byte
}

// Str is the argument of a %s directive.
type Str string

// Char is the argument of a %c directive.
type Char byte

// Hex is the argument of a %x directive. The width modifier decides how many
// low-order bits are printed.
type Hex uint64

func (Str) directive() byte  { return 's' }
func (Char) directive() byte { return 'c' }
func (Hex) directive() byte  { return 'x' }

// ErrBadFormat is returned for unknown directives and mismatched arguments.
var ErrBadFormat = errors.New("bad format directive")

// hexWidth maps a length modifier to a fixed number of hex digits.
func hexWidth(modifier string) (int, bool) {
	switch modifier {
	case "hh":
		return 2, true
	case "h":
		return 4, true
	case "":
		return 8, true
	case "l", "ll":
		return 16, true
	default:
		return 0, false
	}
}

// Printf writes format, expanding %s, %c, %x (with hh, h, l or ll width
// modifiers) and %%. Hex values are zero-padded to their full width.
// Output up to the first bad directive is transmitted.
func (c *Console) Printf(format string, args ...Arg) error {
	next := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			if err := c.tx.WriteByte(format[i]); err != nil {
				return errors.Wrap(err, "uart transmit failed")
			}
			continue
		}

		i++
		start := i
		for i < len(format) && (format[i] == 'h' || format[i] == 'l') {
			i++
		}
		if i >= len(format) {
			return errors.Wrapf(ErrBadFormat, "dangling %% at offset %d", start-1)
		}
		modifier, verb := format[start:i], format[i]

		if verb == '%' && modifier == "" {
			if err := c.tx.WriteByte('%'); err != nil {
				return errors.Wrap(err, "uart transmit failed")
			}
			continue
		}

		if next >= len(args) {
			return errors.Wrapf(ErrBadFormat, "missing argument for %%%s%c", modifier, verb)
		}
		arg := args[next]
		next++
		if arg == nil || arg.directive() != verb {
			return errors.Wrapf(ErrBadFormat, "argument %d does not match %%%s%c", next, modifier, verb)
		}

		var err error
		switch v := arg.(type) {
		case Str:
			if modifier != "" {
				return errors.Wrapf(ErrBadFormat, "%%%ss takes no modifier", modifier)
			}
			err = c.Puts(string(v))
		case Char:
			if modifier != "" {
				return errors.Wrapf(ErrBadFormat, "%%%sc takes no modifier", modifier)
			}
			err = c.tx.WriteByte(byte(v))
		case Hex:
			digits, ok := hexWidth(modifier)
			if !ok {
				return errors.Wrapf(ErrBadFormat, "unknown width modifier %q", modifier)
			}
			err = c.putHex(uint64(v), digits)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
