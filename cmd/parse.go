package cmd

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
)

// parseUint accepts decimal, 0x-prefixed hex, 0o octal or 0b binary
func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}

// parseSize accepts plain byte counts or humanized sizes such as "30MiB"
func parseSize(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return v, nil
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return v, nil
}
