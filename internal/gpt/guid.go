package gpt

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// GUID is a GPT GUID in on-disk byte order. The first three fields are stored
// little-endian, so the bytes differ from the textual (RFC 4122) order.
type GUID [types.GPTGUIDSize]byte

// EFISystemPartition is the type GUID of an EFI System Partition.
var EFISystemPartition = MustParseGUID(types.EFISystemPartitionGUID)

// ParseGUID parses a textual GUID such as "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"
// and returns it in on-disk byte order.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, errors.Wrapf(err, "invalid GUID %q", s)
	}
	return FromUUID(u), nil
}

// MustParseGUID is like ParseGUID but panics if s cannot be parsed.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// FromUUID converts a UUID to a GPT GUID.
func FromUUID(u uuid.UUID) GUID {
	return GUID{
		u[3], u[2], u[1], u[0],
		u[5], u[4],
		u[7], u[6],
		u[8], u[9], u[10], u[11], u[12], u[13], u[14], u[15],
	}
}

// UUID converts the GPT GUID back to textual byte order.
func (g GUID) UUID() uuid.UUID {
	return uuid.UUID{
		g[3], g[2], g[1], g[0],
		g[5], g[4],
		g[7], g[6],
		g[8], g[9], g[10], g[11], g[12], g[13], g[14], g[15],
	}
}

// String returns the canonical upper-case textual form.
func (g GUID) String() string {
	return strings.ToUpper(g.UUID().String())
}

// IsZero reports whether the GUID is all zeroes, the marker of an unused entry.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// MarshalText implements encoding.TextMarshaler.
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := ParseGUID(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
