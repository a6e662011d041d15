// Package memory simulates the board's physical memory the payload is loaded into.
package memory

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Region is a contiguous range of physical memory starting at Base.
type Region struct {
	Base uint64
	data []byte
}

// NewRegion allocates size bytes of zeroed memory at base.
func NewRegion(base, size uint64) (*Region, error) {
	if size == 0 {
		return nil, errors.New("memory region size cannot be zero")
	}
	if base+size < base {
		return nil, errors.Newf("memory region 0x%x+0x%x wraps the address space", base, size)
	}
	return &Region{Base: base, data: make([]byte, size)}, nil
}

// Size returns the region size in bytes.
func (r *Region) Size() uint64 {
	return uint64(len(r.data))
}

// End returns the first address past the region.
func (r *Region) End() uint64 {
	return r.Base + r.Size()
}

// Contains reports whether [addr, addr+length) lies inside the region.
func (r *Region) Contains(addr, length uint64) bool {
	return addr >= r.Base && addr <= r.End() && length <= r.End()-addr
}

// Slice returns the memory at [addr, addr+length) for direct writes.
func (r *Region) Slice(addr, length uint64) ([]byte, error) {
	if !r.Contains(addr, length) {
		return nil, errors.Newf("address range 0x%x+0x%x outside region 0x%x-0x%x", addr, length, r.Base, r.End())
	}
	offset := addr - r.Base
	return r.data[offset : offset+length], nil
}

// Zero clears the region, as a power cycle would leave it undefined.
func (r *Region) Zero() {
	clear(r.data)
}

// WriteTo writes the whole region to w.
func (r *Region) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// Dump writes length bytes starting at addr to a file.
func (r *Region) Dump(path string, addr, length uint64) error {
	data, err := r.Slice(addr, length)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write memory dump to %s", path)
	}
	return nil
}
