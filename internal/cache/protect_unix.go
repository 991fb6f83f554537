//go:build unix

package cache

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// unixCodeRegion backs an AddressSpace's code buffer with an anonymous
// mmap region whose protection bits are flipped between RW and RX via
// mprotect, giving the real W^X transition spec section 4.5 describes.
type unixCodeRegion struct {
	data []byte
}

func newCodeRegion(size int) (codeRegion, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("cache: mmap code region: %w", err)
	}
	return &unixCodeRegion{data: data}, nil
}

func (r *unixCodeRegion) Bytes() []byte { return r.data }

func (r *unixCodeRegion) MakeWritable() error {
	if err := unix.Mprotect(r.data, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("cache: mprotect RW: %w", err)
	}
	return nil
}

func (r *unixCodeRegion) MakeExecutable() error {
	if err := unix.Mprotect(r.data, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("cache: mprotect RX: %w", err)
	}
	return nil
}

func (r *unixCodeRegion) Close() error {
	return unix.Munmap(r.data)
}
