//go:build linux || darwin || freebsd || netbsd || openbsd

package physmem

import (
	"errors"

	"golang.org/x/sys/unix"
)

// allocate maps size bytes of anonymous, private, zero-filled memory.
func allocate(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return data, unmap, nil
}

func unmap(data []byte) error {
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Already unmapped.
		return nil
	}
	return err
}
