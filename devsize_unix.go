//go:build unix

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// probeTarget reports whether f is a block device and, if so, its size in
// bytes. Regular files report their current size.
func probeTarget(f *os.File) (isBlock bool, size int64, err error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return false, 0, fmt.Errorf("fstat %s: %w", f.Name(), err)
	}
	if uint32(st.Mode)&unix.S_IFMT != unix.S_IFBLK {
		return false, st.Size, nil
	}
	size, err = blockDeviceSize(int(f.Fd()))
	if err != nil {
		return true, 0, fmt.Errorf("cannot determine size of %s: %w", f.Name(), err)
	}
	return true, size, nil
}
