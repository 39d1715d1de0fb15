//go:build linux

package main

import "golang.org/x/sys/unix"

func blockDeviceSize(fd int) (int64, error) {
	n, err := unix.IoctlGetInt(fd, unix.BLKGETSIZE64)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
