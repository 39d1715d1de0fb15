//go:build darwin

package main

import "golang.org/x/sys/unix"

const (
	dkiocGetBlockSize  = 0x40046418 // _IOR('d', 24, uint32)
	dkiocGetBlockCount = 0x40086419 // _IOR('d', 25, uint64)
)

func blockDeviceSize(fd int) (int64, error) {
	bs, err := unix.IoctlGetUint32(fd, dkiocGetBlockSize)
	if err != nil {
		return 0, err
	}
	count, err := unix.IoctlGetInt(fd, dkiocGetBlockCount)
	if err != nil {
		return 0, err
	}
	return int64(bs) * int64(count), nil
}
