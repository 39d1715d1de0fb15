//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// probeTarget on Windows: raw disk and volume handles (\\.\PhysicalDriveN,
// \\.\X:) are reported as block devices of unknown size; anything else is a
// regular file.
func probeTarget(f *os.File) (isBlock bool, size int64, err error) {
	ft, err := windows.GetFileType(windows.Handle(f.Fd()))
	if err != nil {
		return false, 0, err
	}
	if ft != windows.FILE_TYPE_DISK {
		return false, 0, os.ErrInvalid
	}
	fi, err := f.Stat()
	if err != nil {
		return false, 0, err
	}
	if fi.Mode().IsRegular() {
		return false, fi.Size(), nil
	}
	return true, 0, os.ErrInvalid
}
