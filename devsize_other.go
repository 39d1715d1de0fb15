//go:build unix && !linux && !darwin

package main

import "errors"

func blockDeviceSize(int) (int64, error) {
	return 0, errors.New("block device size probing not supported on this platform")
}
