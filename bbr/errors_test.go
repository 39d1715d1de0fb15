package bbr

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", &UsageError{Msg: "need 4 arguments"}, -int(syscall.EINVAL)},
		{"capacity", &CapacityError{Device: "/dev/sdz", Table: 2, Start: 4000, Count: 200, Sectors: 4096}, -int(syscall.EINVAL)},
		{"open", &OpenError{Path: "/dev/nope", Err: syscall.ENOENT}, -int(syscall.EINVAL)},
		{"wrapped usage", fmt.Errorf("run: %w", &UsageError{Msg: "bad"}), -int(syscall.EINVAL)},
		{"seek errno", &SeekError{Err: &os.PathError{Op: "seek", Err: syscall.ENXIO}}, -int(syscall.ENXIO)},
		{"write errno", &WriteError{Err: syscall.ENOSPC}, -int(syscall.ENOSPC)},
		{"write no errno", &WriteError{Err: errors.New("boom")}, -int(syscall.EIO)},
		{"other", errors.New("boom"), -int(syscall.EIO)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "bad number: invalid", (&UsageError{Msg: "bad number", Err: errors.New("invalid")}).Error())
	assert.Equal(t, "failed to open x: no such file or directory", (&OpenError{Path: "x", Err: syscall.ENOENT}).Error())
	assert.Equal(t, "table 2 (sectors 4000+200) runs past the end of /dev/sdz (4096 sectors)",
		(&CapacityError{Device: "/dev/sdz", Table: 2, Start: 4000, Count: 200, Sectors: 4096}).Error())
	assert.Contains(t, (&SeekError{Device: "d", Offset: 512, Whence: 1, Err: syscall.EIO}).Error(), "failed to seek d for table")
	assert.Contains(t, (&WriteError{Device: "d", Replica: 3, Err: syscall.EIO}).Error(), "replica 3 for d")
}
