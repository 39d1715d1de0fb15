package bbr

import (
	"errors"
	"fmt"
	"syscall"
)

// UsageError reports invalid arguments. Nothing has been written.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *UsageError) Unwrap() error { return e.Err }

// OpenError reports a target that cannot be opened for writing.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string { return fmt.Sprintf("failed to open %s: %v", e.Path, e.Err) }

func (e *OpenError) Unwrap() error { return e.Err }

// CapacityError reports a table copy that does not fit on the target.
// Nothing has been written.
type CapacityError struct {
	Device  string
	Table   int
	Start   uint64
	Count   uint64
	Sectors uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("table %d (sectors %d+%d) runs past the end of %s (%d sectors)",
		e.Table, e.Start, e.Count, e.Device, e.Sectors)
}

// SeekError reports a failed positioning of the write cursor.
type SeekError struct {
	Device string
	Offset int64 // byte distance of the failing seek
	Whence int
	Err    error
}

func (e *SeekError) Error() string {
	if e.Whence == 0 {
		return fmt.Sprintf("failed to seek %s to beginning: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("failed to seek %s for table (+%d bytes): %v", e.Device, e.Offset, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

// WriteError reports a failed or short replica write, or a failed sync.
type WriteError struct {
	Device  string
	Replica uint64
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write bbr table replica %d for %s: %v", e.Replica, e.Device, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Errno returns the system error code wrapped in err, or 0 if there is none.
func Errno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

// ExitCode maps err to the negative errno style status of the tool.
// Usage, capacity and open failures are -EINVAL. Anything else carries the negated
// underlying errno, or -EIO when none is available.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var (
		ue *UsageError
		ce *CapacityError
		oe *OpenError
	)
	if errors.As(err, &ue) || errors.As(err, &ce) || errors.As(err, &oe) {
		return -int(syscall.EINVAL)
	}
	if errno := Errno(err); errno != 0 {
		return -int(errno)
	}
	return -int(syscall.EIO)
}
