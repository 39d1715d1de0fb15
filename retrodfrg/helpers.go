package retrodfrg

import (
	"fmt"
	"time"
)

// ReplicaHook returns a callback for bbr.WithReplicaHook that marks table
// copy table (0-based) on t and redraws the screen every `every` replicas.
// It returns ErrInterrupted once the user has asked to stop.
func ReplicaHook(u *UI, t *Tracker, table int, every uint64) func(index, sector uint64) error {
	if every == 0 {
		every = 1
	}
	return func(index, sector uint64) error {
		t.Mark(table, index)
		if index%every == 0 || index+1 == t.perTable {
			u.SetStatus([]string{
				fmt.Sprintf("Sector: %d", sector),
				fmt.Sprintf("Written: %d / %d replicas", t.Written(), t.Total()),
			})
			u.Draw()
		}
		if u.IsStopped() {
			return ErrInterrupted
		}
		return nil
	}
}

// WaitWithStop holds the final screen for d unless the user stops first.
func WaitWithStop(u *UI, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-u.stop:
		return ErrInterrupted
	case <-timer.C:
		return nil
	}
}
