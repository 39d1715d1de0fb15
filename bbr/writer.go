package bbr

import (
	"fmt"
	"io"
	"math"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxSeekSectors is the largest sector distance one relative seek may
// cover: the maximum signed seek offset divided by the sector size.
const DefaultMaxSeekSectors uint64 = math.MaxInt64 / SectorSize

// SyncPolicy controls when the writer flushes the sink to stable storage.
type SyncPolicy int

const (
	// SyncTable flushes once after all replicas of a table are written.
	SyncTable SyncPolicy = iota
	// SyncReplica flushes after every replica sector.
	SyncReplica
	// SyncNone leaves flushing to the caller.
	SyncNone
)

func (p SyncPolicy) String() string {
	switch p {
	case SyncTable:
		return "table"
	case SyncReplica:
		return "replica"
	case SyncNone:
		return "none"
	default:
		return fmt.Sprintf("SyncPolicy(%d)", int(p))
	}
}

// ParseSyncPolicy accepts "table", "replica" or "none".
func ParseSyncPolicy(s string) (SyncPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return SyncTable, nil
	case "replica", "sector":
		return SyncReplica, nil
	case "none":
		return SyncNone, nil
	}
	return SyncTable, fmt.Errorf("unknown sync policy %q (want table|replica|none)", s)
}

// Writer places table replicas on a seekable sink.
type Writer struct {
	device    string
	maxSeek   uint64
	sync      SyncPolicy
	onSeek    func(offset int64)
	onReplica func(index, sector uint64) error
	log       *zap.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithDevice names the sink in errors and log lines.
func WithDevice(name string) Option {
	return func(w *Writer) { w.device = name }
}

// WithMaxSeekSectors bounds a single relative seek. Zero, or anything above
// DefaultMaxSeekSectors, selects DefaultMaxSeekSectors.
func WithMaxSeekSectors(n uint64) Option {
	return func(w *Writer) {
		if n == 0 || n > DefaultMaxSeekSectors {
			n = DefaultMaxSeekSectors
		}
		w.maxSeek = n
	}
}

// WithSync sets the flush policy.
func WithSync(p SyncPolicy) Option {
	return func(w *Writer) { w.sync = p }
}

// WithSeekHook registers fn to be called with the byte distance of every
// successful seek.
func WithSeekHook(fn func(offset int64)) Option {
	return func(w *Writer) { w.onSeek = fn }
}

// WithReplicaHook registers fn to be called after every replica lands.
// A non-nil return aborts WriteReplicas with that error.
func WithReplicaHook(fn func(index, sector uint64) error) Option {
	return func(w *Writer) { w.onReplica = fn }
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *zap.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWriter returns a Writer using DefaultMaxSeekSectors and SyncTable
// unless overridden.
func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		maxSeek: DefaultMaxSeekSectors,
		sync:    SyncTable,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// WriteReplicas writes count copies of t, one sector each, starting at
// sector start. The cursor is always re-positioned from the beginning of the
// sink, so calls are independent of each other.
func (w *Writer) WriteReplicas(sink io.WriteSeeker, t *Table, start, count uint64) error {
	sec, err := t.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := sink.Seek(0, io.SeekStart); err != nil {
		return &SeekError{Device: w.device, Whence: io.SeekStart, Err: err}
	}
	if w.onSeek != nil {
		w.onSeek(0)
	}
	if err := w.seekSectors(sink, start); err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		n, err := sink.Write(sec)
		if err == nil && n != len(sec) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return &WriteError{Device: w.device, Replica: i, Err: err}
		}
		if w.sync == SyncReplica {
			if err := syncSink(sink); err != nil {
				return &WriteError{Device: w.device, Replica: i, Err: fmt.Errorf("sync: %w", err)}
			}
		}
		if w.onReplica != nil {
			if err := w.onReplica(i, start+i); err != nil {
				return err
			}
		}
	}
	w.log.Debug("replicas written",
		zap.String("device", w.device),
		zap.Uint64("start_sector", start),
		zap.Uint64("count", count))

	if w.sync == SyncTable && count > 0 {
		if err := syncSink(sink); err != nil {
			return &WriteError{Device: w.device, Replica: count - 1, Err: fmt.Errorf("sync: %w", err)}
		}
	}
	return nil
}

// seekSectors advances the cursor by sectors using relative seeks of at most
// w.maxSeek sectors each. The final seek is issued even when it is zero.
func (w *Writer) seekSectors(s io.Seeker, sectors uint64) error {
	remaining := sectors
	for remaining > w.maxSeek {
		if err := w.seekRelative(s, int64(w.maxSeek*SectorSize)); err != nil {
			return err
		}
		remaining -= w.maxSeek
	}
	return w.seekRelative(s, int64(remaining*SectorSize))
}

func (w *Writer) seekRelative(s io.Seeker, off int64) error {
	if _, err := s.Seek(off, io.SeekCurrent); err != nil {
		return &SeekError{Device: w.device, Offset: off, Whence: io.SeekCurrent, Err: err}
	}
	w.log.Debug("seek", zap.String("device", w.device), zap.Int64("offset", off))
	if w.onSeek != nil {
		w.onSeek(off)
	}
	return nil
}

func syncSink(s any) error {
	if sw, ok := s.(interface{ Sync() error }); ok {
		return sw.Sync()
	}
	return nil
}
