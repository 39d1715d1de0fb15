package retrodfrg

import (
	"math"
	"math/bits"
	"strings"
)

// maxCells caps the map size; larger runs fold several sectors into a glyph.
const maxCells = 1 << 16

const (
	glyphDone    = '█'
	glyphPending = '░'
	glyphPartial = '▒'
)

// Tracker counts written replica sectors across all table copies and
// renders them as a map. Table copies are laid out back to back.
type Tracker struct {
	tables   int
	perTable uint64
	total    uint64
	perCell  uint64
	cells    []uint64 // sectors done per cell
	written  uint64
	last     int // cell of the most recent mark
}

// NewTracker tracks tables copies of replicas sectors each. A total beyond
// the uint64 range saturates; the map only needs the proportion.
func NewTracker(tables int, replicas uint64) *Tracker {
	if tables < 0 {
		tables = 0
	}
	hi, total := bits.Mul64(uint64(tables), replicas)
	if hi != 0 {
		total = math.MaxUint64
	}
	perCell := uint64(1)
	if total > maxCells {
		perCell = ceilDiv(total, maxCells)
	}
	return &Tracker{
		tables:   tables,
		perTable: replicas,
		total:    total,
		perCell:  perCell,
		cells:    make([]uint64, ceilDiv(total, perCell)),
	}
}

func ceilDiv(a, b uint64) uint64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

// Mark records replica index of table copy table (0-based).
func (t *Tracker) Mark(table int, index uint64) {
	if table < 0 || table >= t.tables || index >= t.perTable {
		return
	}
	hi, base := bits.Mul64(uint64(table), t.perTable)
	pos, carry := bits.Add64(base, index, 0)
	if hi != 0 || carry != 0 || pos >= t.total {
		pos = t.total - 1
	}
	c := int(pos / t.perCell)
	t.cells[c]++
	t.written++
	t.last = c
}

// Written returns the number of sectors marked so far.
func (t *Tracker) Written() uint64 { return t.written }

// Total returns the number of sectors the run will write.
func (t *Tracker) Total() uint64 { return t.total }

// Lines renders the map into at most rows lines of width glyphs, scrolled so
// the most recent mark stays visible.
func (t *Tracker) Lines(width, rows int) []string {
	if width <= 0 || rows <= 0 || len(t.cells) == 0 {
		return nil
	}
	visible := width * rows
	start := 0
	if len(t.cells) > visible && t.last >= visible {
		start = min(t.last-visible+1, len(t.cells)-visible)
	}

	var out []string
	for r := 0; r < rows; r++ {
		from := start + r*width
		if from >= len(t.cells) {
			break
		}
		to := min(from+width, len(t.cells))
		var b strings.Builder
		for c := from; c < to; c++ {
			b.WriteRune(t.glyph(c))
		}
		out = append(out, b.String())
	}
	return out
}

func (t *Tracker) glyph(c int) rune {
	size := t.perCell
	if c == len(t.cells)-1 && t.total%t.perCell != 0 {
		size = t.total % t.perCell
	}
	switch n := t.cells[c]; {
	case n == 0:
		return glyphPending
	case n >= size:
		return glyphDone
	default:
		return glyphPartial
	}
}
