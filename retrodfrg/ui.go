// Package retrodfrg draws an old-DOS-defragmenter style fullscreen status
// display while BBR table replicas are written. It knows nothing about the
// table format: callers feed it a title, info lines, phases and a Tracker.
package retrodfrg

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// ErrInterrupted is returned when the user asks to stop (q, Esc or Ctrl+C).
var ErrInterrupted = errors.New("interrupted")

type phase struct {
	name string
	done bool
}

// UI owns a tcell screen. Drawing happens on the caller's goroutine; only
// key handling runs in the background.
type UI struct {
	s         tcell.Screen
	stop      chan struct{}
	once      sync.Once
	closeOnce sync.Once
	closed    bool
	restore   bool

	title  string
	info   []string
	legend string
	phases []phase
	status []string
	track  *Tracker
}

// NewUI opens the controlling terminal.
func NewUI() (*UI, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	u, err := NewUIWithScreen(s)
	if err != nil {
		return nil, err
	}
	u.restore = true
	return u, nil
}

// NewUIWithScreen initializes s and starts listening for stop keys.
func NewUIWithScreen(s tcell.Screen) (*UI, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.DisableMouse()
	u := &UI{s: s, stop: make(chan struct{})}
	go u.keys(s)
	return u, nil
}

// Close gives the terminal back.
func (u *UI) Close() {
	u.closeOnce.Do(func() {
		u.closed = true
		u.s.Fini()
		if u.restore {
			fmt.Print("\033[?1049l\033[?25h")
		}
	})
}

// RequestStop marks the run as interrupted. Safe to call repeatedly.
func (u *UI) RequestStop() {
	u.once.Do(func() {
		close(u.stop)
		_ = u.s.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

// IsStopped reports whether RequestStop has been called.
func (u *UI) IsStopped() bool {
	select {
	case <-u.stop:
		return true
	default:
		return false
	}
}

func (u *UI) SetTitle(t string) { u.title = t }
func (u *UI) SetInfo(lines []string) { u.info = append([]string(nil), lines...) }
func (u *UI) SetLegend(l string) { u.legend = l }
func (u *UI) SetStatus(lines []string) { u.status = append([]string(nil), lines...) }
func (u *UI) SetTracker(t *Tracker) { u.track = t }

// SetPhases replaces the phase list; all phases start pending.
func (u *UI) SetPhases(names ...string) {
	u.phases = u.phases[:0]
	for _, n := range names {
		u.phases = append(u.phases, phase{name: n})
	}
}

// SetPhaseDone ticks the named phase (case-insensitive).
func (u *UI) SetPhaseDone(name string) {
	for i := range u.phases {
		if strings.EqualFold(u.phases[i].name, name) {
			u.phases[i].done = true
		}
	}
}

// Draw repaints the whole screen.
func (u *UI) Draw() {
	if u.closed {
		return
	}
	u.s.Clear()
	w, h := u.s.Size()
	y := 0
	line := func(x int, str string) {
		if y < h {
			put(u.s, x, y, w, str)
		}
		y++
	}

	if u.title != "" {
		put(u.s, 0, y, w, strings.Repeat("═", w))
		line(max(0, (w-len([]rune(u.title)))/2), u.title)
	}
	for _, l := range u.info {
		line(0, l)
	}
	if u.legend != "" {
		line(0, u.legend)
	}

	// Map gets whatever is left after the phase and status blocks.
	if u.track != nil {
		rows := h - y
		if len(u.phases) > 0 {
			rows -= 2
		}
		if len(u.status) > 0 {
			rows -= 1 + len(u.status)
		}
		for _, l := range u.track.Lines(w, max(1, rows)) {
			line(0, l)
		}
	}

	if len(u.phases) > 0 {
		rule(u.s, y, w, " Tables ")
		y++
		parts := make([]string, len(u.phases))
		for i, p := range u.phases {
			mark := ' '
			if p.done {
				mark = '✓'
			}
			parts[i] = fmt.Sprintf("[%c]%s", mark, p.name)
		}
		line(0, strings.Join(parts, " "))
	}
	if len(u.status) > 0 {
		rule(u.s, y, w, " Status ")
		y++
		for _, l := range u.status {
			line(0, l)
		}
	}
	u.s.Show()
}

func (u *UI) keys(s tcell.Screen) {
	for {
		if u.IsStopped() {
			return
		}
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyEscape:
				u.RequestStop()
			case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
				u.RequestStop()
			}
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt, nil:
			return
		}
	}
}

func rule(s tcell.Screen, y, w int, label string) {
	put(s, 0, y, w, strings.Repeat("─", w))
	put(s, 2, y, w, label)
}

func put(s tcell.Screen, x, y, w int, str string) {
	for i, r := range []rune(str) {
		if x+i >= w {
			return
		}
		s.SetContent(x+i, y, r, nil, tcell.StyleDefault)
	}
}
