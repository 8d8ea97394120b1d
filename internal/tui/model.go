// Package tui is the terminal overlay. The model owns the engine: every
// Poll, hotkey and redraw runs on the bubbletea event loop.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/replaypad/internal/engine"
	"github.com/roach88/replaypad/internal/sequence"
)

// Options configures the overlay.
type Options struct {
	PollInterval    time.Duration // engine poll period
	RefreshInterval time.Duration // slot list and stats refresh period
	StorePath       string        // target of the save and load hotkeys
	Backup          bool          // back up the store file before a hotkey save
	Detail          bool          // start with the slot list shown
	Logger          *slog.Logger
}

type pollMsg time.Time

type refreshMsg time.Time

// feed collects notifications emitted during Update. It is shared by
// every copy of the model.
type feed struct {
	notes []engine.Notification
}

func (f *feed) Notify(n engine.Notification) { f.notes = append(f.notes, n) }

// panel is the cached state View draws from.
type panel struct {
	mode    string
	slot    int
	count   int
	summary []sequence.Summary
	stats   engine.TimingStats

	inputIdle time.Duration
	inputSeen bool
}

type Model struct {
	eng    *engine.Engine
	opts   Options
	logger *slog.Logger
	feed   *feed

	panel    panel
	detail   bool
	status   string
	lastErr  string
	quitting bool
}

// New returns a model driving eng. It subscribes to eng's notifications.
func New(eng *engine.Engine, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &feed{}
	eng.Subscribe(f)

	m := Model{
		eng:    eng,
		opts:   opts,
		logger: logger,
		feed:   f,
		detail: opts.Detail,
		status: "ready",
	}
	m.refresh()
	return m
}

func pollTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func refreshTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(pollTick(m.opts.PollInterval), refreshTick(m.opts.RefreshInterval))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case pollMsg:
		m.eng.Poll()
		m.drain()
		return m, pollTick(m.opts.PollInterval)

	case refreshMsg:
		m.refresh()
		return m, refreshTick(m.opts.RefreshInterval)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Notifications queued since the last poll must not overwrite the
	// outcome of this key.
	m.drain()

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.eng.Shutdown()
		m.drain()
		m.quitting = true
		return m, tea.Quit

	case "s":
		path := m.opts.StorePath
		if err := m.eng.Store().Save(path, m.opts.Backup); err != nil {
			m.fail(err)
		} else {
			m.status = "saved " + path
		}

	case "l":
		if m.eng.Mode() != engine.Idle {
			m.status = "stop " + m.eng.Mode().String() + " before loading"
			break
		}
		path := m.opts.StorePath
		if err := m.eng.Store().Load(path); err != nil {
			m.fail(err)
		} else {
			m.status = "loaded " + path
		}

	case "o":
		m.detail = !m.detail

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if err := m.eng.GotoSlot(int(key[0] - '0')); err != nil {
			m.fail(err)
		} else {
			m.drain()
		}
	}

	m.refresh()
	return m, nil
}

func (m *Model) fail(err error) {
	m.lastErr = err.Error()
	m.logger.Warn("hotkey failed", "err", err)
}

// drain applies queued notifications to the status line.
func (m *Model) drain() {
	if len(m.feed.notes) == 0 {
		return
	}
	for _, n := range m.feed.notes {
		switch ev := n.(type) {
		case engine.ModeChanged:
			m.panel.mode = ev.Mode.String()
			m.panel.slot = ev.Slot
			m.panel.count = ev.EventCount
			m.status = fmt.Sprintf("%s slot %d (%d events)", ev.Mode, ev.Slot, ev.EventCount)
			if ev.Mode != engine.Idle {
				m.lastErr = ""
			}
		case engine.SlotChanged:
			m.panel.slot = ev.Slot
			m.panel.count = ev.EventCount
			m.status = fmt.Sprintf("slot %d (%d events)", ev.Slot, ev.EventCount)
		case engine.ErrorRaised:
			m.lastErr = ev.Err.Error()
		}
	}
	m.feed.notes = m.feed.notes[:0]
}

func (m *Model) refresh() {
	m.panel = panel{
		mode:    m.eng.Mode().String(),
		slot:    m.eng.Slot(),
		count:   m.eng.EventCount(),
		summary: m.eng.Store().Summary(),
		stats:   m.eng.TimingStats(),
	}
	m.panel.inputIdle, m.panel.inputSeen = m.eng.InputIdle()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	p := m.panel

	name := fmt.Sprintf("Slot %d", p.slot)
	if p.slot >= 1 && p.slot <= len(p.summary) {
		name = p.summary[p.slot-1].Name
	}
	b.WriteString(titleStyle.Render("replaypad"))
	b.WriteString("  ")
	b.WriteString(modeStyles[p.mode].Render(modeLabels[p.mode]))
	fmt.Fprintf(&b, "  slot %02d %q  events %d\n", p.slot, name, p.count)

	if m.detail {
		b.WriteString("\n")
		for _, s := range slotWindow(p.summary, p.slot, 5) {
			line := fmt.Sprintf(" %02d  %-20s %6d ev %7.2fs ", s.Slot, truncate(s.Name, 20), s.EventCount, s.Duration)
			if s.Slot == p.slot {
				line = cursorStyle.Render(line)
			} else if s.EventCount == 0 {
				line = dimStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		if p.stats.Count > 0 {
			fmt.Fprintf(&b, "\nlast playback: %d events, delay avg %.1fms min %.1fms max %.1fms\n",
				p.stats.Count, p.stats.Avg, p.stats.Min, p.stats.Max)
		}
		if p.inputSeen {
			fmt.Fprintf(&b, "input idle %.1fs\n", p.inputIdle.Seconds())
		} else {
			b.WriteString("no input yet\n")
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("1-9:slot  s:save  l:load  o:overlay  q:quit"))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render(m.status))
	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.lastErr))
	}
	b.WriteString("\n")
	return b.String()
}

// slotWindow returns up to size slots centred on current.
func slotWindow(all []sequence.Summary, current, size int) []sequence.Summary {
	if len(all) <= size {
		return all
	}
	start := current - 1 - size/2
	if start < 0 {
		start = 0
	}
	if start+size > len(all) {
		start = len(all) - size
	}
	return all[start : start+size]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
