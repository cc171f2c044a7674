// Package tui is the interactive log viewer: a viewport over the in-memory
// log feed with a status bar. Frame assembly is measured through the perf
// recorder so slow renders show up in trace captures.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"unitscope/internal/logging"
	"unitscope/internal/perf"
)

const pollInterval = 250 * time.Millisecond

type tickMsg time.Time

// Model is the root bubbletea model.
type Model struct {
	feed     *logging.Feed
	recorder *perf.Recorder
	version  string

	viewport viewport.Model
	ready    bool
	follow   bool
	seq      uint64
	width    int
	height   int
}

// New creates the viewer over the given feed.
func New(feed *logging.Feed, recorder *perf.Recorder, version string) Model {
	return Model{
		feed:     feed,
		recorder: recorder,
		version:  version,
		follow:   true,
	}
}

// Init schedules the first feed poll.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "f":
			m.follow = !m.follow
			if m.follow {
				m.viewport.GotoBottom()
			}
			return m, nil
		case "g":
			m.follow = false
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.follow = true
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chrome := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chrome)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chrome
		}
		m.refresh(true)
		return m, nil

	case tickMsg:
		m.refresh(false)
		return m, tick()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh re-renders the viewport content when the feed changed.
func (m *Model) refresh(force bool) {
	if !m.ready {
		return
	}
	seq := m.feed.Seq()
	if !force && seq == m.seq {
		return
	}
	defer m.recorder.Measure("render log feed")()

	m.seq = seq
	records := m.feed.Snapshot()
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, formatRecord(r))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func formatRecord(r logging.Record) string {
	var sb strings.Builder
	sb.WriteString(timeStyle.Render(r.Time.Format("15:04:05.000")))
	sb.WriteByte(' ')
	sb.WriteString(levelStyle(r.Level).Render(levelLabel(r.Level)))
	if r.Component != "" {
		sb.WriteByte(' ')
		sb.WriteString(componentStyle.Render(r.Component))
	}
	if r.Source != "" {
		sb.WriteByte(' ')
		sb.WriteString(sourceStyle.Render(r.Source))
	}
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	return sb.String()
}

// View renders the full frame.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m Model) headerView() string {
	title := headerStyle.Render(fmt.Sprintf("unitscope %s · logs", m.version))
	trace := ""
	if m.recorder.Enabled() {
		trace = warnStyle.Render(" tracing")
	}
	return title + trace
}

func (m Model) footerView() string {
	mode := "follow"
	if !m.follow {
		mode = fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100)
	}
	return footerStyle.Render(fmt.Sprintf(
		"%d records · %s · q quit · f follow · g/G top/bottom", m.feed.Len(), mode))
}
