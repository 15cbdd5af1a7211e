package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/va2ai/ai-agent-orchestration-platform/eventbus"
	"github.com/va2ai/ai-agent-orchestration-platform/roundtable"
	"github.com/va2ai/ai-agent-orchestration-platform/testutil/mocks"
)

var (
	watchHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	watchErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	watchDoneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	watchDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// watchModel is a tea.Model rendering a session's live eventbus.Event stream,
// grounded on the Logiraptor-devdashboard package's tea.Model adapter shape
// and its progress.Event channel-to-Cmd bridge, narrowed to a single
// scrolling log view in place of that project's dashboard/detail modes.
type watchModel struct {
	sessionID string
	events    <-chan eventbus.Event
	unsub     func()
	lines     []string
	done      bool
	failed    bool
	err       error
}

func newWatchModel(sessionID string, events <-chan eventbus.Event, unsub func()) watchModel {
	return watchModel{sessionID: sessionID, events: events, unsub: unsub}
}

func (m watchModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// waitForEvent returns a tea.Cmd that blocks on the next event from ch and
// wraps it as a tea.Msg, the standard bubbletea channel-bridge pattern.
func waitForEvent(ch <-chan eventbus.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return watchClosedMsg{}
		}
		return ev
	}
}

type watchClosedMsg struct{}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" || msg.String() == "esc" {
			if m.unsub != nil {
				m.unsub()
			}
			return m, tea.Quit
		}
	case watchClosedMsg:
		m.done = true
		return m, tea.Quit
	case eventbus.Event:
		m.lines = append(m.lines, formatWatchLine(msg))
		if msg.Kind == eventbus.KindRefinementComplete {
			m.done = true
			return m, tea.Quit
		}
		if msg.Kind == eventbus.KindLog {
			if payload, ok := msg.Payload.(eventbus.LogPayload); ok && payload.Level == eventbus.LogLevelError {
				m.failed = true
			}
		}
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m watchModel) View() string {
	header := watchHeaderStyle.Render(fmt.Sprintf("roundtable watch %s", m.sessionID))
	body := ""
	for _, line := range m.lines {
		body += line + "\n"
	}
	footer := watchDimStyle.Render("q to quit")
	if m.done {
		footer = watchDoneStyle.Render("session finished")
	}
	return header + "\n\n" + body + "\n" + footer + "\n"
}

func formatWatchLine(ev eventbus.Event) string {
	ts := ev.Timestamp.Format("15:04:05")
	switch ev.Kind {
	case eventbus.KindLog:
		if payload, ok := ev.Payload.(eventbus.LogPayload); ok {
			line := fmt.Sprintf("[%s] %-8s %s", ts, payload.Level, payload.Message)
			if payload.Level == eventbus.LogLevelError {
				return watchErrorStyle.Render(line)
			}
			return line
		}
	}
	return fmt.Sprintf("[%s] %s", ts, ev.Kind)
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "watch requires a session id")
		os.Exit(1)
	}
	sessionID := fs.Arg(0)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	client := mocks.NewSuccess("")
	rtb, err := roundtable.New(cfg, client, roundtable.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build roundtable: %v\n", err)
		os.Exit(1)
	}
	defer rtb.Close(context.Background())

	if _, err := rtb.Status(context.Background(), sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load session: %v\n", err)
		os.Exit(1)
	}

	events, unsub := rtb.Subscribe(sessionID)
	model := newWatchModel(sessionID, events, unsub)

	if _, err := tea.NewProgram(model).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		os.Exit(1)
	}
}
