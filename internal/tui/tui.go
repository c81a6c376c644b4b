// Package tui is the interactive terminal client. It shows the table and a
// scrolling log for one seat and sends typed commands over a transport.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/pokerrooms/internal/display"
	"github.com/lox/pokerrooms/internal/game"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/transport"
)

const maxLogLines = 500

// updateMsg carries one room update. ok is false once the stream ended.
type updateMsg struct {
	update protocol.Update
	ok     bool
}

// responseMsg carries the answer to a command typed by the user.
type responseMsg struct {
	req  protocol.Request
	resp protocol.Response
	err  error
}

// Model is the Bubble Tea model for one seat.
type Model struct {
	ctx    context.Context
	tr     transport.Transport
	disp   *display.Display
	logger *log.Logger

	logViewport viewport.Model
	input       textinput.Model
	focusedPane int // 0 = log, 1 = input

	gameLog  []string
	snapshot *game.Snapshot
	quitting bool

	width  int
	height int
}

// New creates a model that sends commands over tr and renders with disp.
// ctx bounds every request the model sends.
func New(ctx context.Context, tr transport.Transport, disp *display.Display, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "Type a command, 'help' for the list"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		ctx:         ctx,
		tr:          tr,
		disp:        disp,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		focusedPane: 1,
	}
}

// Run drives m until the user quits, the room closes or ctx is done.
func Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// AddLogEntry appends a plain status line to the log.
func (m *Model) AddLogEntry(msg string) {
	m.appendLog(m.disp.InfoLine(msg))
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.tr.Updates()))
}

// waitForUpdate turns the next update on ch into a message.
func waitForUpdate(ch <-chan protocol.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		return updateMsg{update: u, ok: ok}
	}
}

func (m *Model) send(req protocol.Request) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.tr.Do(m.ctx, req)
		return responseMsg{req: req, resp: resp, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		if !msg.ok {
			return m.quit()
		}
		for _, line := range m.disp.Lines(msg.update) {
			m.appendLog(line)
		}
		if msg.update.Closed {
			return m.quit()
		}
		snap := msg.update.Snapshot
		m.snapshot = &snap
		return m, waitForUpdate(m.tr.Updates())

	case responseMsg:
		switch {
		case errors.Is(msg.err, transport.ErrClosed):
			return m.quit()
		case msg.err != nil:
			if m.ctx.Err() != nil {
				return m.quit()
			}
			m.appendLog(m.disp.ErrorLine(msg.err))
		case !msg.resp.Success:
			m.appendLog(m.disp.ErrorLine(msg.resp.Err()))
		case msg.req.Type == protocol.TypeLeaveRoom:
			m.AddLogEntry("You left the room.")
			return m.quit()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m.quit()
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.input.Focus()
			} else {
				m.focusedPane = 0
				m.input.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				line := m.input.Value()
				m.input.SetValue("")
				return m.submit(line)
			}
		}
	}

	// Keys go to the focused pane only; the log scrolls with the
	// viewport's own key map.
	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.logViewport, cmd = m.logViewport.Update(msg)
	}
	return m, cmd
}

// submit handles one line typed by the user.
func (m *Model) submit(line string) (tea.Model, tea.Cmd) {
	req, err := display.ParseCommand(line)
	switch {
	case errors.Is(err, display.ErrEmpty):
		return m, nil
	case errors.Is(err, display.ErrQuit):
		return m.quit()
	case errors.Is(err, display.ErrHelp):
		m.AddLogEntry(display.HelpText)
		return m, nil
	case err != nil:
		m.appendLog(m.disp.ErrorLine(err))
		return m, nil
	}
	m.logger.Debug("Sending command", "type", req.Type)
	return m, m.send(req)
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) appendLog(line string) {
	m.gameLog = append(m.gameLog, strings.Split(line, "\n")...)
	if len(m.gameLog) > maxLogLines {
		m.gameLog = m.gameLog[len(m.gameLog)-maxLogLines:]
	}
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	table := "Waiting for the room..."
	if m.snapshot != nil {
		table = strings.TrimRight(m.disp.Table(*m.snapshot), "\n")
	}
	tablePane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(max(m.width-2, 1)).
		Render(table)

	help := "Tab to scroll log • Enter to send • Ctrl+C to quit"
	if m.focusedPane == 0 {
		help = "Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"
	}
	inputPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Render(m.input.View() + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Render(help))

	logHeight := m.height - lipgloss.Height(tablePane) - lipgloss.Height(inputPane) - 2
	m.logViewport.Width = max(m.width-2, 1)
	m.logViewport.Height = max(logHeight, 1)

	logBorder := lipgloss.Color("#626262")
	if m.focusedPane == 0 {
		logBorder = lipgloss.Color("#04B575")
	}
	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(logBorder).
		Width(m.logViewport.Width).
		Height(m.logViewport.Height).
		Render(m.logViewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, tablePane, logPane, inputPane)
}
