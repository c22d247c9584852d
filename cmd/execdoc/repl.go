package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"execdoc/internal/core/ports"
	"execdoc/internal/schema"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = ">>> "
	replContinuation   = "... "
	replOutputMaxChars = 120
)

var (
	replTitleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	replDocStyle    = lipgloss.NewStyle().Margin(1, 2)
	replPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	replStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true)
	replErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
)

func newReplCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run Python statements interactively against one scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The TUI owns the terminal, so logs go to a file.
			closeLog := o.redirectLog()
			defer closeLog()

			interpreter, err := o.newApp()
			if err != nil {
				return err
			}
			defer interpreter.Close(context.Background())

			p := tea.NewProgram(newReplModel(cmd.Context(), interpreter), tea.WithContext(cmd.Context()), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

func (o *options) redirectLog() func() {
	discard := func() {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		slog.SetDefault(o.logger)
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		discard()
		return func() {}
	}
	path := filepath.Join(dir, "execdoc", "repl.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		discard()
		return func() {}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		discard()
		return func() {}
	}
	o.logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: o.level}))
	slog.SetDefault(o.logger)
	return func() { _ = f.Close() }
}

type replItem struct {
	title, desc string
	failed      bool
}

func (i replItem) Title() string       { return i.title }
func (i replItem) Description() string { return i.desc }
func (i replItem) FilterValue() string { return i.title + i.desc }

type replResultMsg struct {
	source string
	chunk  *schema.CodeChunk
	err    error
}

type replModel struct {
	ctx         context.Context
	interpreter ports.Interpreter
	input       textinput.Model
	list        list.Model
	pending     []string
	executed    int
	failed      int
	running     bool
}

func newReplModel(ctx context.Context, interpreter ports.Interpreter) replModel {
	ti := textinput.New()
	ti.Prompt = replPromptStyle.Render(replPrompt)
	ti.Placeholder = "print('hello')"
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 80

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "History"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return replModel{ctx: ctx, interpreter: interpreter, input: ti, list: l}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
	case tea.WindowSizeMsg:
		h, v := replDocStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-6)
		m.input.Width = msg.Width - h - len(replPrompt) - 2
		return m, nil
	case replResultMsg:
		m.running = false
		m.executed++
		item := resultItem(msg)
		if item.failed {
			m.failed++
		}
		return m, m.list.InsertItem(0, item)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the input line. A line ending in a colon opens a block that
// a blank line closes.
func (m replModel) submit() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	line := m.input.Value()
	m.input.Reset()

	opensBlock := strings.HasSuffix(strings.TrimSpace(line), ":")
	if opensBlock || (len(m.pending) > 0 && strings.TrimSpace(line) != "") {
		m.pending = append(m.pending, line)
		m.input.Prompt = replPromptStyle.Render(replContinuation)
		return m, nil
	}

	source := line
	if len(m.pending) > 0 {
		source = strings.Join(m.pending, "\n")
		m.pending = nil
		m.input.Prompt = replPromptStyle.Render(replPrompt)
	}
	if strings.TrimSpace(source) == "" {
		return m, nil
	}
	m.running = true
	return m, m.execute(source)
}

func (m replModel) execute(source string) tea.Cmd {
	ctx, interpreter := m.ctx, m.interpreter
	return func() tea.Msg {
		out, err := interpreter.Execute(ctx, schema.NewCodeChunk(source, "python"), nil)
		if err != nil {
			return replResultMsg{source: source, err: err}
		}
		return replResultMsg{source: source, chunk: out.(*schema.CodeChunk)}
	}
}

func resultItem(msg replResultMsg) replItem {
	item := replItem{title: strings.ReplaceAll(msg.source, "\n", " ⏎ ")}
	switch {
	case msg.err != nil:
		item.failed = true
		item.desc = msg.err.Error()
	case len(msg.chunk.Errors) > 0:
		item.failed = true
		e := msg.chunk.Errors[0]
		item.desc = e.ErrorType + ": " + e.ErrorMessage
	default:
		parts := make([]string, 0, len(msg.chunk.Outputs))
		for _, out := range msg.chunk.Outputs {
			parts = append(parts, formatOutput(out))
		}
		item.desc = strings.Join(parts, " | ")
	}
	if r := []rune(item.desc); len(r) > replOutputMaxChars {
		item.desc = string(r[:replOutputMaxChars]) + "…"
	}
	return item
}

func formatOutput(out any) string {
	switch v := out.(type) {
	case string:
		return strings.TrimRight(v, "\n")
	case *schema.ImageObject:
		return "[image]"
	case *schema.Datatable:
		return fmt.Sprintf("[table: %d columns]", len(v.Columns))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf("%v", out)
	}
	return string(data)
}

func (m replModel) View() string {
	status := replStatusStyle.Render(fmt.Sprintf("%d executed | %d failed | esc to quit", m.executed, m.failed))
	if m.failed > 0 {
		status += " " + replErrorStyle.Render("!")
	}
	header := fmt.Sprintf("%s\n%s\n", replTitleStyle("execdoc"), status)
	return replDocStyle.Render(header + "\n" + m.list.View() + "\n" + m.input.View())
}
