package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bisegni/liveset/pkg/load"
	"github.com/bisegni/liveset/pkg/results"
	"github.com/bisegni/liveset/pkg/table"
)

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	liveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	frozenStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	watchErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	watchHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

var watchCmd = &cobra.Command{
	Use:   "watch <file.jsonl> [predicate]",
	Short: "Tail a JSONL file through a live view",
	Long: `Tail a growing JSONL file into a table and render a live view of it.
Appended records show up in the view as they match; a snapshot freezes
the rows on screen while the table keeps growing underneath.

Keys:
  f  narrow the view with an extra predicate
  s  freeze the current rows
  l  back to a live view (filters and sort from the flags reapply)
  q  quit

Examples:
  liveset watch events.jsonl
  liveset watch events.jsonl "level == 'error'" --sort "at:desc"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	predicate := ""
	if len(args) > 1 {
		predicate = args[1]
	}
	m := newWatchModel(args[0], predicate)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type watchState int

const (
	stateViewing watchState = iota
	stateFiltering
)

type watchModel struct {
	source    string
	predicate string

	table *table.Table
	view  *results.Results

	file    *os.File
	reader  *bufio.Reader
	pending string

	input  textinput.Model
	state  watchState
	status string
	err    error
	height int
}

type openedMsg struct {
	file *os.File
	err  error
}

type tickMsg time.Time

func newWatchModel(source, predicate string) *watchModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Width = 60
	return &watchModel{source: source, predicate: predicate, input: ti, height: 24}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.openSource, watchTick())
}

func watchTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *watchModel) openSource() tea.Msg {
	f, err := os.Open(m.source)
	if err != nil {
		return openedMsg{err: err}
	}
	return openedMsg{file: f}
}

// drain reads the complete lines appended since the last call. A
// trailing partial line waits for its newline.
func (m *watchModel) drain() ([]string, error) {
	if m.reader == nil {
		return nil, nil
	}
	var lines []string
	for {
		chunk, err := m.reader.ReadString('\n')
		if err == io.EOF {
			m.pending += chunk
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		line := strings.TrimSpace(m.pending + chunk)
		m.pending = ""
		if line != "" {
			lines = append(lines, line)
		}
	}
}

// absorb decodes appended lines into the table, building it from the
// first records when the file started empty.
func (m *watchModel) absorb(lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	records := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		record, err := decodeObject(line)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	if m.table == nil {
		s, err := load.InferSchema(TypeName, records)
		if err != nil {
			return err
		}
		m.table = table.New(s)
		if _, err := load.IntoTable(m.table, records, load.Options{}); err != nil {
			return err
		}
		view, err := buildView(m.table, m.predicate, QueryArgs)
		if err != nil {
			return err
		}
		m.view = view
		return nil
	}

	_, err := load.IntoTable(m.table, records, load.Options{})
	return err
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.file = msg.file
		m.reader = bufio.NewReader(msg.file)
		return m, nil

	case tickMsg:
		lines, err := m.drain()
		if err == nil {
			err = m.absorb(lines)
		}
		if err != nil {
			m.err = err
		} else if len(lines) > 0 {
			m.err = nil
		}
		return m, watchTick()

	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.state == stateFiltering {
			switch msg.String() {
			case "enter":
				text := strings.TrimSpace(m.input.Value())
				m.state = stateViewing
				m.input.Blur()
				if text == "" || m.view == nil {
					return m, nil
				}
				view, err := m.view.Filtered(text)
				if err != nil {
					m.err = err
					return m, nil
				}
				m.view = view
				m.err = nil
				m.status = fmt.Sprintf("filtered: %s", text)
				return m, nil
			case "esc":
				m.state = stateViewing
				m.input.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.file != nil {
				m.file.Close()
			}
			return m, tea.Quit

		case "f":
			m.state = stateFiltering
			m.input.SetValue("")
			m.input.Focus()
			return m, nil

		case "s":
			if m.view != nil {
				m.view = m.view.Snapshot()
				m.status = fmt.Sprintf("snapshot frozen at %d row(s)", m.view.Size())
			}
			return m, nil

		case "l":
			if m.table != nil {
				view, err := buildView(m.table, m.predicate, QueryArgs)
				if err != nil {
					m.err = err
					return m, nil
				}
				m.view = view
				m.status = "live"
			}
			return m, nil
		}
	}

	return m, nil
}

func (m *watchModel) View() string {
	var b strings.Builder

	b.WriteString(watchTitleStyle.Render("liveset watch"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(watchErrStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	if m.view == nil {
		b.WriteString("Waiting for records...\n\n")
		b.WriteString(watchHelpStyle.Render("q quit"))
		return b.String()
	}

	mode := liveStyle.Render("LIVE")
	if m.view.Mode() == results.Snapshot {
		mode = frozenStyle.Render("SNAPSHOT")
	}
	b.WriteString(fmt.Sprintf("%s  %s  %d row(s)  v%d\n",
		mode, m.view.Query().String(), m.view.Size(), m.table.Version()))
	if m.status != "" {
		b.WriteString(watchHelpStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	props := m.view.Schema().Properties()
	var header strings.Builder
	for _, prop := range props {
		fmt.Fprintf(&header, "%-16s", truncate(prop.Name, 15))
	}
	b.WriteString(headerStyle.Render(header.String()))
	b.WriteString("\n")

	limit := m.height - 10
	if limit < 1 {
		limit = 1
	}
	shown := 0
	m.view.Each(func(i int, row table.Row, attached bool) bool {
		if !attached {
			return true
		}
		for col := range props {
			fmt.Fprintf(&b, "%-16s", truncate(row.Value(col).String(), 15))
		}
		b.WriteString("\n")
		shown++
		return shown < limit
	})
	if remaining := m.view.Size() - shown; remaining > 0 {
		b.WriteString(watchHelpStyle.Render(fmt.Sprintf("... %d more row(s)", remaining)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.state == stateFiltering {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(watchHelpStyle.Render("enter apply • esc cancel"))
	} else {
		b.WriteString(watchHelpStyle.Render("f filter • s snapshot • l live • q quit"))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
