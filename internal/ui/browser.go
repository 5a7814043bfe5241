// Package ui renders the interactive symbol browser.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"symforge/internal/arch"
	"symforge/internal/symbols"
)

type browserModel struct {
	store *symbols.Store
	dir   arch.Directory

	filter   textinput.Model
	entries  []entry
	visible  []int
	cursor   int
	width    int
	height   int
	quitting bool
}

type entry struct {
	id   symbols.SymbolID
	kind symbols.SymbolKind
	name string
	size int
}

// NewBrowser returns a Bubble Tea model listing every live symbol with a
// type-to-filter box and a detail pane for the selection.
func NewBrowser(store *symbols.Store, dir arch.Directory) tea.Model {
	filter := textinput.New()
	filter.Placeholder = "filter symbols"
	filter.Prompt = "/ "
	filter.Focus()

	m := &browserModel{
		store:  store,
		dir:    dir,
		filter: filter,
		width:  80,
		height: 24,
	}
	m.reload()
	return m
}

func (m *browserModel) reload() {
	m.entries = m.entries[:0]
	m.store.Each(func(id symbols.SymbolID, sym *symbols.Symbol) bool {
		m.entries = append(m.entries, entry{
			id:   id,
			kind: sym.Kind,
			name: sym.Qualified,
			size: sym.Size,
		})
		return true
	})
	m.applyFilter()
}

func (m *browserModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, e := range m.entries {
		if needle == "" || strings.Contains(strings.ToLower(e.name), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *browserModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *browserModel) View() string {
	if m.quitting {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	selStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("symbols (%d)", len(m.visible))))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	rows := m.height - 10
	if rows < 4 {
		rows = 4
	}
	first := 0
	if m.cursor >= rows {
		first = m.cursor - rows + 1
	}
	nameWidth := m.width - 28
	if nameWidth < 20 {
		nameWidth = 20
	}
	for i := first; i < len(m.visible) && i < first+rows; i++ {
		e := m.entries[m.visible[i]]
		line := fmt.Sprintf("%-12s %6d  %s",
			kindStyle.Render(fmt.Sprintf("%-12s", e.kind)), e.size, truncate(e.name, nameWidth))
		if i == m.cursor {
			b.WriteString(selStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.detail())
	b.WriteString("\n")
	return b.String()
}

// detail renders the selection's graph neighborhood: members for types,
// ranges and variables for functions.
func (m *browserModel) detail() string {
	if m.cursor >= len(m.visible) {
		return ""
	}
	e := m.entries[m.visible[m.cursor]]
	sym, err := m.store.Get(e.id)
	if err != nil {
		return "  (gone)"
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	var b strings.Builder
	fmt.Fprintf(&b, "  %s  size=%d align=%d", sym.Qualified, sym.Size, sym.Align)
	switch sym.Kind {
	case symbols.SymbolFunction:
		for _, r := range sym.Ranges {
			fmt.Fprintf(&b, "\n  %s", dim.Render(fmt.Sprintf("code [%#x,%#x)", r.Offset, r.End())))
		}
		for _, child := range sym.Children {
			cs, err := m.store.Get(child)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "\n    %s %s", cs.Kind, cs.Name)
			for _, lr := range cs.LiveRanges {
				fmt.Fprintf(&b, " %s", dim.Render(fmt.Sprintf("[%#x+%#x]=%s", lr.Offset, lr.Size, lr.Loc.Format(m.dir))))
			}
		}
	case symbols.SymbolUDT, symbols.SymbolEnum:
		for _, child := range sym.Children {
			cs, err := m.store.Get(child)
			if err != nil {
				continue
			}
			if cs.Kind == symbols.SymbolEnumerant {
				fmt.Fprintf(&b, "\n    %s = %d", cs.Name, cs.Value)
			} else {
				fmt.Fprintf(&b, "\n    +%-4d %s", cs.Offset, cs.Name)
			}
		}
	}
	return b.String()
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
