package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formatItem struct {
	value string
	title string
	desc  string
}

func (i formatItem) Title() string       { return i.title }
func (i formatItem) Description() string { return i.desc }
func (i formatItem) FilterValue() string { return i.title }

type menuModel struct {
	menu   list.Model
	picked string
	quit   bool
}

func newMenuModel() menuModel {
	items := []list.Item{
		formatItem{"deb", "Debian package", "Build a .deb for apt-based systems"},
		formatItem{"rpm", "RPM package", "Build an .rpm with rpmbuild"},
		formatItem{"all", "Both", "Build every supported format"},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select package format"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)
	l.Styles.Title = lipgloss.NewStyle().
		Background(lipgloss.Color("62")).
		Foreground(lipgloss.Color("230")).
		Padding(0, 1)

	return menuModel{menu: l}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.menu.SetSize(msg.Width-4, msg.Height-2)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.menu.SelectedItem().(formatItem); ok {
				m.picked = item.value
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.menu, cmd = m.menu.Update(msg)
	return m, cmd
}

func (m menuModel) View() string {
	return lipgloss.NewStyle().Padding(1, 2).Render(m.menu.View())
}

// pickFormat runs the interactive format picker and returns the selection.
func pickFormat() (string, error) {
	p := tea.NewProgram(newMenuModel())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("format picker: %w", err)
	}
	m := final.(menuModel)
	if m.quit || m.picked == "" {
		return "", fmt.Errorf("no format selected")
	}
	return m.picked, nil
}
