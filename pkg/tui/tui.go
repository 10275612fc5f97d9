// Package tui provides a terminal user interface for als2hapax
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/als2hapax/pkg/config"
	"github.com/james-see/als2hapax/pkg/converter"
	"github.com/james-see/als2hapax/pkg/converter/devices"
)

// Hapax-inspired color scheme
var (
	hapaxOrange = lipgloss.Color("#FF6A13")
	paleAmber   = lipgloss.Color("#FFC857")
	silverGray  = lipgloss.Color("#C0C0C0")
	darkGray    = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(hapaxOrange).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(hapaxOrange).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(paleAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(hapaxOrange).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(hapaxOrange).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateLoading
	StateRacks
	StateConverting
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
}

var menuItems = []MenuItem{
	{Title: "ALS → HAPAX", Description: "Pick a Live set and export its racks as Hapax definitions"},
	{Title: "Exit", Description: "Exit the application"},
}

// rackRow is one detected rack with the user's choices
type rackRow struct {
	summary converter.RackSummary
	include bool
	channel int
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	rackIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	conv         *converter.Converter
	selectedFile string
	projectData  []byte
	racks        []rackRow
	outputFile   string
	members      int
	channel      int
	err          error
	width        int
	height       int
}

// racksLoadedMsg carries the result of inspecting the chosen project
type racksLoadedMsg struct {
	data  []byte
	racks []converter.RackSummary
	err   error
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	members    int
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(cfg config.Config) Model {
	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".als"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(hapaxOrange)

	channel := cfg.Channel
	if channel < 1 || channel > 16 {
		channel = 1
	}

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		channel:    channel,
		conv: converter.New(devices.NewHapax(),
			converter.WithDefaultPort(cfg.OutPort),
			converter.WithDefaultChannel(channel),
		),
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateLoading
			return m, tea.Batch(m.spinner.Tick, m.loadRacks())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateRacks:
			return m.updateRacks(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case racksLoadedMsg:
		if msg.err != nil {
			m.state = StateResult
			m.err = msg.err
			return m, nil
		}
		m.projectData = msg.data
		m.racks = make([]rackRow, len(msg.racks))
		for i, r := range msg.racks {
			m.racks[i] = rackRow{summary: r, include: r.Files > 0, channel: m.channel}
		}
		m.rackIndex = 0
		m.state = StateRacks
		return m, nil

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.members = msg.members
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateRacks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.rackIndex > 0 {
			m.rackIndex--
		}
	case "down", "j":
		if m.rackIndex < len(m.racks)-1 {
			m.rackIndex++
		}
	case " ", "space":
		if len(m.racks) > 0 {
			m.racks[m.rackIndex].include = !m.racks[m.rackIndex].include
		}
	case "left", "h":
		if len(m.racks) > 0 && m.racks[m.rackIndex].channel > 1 {
			m.racks[m.rackIndex].channel--
		}
	case "right", "l":
		if len(m.racks) > 0 && m.racks[m.rackIndex].channel < 16 {
			m.racks[m.rackIndex].channel++
		}
	case "enter":
		if len(m.selections()) == 0 {
			return m, nil
		}
		m.state = StateConverting
		return m, tea.Batch(m.spinner.Tick, m.performConversion())
	case "esc":
		m.state = StateMenu
		m.racks = nil
		m.projectData = nil
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.projectData = nil
		m.racks = nil
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// selections builds the conversion request from the rack list
func (m Model) selections() []converter.Selection {
	var sels []converter.Selection
	for _, r := range m.racks {
		if r.include {
			sels = append(sels, converter.Selection{
				Rack:    r.summary.Index,
				Channel: converter.Channel(r.channel),
			})
		}
	}
	return sels
}

func (m Model) loadRacks() tea.Cmd {
	path := m.selectedFile
	conv := m.conv
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return racksLoadedMsg{err: err}
		}
		racks, err := conv.Inspect(data)
		if err != nil {
			return racksLoadedMsg{err: err}
		}
		return racksLoadedMsg{data: data, racks: racks}
	}
}

func (m Model) performConversion() tea.Cmd {
	path := m.selectedFile
	data := m.projectData
	sels := m.selections()
	conv := m.conv
	return func() tea.Msg {
		archive, err := conv.Convert(data, converter.ProjectName(path), sels)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		out, err := archive.Bytes()
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		outputFile := filepath.Join(filepath.Dir(path), archive.Name)
		if err := os.WriteFile(outputFile, out, 0644); err != nil {
			return conversionDoneMsg{err: err}
		}

		return conversionDoneMsg{outputFile: outputFile, members: len(archive.Members)}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateLoading:
		s.WriteString(m.viewBusy(" READING PROJECT ", "Scanning"))
	case StateRacks:
		s.WriteString(m.viewRacks())
	case StateConverting:
		s.WriteString(m.viewBusy(" CONVERTING ", "Converting"))
	case StateResult:
		s.WriteString(m.viewResult())
	}

	// Footer help
	s.WriteString("\n")
	if m.state == StateRacks {
		s.WriteString(helpStyle.Render("↑/↓: navigate • space: toggle • ←/→: channel • enter: export • esc: back"))
	} else {
		s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))
	}

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(paleAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT LIVE SET "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewBusy(title, verb string) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s %s %s...\n", m.spinner.View(), verb, filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render("  als → hapax"))

	return boxStyle.Render(s.String())
}

func (m Model) viewRacks() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" RACKS IN %s ", strings.ToUpper(filepath.Base(m.selectedFile)))))
	s.WriteString("\n\n")

	if len(m.racks) == 0 {
		s.WriteString(menuStyle.Render("No Instrument or Drum racks found"))
		return boxStyle.Render(s.String())
	}

	for i, r := range m.racks {
		box := "[ ]"
		if r.include {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %-6s %-32s ch %2d  %d ctl, %d file(s)",
			box, r.summary.Kind, r.summary.TrackName, r.channel, len(r.summary.Controls), r.summary.Files)
		if i == m.rackIndex {
			s.WriteString(selectedStyle.Render("▸ " + line))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(paleAmber).PaddingLeft(4).Render(controlPreview(r.summary)))
		} else {
			s.WriteString(menuStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

// controlPreview lists the first few controls of a rack
func controlPreview(r converter.RackSummary) string {
	var labels []string
	for i, c := range r.Controls {
		if i == 8 {
			labels = append(labels, fmt.Sprintf("+%d more", len(r.Controls)-8))
			break
		}
		if c.NoteName != "" {
			labels = append(labels, fmt.Sprintf("%s (%s)", c.Label, c.NoteName))
		} else {
			labels = append(labels, c.Label)
		}
	}
	return strings.Join(labels, " · ")
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s (%d definitions)", filepath.Base(m.outputFile), m.members))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
     _    _     ____  ____  _   _    _    ____   _    __  __
    / \  | |   / ___||___ \| | | |  / \  |  _ \ / \   \ \/ /
   / _ \ | |   \___ \  __) | |_| | / _ \ | |_) / _ \   \  /
  / ___ \| |___ ___) |/ __/|  _  |/ ___ \|  __/ ___ \  /  \
 /_/   \_\_____|____/|_____|_| |_/_/   \_\_| /_/   \_\/_/\_\
`
	return lipgloss.NewStyle().Foreground(hapaxOrange).Render(logo)
}

// Run starts the TUI application
func Run(cfg config.Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
