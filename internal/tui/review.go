// Package tui provides the interactive review screen shown before
// planned changes are applied.
package tui

import (
	"fmt"
	"strings"

	"github.com/Digital-Shane/kometa-resolve/internal/apply"
	"github.com/Digital-Shane/kometa-resolve/internal/plan"
	"github.com/Digital-Shane/kometa-resolve/internal/tui/theme"
	"github.com/Digital-Shane/treeview"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// ApplyFunc commits the reviewed plans and reports the outcome.
type ApplyFunc func() apply.Result

// ApplyCompleteMsg is emitted when the apply run finishes.
type ApplyCompleteMsg struct{ applied, skipped, failed int }

func (m ApplyCompleteMsg) Applied() int { return m.applied }

func (m ApplyCompleteMsg) Skipped() int { return m.skipped }

func (m ApplyCompleteMsg) Failed() int { return m.failed }

// ReviewModel shows planned changes per file and asks for confirmation
// before handing them to the apply engine.
type ReviewModel struct {
	*treeview.TuiTreeModel[plan.FilePlan]
	applyFn         ApplyFunc
	confirming      bool
	applyInProgress bool
	applyComplete   bool
	applied         int
	skipped         int
	failed          int
	width           int
	height          int
	splitRatio      float64
	theme           theme.Theme

	detailsViewport *viewport.Model
	detailsFocused  bool
}

// Option configures a ReviewModel during construction.
type Option func(*ReviewModel)

// WithTheme overrides the default theme for the review TUI.
func WithTheme(th theme.Theme) Option {
	return func(m *ReviewModel) {
		m.theme = th
	}
}

// NewReviewModel creates a review model over the given plans.
func NewReviewModel(plans []plan.FilePlan, applyFn ApplyFunc, opts ...Option) *ReviewModel {
	m := &ReviewModel{
		applyFn:    applyFn,
		width:      80,
		height:     24,
		splitRatio: 0.5,
	}

	initOpts := append([]Option{WithTheme(theme.Default())}, opts...)
	for _, opt := range initOpts {
		opt(m)
	}

	runewidth.DefaultCondition.EastAsianWidth = false
	runewidth.DefaultCondition.StrictEmojiNeutral = true

	nodes := make([]*treeview.Node[plan.FilePlan], 0, len(plans))
	for _, fp := range plans {
		name := fmt.Sprintf("%s %s (%d change(s))",
			m.theme.Icon("file"), fp.File, len(fp.Changes))
		nodes = append(nodes, treeview.NewNode(fp.File, name, fp))
	}
	tree := treeview.NewTree(nodes)

	keyMap := treeview.DefaultKeyMap()
	keyMap.SearchStart = []string{}
	keyMap.Reset = []string{}

	treeWidth := int(float64(m.width)*m.splitRatio) - 2
	m.TuiTreeModel = treeview.NewTuiTreeModel(tree,
		treeview.WithTuiWidth[plan.FilePlan](treeWidth),
		treeview.WithTuiHeight[plan.FilePlan](m.height-4),
		treeview.WithTuiAllowResize[plan.FilePlan](true),
		treeview.WithTuiDisableNavBar[plan.FilePlan](true),
		treeview.WithTuiKeyMap[plan.FilePlan](keyMap),
	)

	rightWidth := m.width - treeWidth
	viewportHeight := m.height - 4 - 4
	m.detailsViewport = newDetailsViewport(rightWidth-6, viewportHeight)

	return m
}

// newDetailsViewport builds the borderless scroll area for the change
// details panel; the surrounding panel supplies the frame.
func newDetailsViewport(width, height int) *viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	return &vp
}

func (m *ReviewModel) Init() tea.Cmd {
	return nil
}

func (m *ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		treeWidth := int(float64(m.width)*m.splitRatio) - 2
		resizeMsg := tea.WindowSizeMsg{
			Width:  treeWidth,
			Height: m.height - 4,
		}
		treeModel, cmd := m.TuiTreeModel.Update(resizeMsg)
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[plan.FilePlan])

		rightWidth := m.width - treeWidth
		m.detailsViewport.Width = rightWidth - 6
		m.detailsViewport.Height = m.height - 4 - 4

		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit

		case "tab":
			m.detailsFocused = !m.detailsFocused
			return m, nil

		case "up":
			if m.detailsFocused {
				m.detailsViewport.ScrollUp(1)
				return m, nil
			}

		case "down":
			if m.detailsFocused {
				m.detailsViewport.ScrollDown(1)
				return m, nil
			}

		case "pgup":
			if m.detailsFocused {
				m.detailsViewport.HalfPageUp()
				return m, nil
			}

		case "pgdown":
			if m.detailsFocused {
				m.detailsViewport.HalfPageDown()
				return m, nil
			}

		case "enter":
			if m.confirming {
				m.applyInProgress = true
				m.confirming = false
				return m, m.performApply()
			}
			if !m.applyInProgress && !m.applyComplete {
				m.confirming = true
			}
			return m, nil

		case "n", "N":
			if m.confirming {
				m.confirming = false
			}
			return m, nil
		}

	case ApplyCompleteMsg:
		m.applyInProgress = false
		m.applyComplete = true
		m.applied = msg.applied
		m.skipped = msg.skipped
		m.failed = msg.failed
		return m, nil
	}

	if !m.confirming && !m.applyInProgress && !m.detailsFocused {
		treeModel, cmd := m.TuiTreeModel.Update(msg)
		m.TuiTreeModel = treeModel.(*treeview.TuiTreeModel[plan.FilePlan])
		return m, cmd
	}

	return m, nil
}

func (m *ReviewModel) View() string {
	var b strings.Builder

	header := m.theme.HeaderStyle().Width(m.width).Render("Kometa Resolve - Planned Changes")
	b.WriteString(header)
	b.WriteByte('\n')

	switch {
	case m.applyComplete:
		resultText := fmt.Sprintf("Apply completed: %d applied, %d skipped, %d failed",
			m.applied, m.skipped, m.failed)
		b.WriteString(m.theme.StatusBarStyle().Width(m.width).Render(resultText))
		b.WriteByte('\n')

		status := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			Foreground(m.theme.Colors().Muted).
			Render("Press 'Ctrl+C' or 'esc' to exit")
		b.WriteString(status)

	case m.applyInProgress:
		b.WriteString(m.theme.StatusBarStyle().Width(m.width).Render("Applying changes..."))
		b.WriteByte('\n')

	case m.confirming:
		b.WriteString(m.renderConfirmation())

	default:
		b.WriteString(m.renderMainView())
	}

	return b.String()
}

func (m *ReviewModel) renderMainView() string {
	leftWidth := int(float64(m.width) * m.splitRatio)
	rightWidth := m.width - leftWidth

	leftPanel := m.renderFileList(leftWidth, m.height-3)
	rightPanel := m.renderPlanDetails(rightWidth, m.height-3)

	content := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	focusInfo := "Tab: Details Focus | "
	if m.detailsFocused {
		focusInfo = "Tab: List Focus | "
	}
	instruction := focusInfo + "↑↓ Navigate | Enter: Apply All | Esc/Ctrl+C: Quit"
	instructionStyle := lipgloss.NewStyle().
		Italic(true).
		Width(m.width).
		Align(lipgloss.Center).
		Foreground(m.theme.Colors().Muted).
		Render(instruction)

	return content + "\n" + instructionStyle
}

func (m *ReviewModel) renderFileList(width, height int) string {
	colors := m.theme.Colors()
	borderStyle := m.sizedPanel(width, height, colors.Primary)
	titleWidth := width - 4
	if titleWidth < 0 {
		titleWidth = width
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Primary).
		Width(titleWidth).
		Align(lipgloss.Center).
		Render("Files")

	return borderStyle.Render(title + "\n" + m.TuiTreeModel.View())
}

func (m *ReviewModel) renderPlanDetails(width, height int) string {
	focusedNode := m.TuiTreeModel.Tree.GetFocusedNode()
	if focusedNode != nil {
		m.detailsViewport.SetContent(m.formatPlanDetails(*focusedNode.Data(), m.detailsViewport.Width))
	} else {
		empty := lipgloss.NewStyle().
			Italic(true).
			Foreground(m.theme.Colors().Muted).
			Render("Select a file to view its planned changes")
		m.detailsViewport.SetContent(empty)
	}

	colors := m.theme.Colors()
	borderStyle := m.sizedPanel(width, height, colors.Secondary)

	titleWidth := width - 4
	if titleWidth < 0 {
		titleWidth = width
	}
	scrollIndicator := ""
	if m.detailsViewport.TotalLineCount() > m.detailsViewport.Height {
		scrollIndicator = " [Tab to scroll]"
		if m.detailsFocused {
			scrollIndicator = " [Use Tab+↑↓]"
		}
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Secondary).
		Width(titleWidth).
		Align(lipgloss.Center).
		Render("Changes" + scrollIndicator)

	fullContent := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		m.detailsViewport.View(),
	)

	return borderStyle.Render(fullContent)
}

func (m *ReviewModel) formatPlanDetails(fp plan.FilePlan, width int) string {
	var b strings.Builder
	colors := m.theme.Colors()

	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(colors.Accent)
	valueStyle := lipgloss.NewStyle().Foreground(colors.Primary)

	b.WriteString(labelStyle.Render("File: "))
	b.WriteString(valueStyle.Render(runewidth.Truncate(fp.File, max(width-8, 8), "...")))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Sets: "))
	b.WriteString(valueStyle.Render(strings.Join(fp.SetIDs, ", ")))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render(fmt.Sprintf("Changes (%d):", len(fp.Changes))))
	b.WriteString("\n")

	indent := lipgloss.NewStyle().MarginLeft(2)
	for _, c := range fp.Changes {
		icon := m.theme.Icon("probe")
		if c.Probe != nil {
			if c.Probe.OK() {
				icon = m.theme.Icon("check")
			} else {
				icon = m.theme.Icon("error")
			}
		}
		line := fmt.Sprintf("%s %s", icon, strings.Join(c.Path, "."))
		if c.Probe != nil && c.Probe.Status != 0 {
			line += fmt.Sprintf(" (probe %d)", c.Probe.Status)
		}
		b.WriteString(indent.Render(valueStyle.Render(runewidth.Truncate(line, max(width-4, 8), "..."))))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *ReviewModel) renderConfirmation() string {
	colors := m.theme.Colors()
	confirmStyle := m.theme.PanelStyle().
		BorderForeground(colors.Accent).
		Padding(1, 2).
		Width(60).
		Align(lipgloss.Center).
		Background(colors.Background)

	files, changes := 0, 0
	for _, node := range m.TuiTreeModel.Tree.Nodes() {
		files++
		changes += len(node.Data().Changes)
	}

	confirmText := fmt.Sprintf(
		"Confirm Apply\n\n"+
			"Files: %d\n"+
			"Changes: %d\n\n"+
			"This will rewrite the listed metadata files in place.\n\n"+
			"Press ENTER to confirm or 'n' to cancel",
		files, changes)

	centerStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center)

	return centerStyle.Render(confirmStyle.Render(confirmText))
}

func (m *ReviewModel) sizedPanel(width, height int, borderColor lipgloss.Color) lipgloss.Style {
	style := m.theme.PanelStyle()
	if borderColor != "" {
		style = style.BorderForeground(borderColor)
	}
	if width > 0 {
		contentWidth := width - style.GetHorizontalFrameSize()
		if contentWidth < 0 {
			contentWidth = 0
		}
		style = style.Width(contentWidth)
	}
	if height > 0 {
		contentHeight := height - style.GetVerticalFrameSize()
		if contentHeight < 0 {
			contentHeight = 0
		}
		style = style.Height(contentHeight)
	}
	return style.Padding(0, 1)
}

func (m *ReviewModel) performApply() tea.Cmd {
	return func() tea.Msg {
		result := m.applyFn()
		applied, skipped, failed := result.Counts()
		return ApplyCompleteMsg{applied: applied, skipped: skipped, failed: failed}
	}
}
