package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/store"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrCyan      = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// column header colors, in column order
var columnColors = []lipgloss.AdaptiveColor{clrYellow, clrBlue, clrGreen}

// --- Styles ---
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle   = lipgloss.NewStyle().Foreground(clrDim)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(0, 1)

	columnHoverStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(clrHighlight).
				Padding(0, 1)

	deleteZoneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrRed).
			Foreground(clrRed).
			Padding(0, 1)

	deleteZoneHoverStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(clrRed).
				Foreground(clrRed).
				Bold(true).
				Padding(0, 1)

	cardSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	cardDraggedStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrCyan).Reverse(true)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(clrYellow)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.screen {
	case screenBoard:
		content = m.viewBoard()
	case screenDetail:
		content = m.viewDetail()
	case screenDiagnostic:
		content = m.viewDiagnostic()
	}

	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}
	return content
}

// --- Board ---

func (m Model) viewBoard() string {
	var b strings.Builder

	header := titleStyle.Render("tablero")
	if m.board != nil {
		header += dimStyle.Render(fmt.Sprintf(" · %d tasks", m.board.Len()))
	}
	if m.loading {
		header += dimStyle.Render(" · loading...")
	}
	b.WriteString(header + "\n\n")

	if m.board == nil {
		if !m.loading {
			b.WriteString(dimStyle.Render("  Board not loaded. Press ") +
				footerKeyStyle.Render("R") + dimStyle.Render(" to retry.\n"))
		}
		b.WriteString(m.statusLine())
		return b.String()
	}

	n := len(m.board.Columns)
	slots := n
	if m.dragging {
		slots++
	}
	colWidth := 32
	if m.width > 0 {
		colWidth = (m.width - 2*slots) / slots
		if colWidth < 18 {
			colWidth = 18
		}
	}

	dragged := ""
	if s, ok := m.drag.Active(); ok {
		dragged = s.TaskID
	}

	var cols []string
	for i, label := range m.board.Labels {
		cols = append(cols, m.renderColumn(i, label, colWidth, dragged))
	}
	if m.dragging {
		style := deleteZoneStyle
		if m.inDeleteZone() {
			style = deleteZoneHoverStyle
		}
		cols = append(cols, style.Width(colWidth).Render("🗑  Drop here to delete"))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")

	if m.menuOpen {
		b.WriteString(m.viewMenu())
	}
	if m.unplacedWarning != "" {
		b.WriteString(warnStyle.Render("  ⚠ "+m.unplacedWarning) + "\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.boardFooter())
	return b.String()
}

func (m Model) renderColumn(i int, label string, width int, dragged string) string {
	var c strings.Builder

	clr := clrHighlight
	if i < len(columnColors) {
		clr = columnColors[i]
	}
	cards := m.board.Columns[i]
	c.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clr).Render(label))
	c.WriteString(dimStyle.Render(fmt.Sprintf(" (%d)", len(cards))) + "\n\n")

	if len(cards) == 0 {
		c.WriteString(dimStyle.Render("—") + "\n")
	}
	for row, card := range cards {
		selected := !m.dragging && i == m.cursorCol && row == m.cursorRow
		c.WriteString(m.renderCard(card, selected, card.ID == dragged, width-4) + "\n")
	}

	style := columnStyle
	if m.dragging && i == m.hoverCol {
		style = columnHoverStyle
	}
	return style.Width(width).Render(c.String())
}

func (m Model) renderCard(card board.Card, selected, dragged bool, width int) string {
	cursor := "  "
	if selected {
		cursor = "▸ "
	}
	title := truncate(card.Title, width-2)
	line := cursor + title
	switch {
	case dragged:
		line = cardDraggedStyle.Render(line)
	case selected:
		line = cardSelectedStyle.Render(line)
	}
	if card.Description != "" {
		line += "\n  " + dimStyle.Render(truncate(card.Description, width-2))
	}
	return line
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString("  " + dimStyle.Render("Actions:") + " ")
	for i, item := range menuItems {
		if i == m.menuCursor {
			b.WriteString(cardSelectedStyle.Render("[" + item + "]"))
		} else {
			b.WriteString(dimStyle.Render(" " + item + " "))
		}
		b.WriteString(" ")
	}
	return b.String() + "\n"
}

func (m Model) statusLine() string {
	if m.statusMsg == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render("  "+m.statusMsg) + "\n"
	}
	return statusStyle.Render("  "+m.statusMsg) + "\n"
}

func (m Model) boardFooter() string {
	var keys []struct{ key, desc string }
	switch {
	case m.dragging:
		keys = []struct{ key, desc string }{
			{"←→", "choose column"},
			{"enter", "drop"},
			{"esc", "cancel"},
		}
	case m.menuOpen:
		keys = []struct{ key, desc string }{
			{"↑↓", "choose"},
			{"enter", "run"},
			{"esc", "close"},
		}
	default:
		keys = []struct{ key, desc string }{
			{"↑↓←→", "navigate"},
			{"space", "pick up"},
			{"enter", "details"},
			{"m", "menu"},
			{"c", "new"},
			{"e", "edit"},
			{"x", "delete"},
			{"D", "last error"},
			{"R", "refresh"},
			{"q", "quit"},
		}
	}
	return renderFooter(keys)
}

// --- Detail ---

func (m Model) viewDetail() string {
	var b strings.Builder
	title := "Task"
	if m.detail != nil {
		title = m.detail.Title
	}
	b.WriteString(titleStyle.Render(title) + "  " + dimStyle.Render("esc back") + "\n\n")
	b.WriteString(m.detailViewport.View())
	b.WriteString("\n\n")
	b.WriteString(m.statusLine())

	keys := []struct{ key, desc string }{
		{"↑↓", "scroll"},
		{"e", "edit"},
		{"x", "delete"},
		{"esc", "back"},
	}
	b.WriteString(renderFooter(keys))
	return b.String()
}

func renderHistory(c board.Card, h History) string {
	var b strings.Builder
	idStyle := lipgloss.NewStyle().Foreground(clrCyan)

	b.WriteString(idStyle.Render(c.ID) + "\n")
	b.WriteString(fmt.Sprintf("Status:  %s %s\n", c.Label, dimStyle.Render("("+c.Backend+")")))
	if c.Description != "" {
		b.WriteString("\n" + c.Description + "\n")
	}

	if h == nil {
		return b.String()
	}
	events, err := h.GetEvents(c.ID)
	if err != nil {
		b.WriteString("\n" + errorStyle.Render("history unavailable: "+err.Error()) + "\n")
		return b.String()
	}
	if len(events) == 0 {
		return b.String()
	}

	b.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render("Log:") + "\n")
	for _, ev := range events {
		ts := dimStyle.Render(ev.Timestamp.Local().Format("2006-01-02 15:04"))
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, eventKindStyle(ev.Kind).Render(string(ev.Kind)), ev.Content))
	}
	return b.String()
}

func eventKindStyle(k store.EventKind) lipgloss.Style {
	switch k {
	case store.EventMoveFailed, store.EventFailed:
		return lipgloss.NewStyle().Foreground(clrRed)
	case store.EventCorrected:
		return lipgloss.NewStyle().Foreground(clrYellow)
	case store.EventDeleted:
		return dimStyle
	default:
		return lipgloss.NewStyle().Foreground(clrGreen)
	}
}

// --- Diagnostic ---

func (m Model) viewDiagnostic() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Last server response") + "\n\n")
	b.WriteString(m.diagViewport.View())
	b.WriteString("\n\n")

	keys := []struct{ key, desc string }{
		{"↑↓", "scroll"},
		{"esc", "back"},
	}
	b.WriteString(renderFooter(keys))
	return b.String()
}

func renderDiagnostic(d board.Diagnostic) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("%s %d", d.Method, d.StatusCode)) + "\n")
	if d.URL != "" {
		b.WriteString(dimStyle.Render(d.URL) + "\n")
	}
	if d.TaskID != "" {
		b.WriteString(dimStyle.Render("task "+d.TaskID) + "\n")
	}
	b.WriteString("\n" + d.Body + "\n")
	return b.String()
}

// --- Popups ---

func (m Model) overlayPopup(bg string) string {
	var popup string

	switch m.popup {
	case popupCreate:
		popup = m.viewFormPopup("New task")
	case popupEdit:
		popup = m.viewFormPopup("Edit task")
	case popupCorrect:
		popup = m.viewCorrectPopup()
	case popupConfirmDelete:
		popup = m.viewConfirmDeletePopup()
	default:
		return bg
	}

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	return popup
}

func (m Model) viewFormPopup(heading string) string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Render(heading) + "\n\n")
	b.WriteString("Title:\n")
	b.WriteString(m.textInput.View() + "\n\n")
	b.WriteString("Description:\n")
	b.WriteString(m.textInput2.View() + "\n\n")

	labels := m.labels()
	label := ""
	if m.formLabel < len(labels) {
		label = labels[m.formLabel]
	}
	b.WriteString(fmt.Sprintf("Status: %s\n\n", lipgloss.NewStyle().Bold(true).Render(label)))
	b.WriteString(footerDescStyle.Render("enter save • tab switch • ctrl+p status • esc cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewCorrectPopup() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrYellow).Render("Status not accepted") + "\n\n")
	if r, ok := m.pending.(*correctionRequest); ok {
		b.WriteString(fmt.Sprintf("The server rejected %q for column %q.\n",
			r.rejected, r.label))
	}
	b.WriteString("Type the exact value the server expects.\nIt will be remembered for this column.\n\n")
	b.WriteString(m.textInput.View() + "\n\n")
	b.WriteString(footerDescStyle.Render("enter retry • esc give up"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) viewConfirmDeletePopup() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(clrRed).Render("Delete task") + "\n\n")
	if r, ok := m.pending.(*confirmRequest); ok && r.title != "" {
		b.WriteString(fmt.Sprintf("%q\n", r.title))
	}
	b.WriteString(dimStyle.Render(m.popupTaskID) + "\n\n")
	b.WriteString("This cannot be undone.\n\n")
	b.WriteString(footerKeyStyle.Render("y") + footerDescStyle.Render(" delete  ") +
		footerKeyStyle.Render("n") + footerDescStyle.Render(" cancel"))

	return m.popupBoxStyle().Render(b.String())
}

func (m Model) popupBoxStyle() lipgloss.Style {
	w := 60
	if m.width > 0 {
		w = m.width - 12
		if w < 42 {
			w = 42
		}
		if w > 84 {
			w = 84
		}
	}
	return popupStyle.Width(w)
}

// --- Shared helpers ---

func renderFooter(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		key := footerKeyStyle.Render(k.key)
		desc := footerDescStyle.Render(k.desc)
		parts = append(parts, key+" "+desc)
	}
	return "  " + strings.Join(parts, "  ")
}

func truncate(s string, n int) string {
	if n <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
