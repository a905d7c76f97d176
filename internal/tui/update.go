package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/tablero/internal/board"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If popup is active, handle popup keys first.
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vw := m.width - 4
		vh := m.height - 6
		if vw < 20 {
			vw = 20
		}
		if vh < 6 {
			vh = 6
		}
		m.detailViewport.Width = vw
		m.detailViewport.Height = vh
		m.diagViewport.Width = vw
		m.diagViewport.Height = vh
		return m, nil

	case boardLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.setError("Failed to load tasks: " + msg.err.Error())
			return m, nil
		}
		m.applyBoard(msg.board)
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			if errors.Is(msg.err, board.ErrCancelled) {
				m.setStatus("Cancelled")
			} else {
				m.setError("Error: " + msg.err.Error())
			}
			return m, nil
		}
		if msg.board != nil {
			m.applyBoard(msg.board)
		}
		m.setStatus(msg.ok)
		return m, nil

	case historyLoadedMsg:
		m.detailViewport.SetContent(msg.content)
		m.detailViewport.GotoTop()
		return m, nil

	case *correctionRequest, *confirmRequest:
		cmd := m.enqueue(msg)
		return m, tea.Batch(cmd, m.bridge.Wait())

	case diagnosticMsg:
		d := board.Diagnostic(msg)
		m.lastDiagnostic = &d
		m.diagViewport.SetContent(renderDiagnostic(d))
		m.diagViewport.GotoTop()
		return m, m.bridge.Wait()

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		// Never reload under an active drag or an open question.
		if !m.loading && !m.dragging && m.popup == popupNone {
			m.loading = true
			cmds = append(cmds, m.loadBoard())
		}
		return m, tea.Batch(cmds...)
	}

	switch m.screen {
	case screenDetail:
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	case screenDiagnostic:
		var cmd tea.Cmd
		m.diagViewport, cmd = m.diagViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applyBoard(b *board.Board) {
	m.board = b
	m.clampCursor()
	m.unplacedWarning = ""
	if n := len(b.Unplaced); n > 0 {
		m.unplacedWarning = fmt.Sprintf("%d task(s) have a status with no column", n)
	}
	if m.detail != nil {
		if c, ok := b.Find(m.detail.ID); ok {
			m.detail = &c
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.screen {
	case screenDetail:
		return m.handleDetailKey(msg)
	case screenDiagnostic:
		return m.handleDiagnosticKey(msg)
	}

	if m.dragging {
		return m.handleDragKey(msg)
	}
	if m.menuOpen {
		return m.handleMenuKey(msg)
	}
	return m.handleBoardKey(msg)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.answerPending(false)
	for _, req := range m.queue {
		m.pending = req
		m.answerPending(false)
	}
	m.queue = nil
	if m.dragging {
		m.endDrag()
	}
	m.quitting = true
	return m, tea.Quit
}

// --- Board keys ---

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()

	case "j", "down":
		m.cursorRow++
		m.clampCursor()
	case "k", "up":
		m.cursorRow--
		m.clampCursor()
	case "h", "left":
		m.cursorCol--
		m.clampCursor()
	case "l", "right":
		m.cursorCol++
		m.clampCursor()

	// Pick up the selected card.
	case " ":
		return m.pickUp(m.selectedCard())

	case "enter":
		if c := m.selectedCard(); c != nil {
			return m.openDetail(*c)
		}

	case "m":
		if c := m.selectedCard(); c != nil {
			m.drag.PointerDown(c.ID, true)
			m.menuOpen = true
			m.menuCursor = 0
			m.menuTaskID = c.ID
		}

	case "c", "ctrl+n":
		return m.openForm(popupCreate, nil)

	case "e":
		if c := m.selectedCard(); c != nil {
			return m.openForm(popupEdit, c)
		}

	case "x", "delete":
		if c := m.selectedCard(); c != nil {
			return m, m.doDelete(c.ID)
		}

	case "D":
		m.screen = screenDiagnostic
		if m.lastDiagnostic == nil {
			m.diagViewport.SetContent(dimStyle.Render("No server errors yet."))
		}

	case "R":
		m.loading = true
		return m, m.loadBoard()
	}
	return m, nil
}

func (m Model) pickUp(c *board.Card) (tea.Model, tea.Cmd) {
	if c == nil {
		return m, nil
	}
	if _, err := m.drag.Start(c.ID, m.transfer); err != nil {
		m.setError(err.Error())
		return m, nil
	}
	m.dragging = true
	m.hoverCol = m.cursorCol
	m.setStatus("Dragging \"" + c.Title + "\": ←→ choose, enter drop, esc cancel")
	return m, nil
}

// --- Drag keys ---

func (m Model) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "left":
		if m.hoverCol > 0 {
			m.hoverCol--
		}
	case "l", "right":
		// One past the last column is the delete zone.
		if m.hoverCol < m.numColumns() {
			m.hoverCol++
		}
	case "enter", " ":
		return m.drop()
	case "esc", "q":
		m.endDrag()
		m.setStatus("Drag cancelled")
	}
	return m, nil
}

func (m Model) drop() (tea.Model, tea.Cmd) {
	id := m.drag.Drop(m.transfer)
	toDelete := m.inDeleteZone()
	hover := m.hoverCol
	m.endDrag()

	if id == "" {
		m.setError("Nothing to drop")
		return m, nil
	}
	if toDelete {
		return m, m.doDelete(id)
	}
	label := m.board.Labels[hover]
	m.cursorCol = hover
	m.setStatus("Moving to " + label + "...")
	return m, m.doMove(id, label)
}

func (m *Model) endDrag() {
	m.drag.End()
	m.transfer.Clear()
	m.dragging = false
}

// --- Action menu keys ---

func (m Model) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.menuCursor < len(menuItems)-1 {
			m.menuCursor++
		}
	case "k", "up":
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case " ":
		// Pressing inside the menu never starts a drag.
		if _, err := m.drag.Start(m.menuTaskID, m.transfer); err != nil {
			m.setError("Close the menu to move this card")
		}
	case "esc", "m", "q":
		m.closeMenu()
	case "enter":
		id := m.menuTaskID
		item := menuItems[m.menuCursor]
		m.closeMenu()
		c, ok := m.board.Find(id)
		if !ok {
			return m, nil
		}
		switch item {
		case "Edit":
			return m.openForm(popupEdit, &c)
		case "Delete":
			return m, m.doDelete(id)
		case "Details":
			return m.openDetail(c)
		}
	}
	return m, nil
}

func (m *Model) closeMenu() {
	m.drag.PointerUp()
	m.menuOpen = false
	m.menuTaskID = ""
}

// --- Detail and diagnostic screens ---

func (m Model) openDetail(c board.Card) (tea.Model, tea.Cmd) {
	m.detail = &c
	m.screen = screenDetail
	m.detailViewport.SetContent(renderHistory(c, nil))
	return m, m.loadHistory(c)
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "backspace":
		m.screen = screenBoard
		m.detail = nil
		return m, nil
	case "e":
		if m.detail != nil {
			c := *m.detail
			return m.openForm(popupEdit, &c)
		}
	case "x":
		if m.detail != nil {
			id := m.detail.ID
			m.screen = screenBoard
			m.detail = nil
			return m, m.doDelete(id)
		}
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m Model) handleDiagnosticKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "backspace", "D":
		m.screen = screenBoard
		return m, nil
	}

	var cmd tea.Cmd
	m.diagViewport, cmd = m.diagViewport.Update(msg)
	return m, cmd
}

// --- Requests from running operations ---

func (m *Model) enqueue(req any) tea.Cmd {
	if m.popup != popupNone || m.pending != nil {
		m.queue = append(m.queue, req)
		return nil
	}
	return m.showRequest(req)
}

func (m *Model) showRequest(req any) tea.Cmd {
	m.pending = req
	switch r := req.(type) {
	case *correctionRequest:
		m.popup = popupCorrect
		m.textInput.Reset()
		m.textInput.Placeholder = "Value the server accepts..."
		m.textInput.SetValue(r.label)
		m.textInput.Focus()
		return textinput.Blink
	case *confirmRequest:
		m.popup = popupConfirmDelete
		m.popupTaskID = r.id
	}
	return nil
}

// answerPending replies to the request behind the open popup.
func (m *Model) answerPending(ok bool) {
	switch r := m.pending.(type) {
	case *correctionRequest:
		value := ""
		if ok {
			value = m.textInput.Value()
		}
		r.reply <- correctionReply{value: value, ok: ok && value != ""}
	case *confirmRequest:
		r.reply <- ok
	}
	m.pending = nil
}

// closePopup hides the popup and shows the next queued request, if any.
func (m *Model) closePopup() tea.Cmd {
	m.popup = popupNone
	m.textInput.Blur()
	m.textInput2.Blur()
	if len(m.queue) == 0 {
		return nil
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	return m.showRequest(next)
}

// --- Popup keys ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupCreate, popupEdit:
		return m.handleFormPopup(msg)
	case popupCorrect:
		return m.handleCorrectPopup(msg)
	case popupConfirmDelete:
		return m.handleConfirmDeletePopup(msg)
	}
	return m, nil
}

func (m Model) openForm(kind popupKind, c *board.Card) (tea.Model, tea.Cmd) {
	m.popup = kind
	m.textInput.Reset()
	m.textInput.Placeholder = "Task title..."
	m.textInput2.Reset()
	m.formLabel = 0
	m.popupTaskID = ""
	if c != nil {
		m.popupTaskID = c.ID
		m.textInput.SetValue(c.Title)
		m.textInput2.SetValue(c.Description)
		for i, l := range m.labels() {
			if l == c.Label {
				m.formLabel = i
			}
		}
	}
	m.textInput.Focus()
	m.textInput2.Blur()
	m.inputFocused = 0
	return m, textinput.Blink
}

func (m Model) labels() []string {
	if m.board != nil {
		return m.board.Labels
	}
	return m.rec.Mapper().Labels()
}

func (m Model) handleFormPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.closePopup()
	case "tab":
		if m.inputFocused == 0 {
			m.textInput.Blur()
			m.textInput2.Focus()
			m.inputFocused = 1
		} else {
			m.textInput2.Blur()
			m.textInput.Focus()
			m.inputFocused = 0
		}
		return m, textinput.Blink
	case "ctrl+p":
		m.formLabel = (m.formLabel + 1) % len(m.labels())
		return m, nil
	case "enter":
		in := board.Input{
			Title:       m.textInput.Value(),
			Description: m.textInput2.Value(),
			Status:      m.labels()[m.formLabel],
			User:        m.opts.UserID,
		}
		if in.Title == "" {
			m.setError("Title cannot be empty")
			return m, nil
		}
		kind, id := m.popup, m.popupTaskID
		cmd := m.closePopup()
		if kind == popupEdit {
			return m, tea.Batch(cmd, m.doEdit(id, in))
		}
		return m, tea.Batch(cmd, m.doCreate(in))
	}

	var cmd tea.Cmd
	if m.inputFocused == 0 {
		m.textInput, cmd = m.textInput.Update(msg)
	} else {
		m.textInput2, cmd = m.textInput2.Update(msg)
	}
	return m, cmd
}

func (m Model) handleCorrectPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.answerPending(false)
		return m, m.closePopup()
	case "enter":
		m.answerPending(true)
		return m, m.closePopup()
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.answerPending(true)
		return m, m.closePopup()
	case "n", "esc":
		m.answerPending(false)
		return m, m.closePopup()
	}
	return m, nil
}
