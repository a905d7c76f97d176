package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/drag"
	"github.com/imkarma/tablero/internal/store"
)

// screen represents which screen the TUI is showing.
type screen int

const (
	screenBoard      screen = iota // three columns (main)
	screenDetail                   // one task plus its local history
	screenDiagnostic               // last server answer, verbatim
)

// popupKind identifies which popup overlay is active.
type popupKind int

const (
	popupNone popupKind = iota
	popupCreate
	popupEdit
	popupCorrect       // enum correction asked by a running move
	popupConfirmDelete // delete confirmation asked by a running delete
)

var menuItems = []string{"Edit", "Delete", "Details"}

const refreshInterval = 30 * time.Second

// History is the local activity log.
type History interface {
	GetEvents(taskID string) ([]store.Event, error)
}

// Options configures the model.
type Options struct {
	DeleteMode board.DeleteMode
	UserID     string
	History    History
}

// Model is the top-level bubbletea model.
type Model struct {
	rec    *board.Reconciler
	drag   *drag.Controller
	bridge *Bridge
	opts   Options

	width  int
	height int

	screen screen
	board  *board.Board

	cursorCol int
	cursorRow int

	// Drag state. hoverCol == len(columns) is the delete zone.
	transfer *drag.DataTransfer
	dragging bool
	hoverCol int

	// Per-card action menu.
	menuOpen   bool
	menuCursor int
	menuTaskID string

	popup        popupKind
	popupTaskID  string
	textInput    textinput.Model
	textInput2   textinput.Model
	inputFocused int
	formLabel    int // status index in create/edit popups

	// Requests from running operations waiting for an answer.
	pending any
	queue   []any

	detail          *board.Card
	detailViewport  viewport.Model
	diagViewport    viewport.Model
	lastDiagnostic  *board.Diagnostic
	unplacedWarning string

	statusMsg  string
	statusErr  bool
	statusTime time.Time

	loading  bool
	quitting bool
}

// New creates the TUI model. The bridge must be the one wired into rec
// as its Corrector, Confirmer and Reporter.
func New(rec *board.Reconciler, bridge *Bridge, opts Options) Model {
	ti := textinput.New()
	ti.CharLimit = 120
	ti.Width = 50

	ti2 := textinput.New()
	ti2.Placeholder = "Description (optional)..."
	ti2.CharLimit = 500
	ti2.Width = 50

	return Model{
		rec:            rec,
		drag:           drag.New(),
		bridge:         bridge,
		opts:           opts,
		screen:         screenBoard,
		transfer:       &drag.DataTransfer{},
		textInput:      ti,
		textInput2:     ti2,
		detailViewport: viewport.New(80, 20),
		diagViewport:   viewport.New(80, 20),
		loading:        true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadBoard(), m.bridge.Wait(), tickCmd())
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type boardLoadedMsg struct {
	board *board.Board
	err   error
}

// opDoneMsg is the result of a mutation run off the UI goroutine.
type opDoneMsg struct {
	board *board.Board
	err   error
	ok    string
}

type historyLoadedMsg struct {
	content string
}

func (m Model) loadBoard() tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		b, err := rec.Load(context.Background())
		return boardLoadedMsg{board: b, err: err}
	}
}

func (m Model) doMove(id, label string) tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		b, err := rec.Move(context.Background(), id, label)
		return opDoneMsg{board: b, err: err, ok: "Moved to " + label}
	}
}

func (m Model) doDelete(id string) tea.Cmd {
	rec, mode := m.rec, m.opts.DeleteMode
	return func() tea.Msg {
		b, err := rec.Delete(context.Background(), id, mode)
		return opDoneMsg{board: b, err: err, ok: "Task deleted"}
	}
}

func (m Model) doCreate(in board.Input) tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		b, err := rec.Create(context.Background(), in)
		return opDoneMsg{board: b, err: err, ok: "Created: " + in.Title}
	}
}

func (m Model) doEdit(id string, in board.Input) tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		b, err := rec.Edit(context.Background(), id, in)
		return opDoneMsg{board: b, err: err, ok: "Saved: " + in.Title}
	}
}

func (m Model) loadHistory(c board.Card) tea.Cmd {
	h := m.opts.History
	return func() tea.Msg {
		return historyLoadedMsg{content: renderHistory(c, h)}
	}
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusErr = false
	m.statusTime = time.Now()
}

func (m *Model) setError(msg string) {
	m.statusMsg = msg
	m.statusErr = true
	m.statusTime = time.Now()
}

func (m *Model) numColumns() int {
	if m.board == nil {
		return 0
	}
	return len(m.board.Columns)
}

func (m *Model) clampCursor() {
	n := m.numColumns()
	if n == 0 {
		m.cursorCol, m.cursorRow = 0, 0
		return
	}
	if m.cursorCol < 0 {
		m.cursorCol = 0
	}
	if m.cursorCol >= n {
		m.cursorCol = n - 1
	}
	col := m.board.Columns[m.cursorCol]
	if m.cursorRow >= len(col) {
		m.cursorRow = len(col) - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
}

func (m *Model) selectedCard() *board.Card {
	if m.board == nil || m.cursorCol >= len(m.board.Columns) {
		return nil
	}
	col := m.board.Columns[m.cursorCol]
	if m.cursorRow < len(col) {
		c := col[m.cursorRow]
		return &c
	}
	return nil
}

func (m *Model) inDeleteZone() bool {
	return m.dragging && m.hoverCol == m.numColumns()
}
