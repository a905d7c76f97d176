// Package drag tracks which task is being dragged across the board.
//
// The id travels two ways: through the transfer channel handed to the
// drop target, and through a session owned by the controller. Drop
// prefers the transfer and falls back to the session, so a target that
// cannot read the transfer still gets the id.
package drag

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/tablero/internal/taskid"
)

// ErrSuppressed is returned by Start while a pointer-down that began
// inside a task's action menu is still held.
var ErrSuppressed = errors.New("drag suppressed: pointer is on the task menu")

// Transfer is the drag-data channel between source and drop target.
type Transfer interface {
	SetData(string)
	Data() string
}

// Session is the ephemeral record of the current drag.
type Session struct {
	ID        string
	TaskID    string
	StartedAt time.Time
}

// menuHold remembers a task whose dragging is suspended.
type menuHold struct {
	taskID    string
	draggable bool // state before the hold, restored on release
}

// Controller is safe for concurrent use.
type Controller struct {
	mu           sync.Mutex
	session      *Session
	hold         *menuHold
	nonDraggable map[string]bool
	now          func() time.Time
}

// New creates a controller with no active drag.
func New() *Controller {
	return &Controller{nonDraggable: map[string]bool{}, now: time.Now}
}

// Draggable reports whether the task's card may start a drag.
func (c *Controller) Draggable(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.nonDraggable[taskID]
}

// SetDraggable sets the resting draggable state of a card.
func (c *Controller) SetDraggable(taskID string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hold != nil && c.hold.taskID == taskID {
		c.hold.draggable = on
		return
	}
	c.setLocked(taskID, on)
}

func (c *Controller) setLocked(taskID string, on bool) {
	if on {
		delete(c.nonDraggable, taskID)
	} else {
		c.nonDraggable[taskID] = true
	}
}

// PointerDown is called when the pointer goes down on a card. When it
// lands inside the card's action menu the card stops being draggable
// until PointerUp or PointerCancel.
func (c *Controller) PointerDown(taskID string, inMenu bool) {
	if !inMenu {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hold != nil {
		c.releaseLocked()
	}
	c.hold = &menuHold{taskID: taskID, draggable: !c.nonDraggable[taskID]}
	c.setLocked(taskID, false)
}

// PointerUp restores the prior draggable state after a menu press.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// PointerCancel behaves like PointerUp.
func (c *Controller) PointerCancel() { c.PointerUp() }

func (c *Controller) releaseLocked() {
	if c.hold == nil {
		return
	}
	c.setLocked(c.hold.taskID, c.hold.draggable)
	c.hold = nil
}

// Start begins a drag of taskID, writing the id into t (which may be
// nil) and into the controller's session.
func (c *Controller) Start(taskID string, t Transfer) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nonDraggable[taskID] {
		log.WithField("task", taskID).Debug("drag start suppressed")
		return Session{}, ErrSuppressed
	}
	s := Session{ID: uuid.NewString(), TaskID: taskID, StartedAt: c.now()}
	c.session = &s
	if t != nil {
		t.SetData(taskID)
	}
	return s, nil
}

// Drop returns the dragged task id, preferring the transfer channel and
// falling back to the session. The session is consumed, so a second
// Drop without a new Start yields "" unless the transfer still carries
// an id. End may still be called.
func (c *Controller) Drop(t Transfer) string {
	id := ""
	if t != nil {
		id = t.Data()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" && c.session != nil {
		id = c.session.TaskID
		log.WithField("task", id).Debug("drop used session fallback")
	}
	c.session = nil
	return taskid.Sanitize(id)
}

// End clears the session. Safe to call whether or not a drop happened.
func (c *Controller) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

// Active returns the current session, if any.
func (c *Controller) Active() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// DataTransfer is an in-memory Transfer.
type DataTransfer struct {
	mu   sync.Mutex
	data string
}

// SetData replaces the carried id.
func (d *DataTransfer) SetData(s string) {
	d.mu.Lock()
	d.data = s
	d.mu.Unlock()
}

// Data returns the carried id, or "" when empty.
func (d *DataTransfer) Data() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

// Clear empties the transfer.
func (d *DataTransfer) Clear() { d.SetData("") }
