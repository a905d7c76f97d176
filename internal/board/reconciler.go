// Package board keeps the rendered columns in step with the task API.
//
// Every confirmed mutation is followed by a full reload; nothing is
// changed locally before the server agrees, except the optional local
// removal after a successful delete.
package board

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imkarma/tablero/internal/api"
	"github.com/imkarma/tablero/internal/status"
	"github.com/imkarma/tablero/internal/store"
	"github.com/imkarma/tablero/internal/taskid"
)

// Repository is the remote task collection.
type Repository interface {
	ListTasks(ctx context.Context) ([]byte, error)
	CreateTask(ctx context.Context, in api.TaskInput) error
	UpdateTask(ctx context.Context, method, id string, body any) error
	DeleteTask(ctx context.Context, id string) error
}

// Corrector asks for the backend value to use for label after the
// server rejected the value sent. ok is false when the user gives up.
type Corrector interface {
	CorrectStatus(ctx context.Context, label, rejected string) (value string, ok bool, err error)
}

// Confirmer approves a delete. title may be empty when the card is not
// on the current board.
type Confirmer interface {
	ConfirmDelete(ctx context.Context, id, title string) (bool, error)
}

// Reporter receives the raw server answer of failed requests.
type Reporter interface {
	Diagnostic(d Diagnostic)
}

// Journal records what this client did to remote tasks.
type Journal interface {
	AddEvent(taskID string, kind store.EventKind, content string)
}

// DeleteMode chooses how the board catches up after a delete.
type DeleteMode int

const (
	DeleteReload DeleteMode = iota // full reload
	DeleteLocal                    // drop the card from the snapshot
)

// ParseDeleteMode maps the config value; unknown values reload.
func ParseDeleteMode(s string) DeleteMode {
	if s == "local" {
		return DeleteLocal
	}
	return DeleteReload
}

// Options wires the optional collaborators.
type Options struct {
	Corrector Corrector
	Confirmer Confirmer
	Reporter  Reporter
	Journal   Journal
}

// Reconciler is safe for concurrent use. Concurrent operations are not
// serialized; whichever reload completes last sets the snapshot.
type Reconciler struct {
	repo   Repository
	mapper *status.Mapper
	opts   Options
	now    func() time.Time

	mu      sync.RWMutex
	current *Board
}

// New creates a reconciler over repo using mapper for status names.
func New(repo Repository, mapper *status.Mapper, opts Options) *Reconciler {
	return &Reconciler{repo: repo, mapper: mapper, opts: opts, now: time.Now}
}

// Mapper returns the status mapper in use.
func (r *Reconciler) Mapper() *status.Mapper { return r.mapper }

// Snapshot returns the last loaded board, or nil before the first load.
func (r *Reconciler) Snapshot() *Board {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Reconciler) setCurrent(b *Board) {
	r.mu.Lock()
	r.current = b
	r.mu.Unlock()
}

// Load fetches every task and rebuilds the board.
func (r *Reconciler) Load(ctx context.Context) (*Board, error) {
	body, err := r.repo.ListTasks(ctx)
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) {
			msg := se.Message()
			if msg == "" {
				msg = fmt.Sprintf("Error %d", se.StatusCode)
			}
			return nil, fmt.Errorf("load tasks: %s", msg)
		}
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	tasks, err := decodeTaskList(body)
	if err != nil {
		return nil, err
	}
	b := render(tasks, r.mapper, r.now())
	if len(b.Unplaced) > 0 {
		log.WithField("count", len(b.Unplaced)).Warn("tasks with unknown status left off the board")
	}
	r.setCurrent(b)
	return b, nil
}

func validateID(id string) error {
	if id == "" {
		return &ValidationError{Field: "task id", Msg: "missing"}
	}
	if !taskid.Valid(id) {
		return &ValidationError{Field: "task id", Value: id, Msg: "expected 24 hex characters"}
	}
	return nil
}

// attempt is the outcome of a PATCH, with the PUT that followed a 404.
type attempt struct {
	patch    error
	put      error
	fellBack bool
}

func (a attempt) err() error {
	if a.fellBack {
		return a.put
	}
	return a.patch
}

// updateWithFallback PATCHes body and, when the server answers 404,
// PUTs the same body to the same URL.
func (r *Reconciler) updateWithFallback(ctx context.Context, id string, body any) attempt {
	var a attempt
	a.patch = r.repo.UpdateTask(ctx, http.MethodPatch, id, body)
	if a.patch == nil || !api.IsStatus(a.patch, http.StatusNotFound) {
		return a
	}
	log.WithField("task", id).Debug("PATCH answered 404, retrying with PUT")
	a.fellBack = true
	a.put = r.repo.UpdateTask(ctx, http.MethodPut, id, body)
	return a
}

// Move changes a task's status to the column label target.
func (r *Reconciler) Move(ctx context.Context, id, target string) (*Board, error) {
	id = taskid.Sanitize(id)
	if err := validateID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(target) == "" {
		return nil, &ValidationError{Field: "status", Msg: "missing"}
	}

	backend := r.mapper.ToBackend(target)
	entry := log.WithFields(log.Fields{"task": id, "label": target, "status": backend})
	entry.Debug("moving task")

	a := r.updateWithFallback(ctx, id, api.StatusUpdate{Status: backend})
	err := a.err()
	if err == nil {
		return r.afterMove(ctx, id, target, backend)
	}
	r.report(id, err)

	if a.fellBack && isInvalidEnum(a.patch, a.put) && r.opts.Corrector != nil {
		value, ok, cerr := r.opts.Corrector.CorrectStatus(ctx, target, backend)
		if cerr != nil {
			return nil, r.moveFailed(id, target, fmt.Errorf("status correction: %w", cerr))
		}
		value = strings.TrimSpace(value)
		if ok && value != "" {
			return r.retryCorrected(ctx, id, target, value)
		}
		entry.Info("status correction declined")
	}
	return nil, r.moveFailed(id, target, err)
}

// retryCorrected records the user's value and sends exactly one more PATCH.
func (r *Reconciler) retryCorrected(ctx context.Context, id, target, value string) (*Board, error) {
	if err := r.mapper.RecordOverride(target, value); err != nil {
		log.WithError(err).Warn("could not persist status override")
	}
	r.journal(id, store.EventCorrected, fmt.Sprintf("%s -> %s", target, value))

	err := r.repo.UpdateTask(ctx, http.MethodPatch, id, api.StatusUpdate{Status: value})
	if err != nil {
		r.report(id, err)
		return nil, r.moveFailed(id, target, err)
	}
	return r.afterMove(ctx, id, target, value)
}

func (r *Reconciler) afterMove(ctx context.Context, id, target, backend string) (*Board, error) {
	r.journal(id, store.EventMoved, fmt.Sprintf("%s (%s)", target, backend))
	b, err := r.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload after move: %w", err)
	}
	return b, nil
}

func (r *Reconciler) moveFailed(id, target string, err error) error {
	r.journal(id, store.EventMoveFailed, fmt.Sprintf("%s: %v", target, err))
	return fmt.Errorf("move %s: %w", id, err)
}

// Delete removes a task after the Confirmer approves.
func (r *Reconciler) Delete(ctx context.Context, id string, mode DeleteMode) (*Board, error) {
	id = taskid.Sanitize(id)
	if err := validateID(id); err != nil {
		return nil, err
	}

	title := ""
	if cur := r.Snapshot(); cur != nil {
		if c, ok := cur.Find(id); ok {
			title = c.Title
		}
	}
	if r.opts.Confirmer == nil {
		return nil, ErrCancelled
	}
	ok, err := r.opts.Confirmer.ConfirmDelete(ctx, id, title)
	if err != nil {
		return nil, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		return nil, ErrCancelled
	}

	if err := r.repo.DeleteTask(ctx, id); err != nil {
		r.report(id, err)
		r.journal(id, store.EventFailed, fmt.Sprintf("delete: %v", err))
		return nil, fmt.Errorf("delete %s: %w", id, err)
	}
	r.journal(id, store.EventDeleted, title)

	if mode == DeleteLocal {
		r.mu.Lock()
		if r.current != nil {
			b := r.current.without(id)
			r.current = b
			r.mu.Unlock()
			return b, nil
		}
		// Nothing loaded yet.
		r.mu.Unlock()
	}
	return r.Load(ctx)
}

// Input is a task as the user edits it; Status is a column label.
type Input struct {
	Title       string
	Description string
	Status      string
	User        string
}

func (r *Reconciler) toPayload(in Input) (api.TaskInput, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return api.TaskInput{}, &ValidationError{Field: "title", Msg: "required"}
	}
	label := in.Status
	if label == "" {
		label = r.mapper.Labels()[0]
	}
	return api.TaskInput{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      r.mapper.ToBackend(label),
		User:        in.User,
	}, nil
}

// Edit replaces a task's fields, falling back to PUT when PATCH is not
// routed.
func (r *Reconciler) Edit(ctx context.Context, id string, in Input) (*Board, error) {
	id = taskid.Sanitize(id)
	if err := validateID(id); err != nil {
		return nil, err
	}
	payload, err := r.toPayload(in)
	if err != nil {
		return nil, err
	}

	if err := r.updateWithFallback(ctx, id, payload).err(); err != nil {
		r.report(id, err)
		r.journal(id, store.EventFailed, fmt.Sprintf("edit: %v", err))
		return nil, fmt.Errorf("edit %s: %w", id, err)
	}
	r.journal(id, store.EventEdited, payload.Title)
	return r.Load(ctx)
}

// Create adds a task and reloads.
func (r *Reconciler) Create(ctx context.Context, in Input) (*Board, error) {
	payload, err := r.toPayload(in)
	if err != nil {
		return nil, err
	}
	if err := r.repo.CreateTask(ctx, payload); err != nil {
		r.report("", err)
		return nil, fmt.Errorf("create task: %w", err)
	}
	r.journal("", store.EventCreated, payload.Title)
	return r.Load(ctx)
}

func (r *Reconciler) report(id string, err error) {
	d, ok := diagnosticFor(id, err)
	if !ok {
		return
	}
	log.WithFields(log.Fields{
		"task":   id,
		"method": d.Method,
		"code":   d.StatusCode,
	}).Warn("server rejected request")
	if r.opts.Reporter != nil {
		r.opts.Reporter.Diagnostic(d)
	}
}

func (r *Reconciler) journal(id string, kind store.EventKind, content string) {
	if r.opts.Journal != nil {
		r.opts.Journal.AddEvent(id, kind, content)
	}
}
