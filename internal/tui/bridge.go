package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/tablero/internal/board"
)

// Bridge lets operations running in tea.Cmd goroutines ask the user a
// question and block until the model answers it. It implements
// board.Corrector, board.Confirmer and board.Reporter.
type Bridge struct {
	requests chan any
}

// NewBridge creates a bridge.
func NewBridge() *Bridge {
	return &Bridge{requests: make(chan any, 8)}
}

type correctionReply struct {
	value string
	ok    bool
}

type correctionRequest struct {
	label    string
	rejected string
	reply    chan correctionReply
}

type confirmRequest struct {
	id    string
	title string
	reply chan bool
}

type diagnosticMsg board.Diagnostic

// CorrectStatus implements board.Corrector.
func (b *Bridge) CorrectStatus(ctx context.Context, label, rejected string) (string, bool, error) {
	req := &correctionRequest{label: label, rejected: rejected, reply: make(chan correctionReply, 1)}
	select {
	case b.requests <- req:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.value, r.ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// ConfirmDelete implements board.Confirmer.
func (b *Bridge) ConfirmDelete(ctx context.Context, id, title string) (bool, error) {
	req := &confirmRequest{id: id, title: title, reply: make(chan bool, 1)}
	select {
	case b.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Diagnostic implements board.Reporter. It never blocks: when nobody
// is draining the bridge (the program has quit) the diagnostic is
// logged and dropped.
func (b *Bridge) Diagnostic(d board.Diagnostic) {
	select {
	case b.requests <- diagnosticMsg(d):
	default:
		log.WithFields(log.Fields{
			"task":   d.TaskID,
			"status": d.StatusCode,
		}).Warn("diagnostic dropped: bridge full")
	}
}

// Wait returns a command that delivers the next request to Update. The
// model re-arms it after every delivery.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.requests
	}
}
