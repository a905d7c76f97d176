package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imkarma/tablero/internal/api"
	"github.com/imkarma/tablero/internal/auth"
	"github.com/imkarma/tablero/internal/board"
	"github.com/imkarma/tablero/internal/config"
	"github.com/imkarma/tablero/internal/status"
	"github.com/imkarma/tablero/internal/store"
)

const workspaceDir = ".tablero"

// workspacePath returns the path to a file inside .tablero/.
func workspacePath(parts ...string) string {
	elems := append([]string{workspaceDir}, parts...)
	return filepath.Join(elems...)
}

// mustStore opens the store, returning an error if tablero is not initialized.
func mustStore() (*store.Store, error) {
	dbPath := workspacePath("tablero.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("tablero not initialized. Run: tablero init")
	}
	return store.New(dbPath)
}

// session bundles what most commands need.
type session struct {
	store  *store.Store
	cfg    *config.Config
	client *api.Client
	mapper *status.Mapper
}

func openSession() (*session, error) {
	s, err := mustStore()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(workspacePath("config.yaml"))
	if err != nil {
		s.Close()
		return nil, err
	}
	labels, defaults := cfg.StatusTable()
	mapper, err := status.New(labels, defaults, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	timeout := time.Duration(cfg.Timeout()) * time.Second
	log.WithField("api", cfg.BaseURL()).Debug("session opened")
	return &session{
		store:  s,
		cfg:    cfg,
		client: api.New(cfg.BaseURL(), s, timeout),
		mapper: mapper,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// reconciler builds a board reconciler journaling into the store.
// Interactive correction is dropped when the config disables it.
func (s *session) reconciler(opts board.Options) *board.Reconciler {
	if opts.Journal == nil {
		opts.Journal = s.store
	}
	if !s.cfg.CorrectionEnabled() {
		opts.Corrector = nil
	}
	return board.New(s.client, s.mapper, opts)
}

func (s *session) deleteMode() board.DeleteMode {
	return board.ParseDeleteMode(s.cfg.EffectiveDeleteMode())
}

// userID returns the stored user id, or one read from the token.
func (s *session) userID() string {
	if id, err := s.store.UserID(); err == nil && id != "" {
		return id
	}
	return auth.UserIDFromToken(s.store.Token())
}

// resolveLabel accepts a column label or its 1-based position.
func resolveLabel(m *status.Mapper, arg string) (string, error) {
	labels := m.Labels()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(labels) {
			return "", fmt.Errorf("column %d out of range 1-%d", n, len(labels))
		}
		return labels[n-1], nil
	}
	if m.IsLabel(arg) {
		return arg, nil
	}
	return "", fmt.Errorf("unknown column %q (one of: %q)", arg, labels)
}
