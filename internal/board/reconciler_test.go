package board

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/tablero/internal/api"
	"github.com/imkarma/tablero/internal/drag"
	"github.com/imkarma/tablero/internal/fakeapi"
	"github.com/imkarma/tablero/internal/status"
	"github.com/imkarma/tablero/internal/store"
)

var (
	labels   = []string{"Por hacer", "En progreso", "Completada"}
	defaults = map[string]string{
		"Por hacer":   "Por hacer",
		"En progreso": "Haciendo",
		"Completada":  "Hecho",
	}
)

const knownID = "507f1f77bcf86cd799439011"

type recorder struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
	events      []store.EventKind
}

func (r *recorder) Diagnostic(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics = append(r.diagnostics, d)
}

func (r *recorder) AddEvent(_ string, kind store.EventKind, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

type fixedCorrector struct {
	value string
	ok    bool
	calls int
}

func (f *fixedCorrector) CorrectStatus(_ context.Context, _, _ string) (string, bool, error) {
	f.calls++
	return f.value, f.ok, nil
}

type answer bool

func (a answer) ConfirmDelete(context.Context, string, string) (bool, error) { return bool(a), nil }

func newMapper(t *testing.T) *status.Mapper {
	t.Helper()
	m, err := status.New(labels, defaults, nil)
	require.NoError(t, err)
	return m
}

func setup(t *testing.T, opts Options, fakeOpts ...fakeapi.Option) (*Reconciler, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(fakeOpts...)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	client := api.New(srv.URL, nil, 5*time.Second)
	return New(client, newMapper(t), opts), fake
}

func seedKnown(fake *fakeapi.Server, status string) {
	fake.AddRawTask(knownID, map[string]any{"_id": knownID, "title": "Known", "status": status})
}

func TestLoad_Shapes(t *testing.T) {
	for name, shape := range map[string]fakeapi.Shape{
		"list":  fakeapi.ShapeList,
		"data":  fakeapi.ShapeData,
		"tasks": fakeapi.ShapeTasks,
	} {
		t.Run(name, func(t *testing.T) {
			r, fake := setup(t, Options{}, fakeapi.WithShape(shape))
			fake.AddTask("a", "", "Por hacer")
			fake.AddTask("b", "", "Haciendo")
			fake.AddTask("c", "", "Hecho")

			b, err := r.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 3, b.Len())
			assert.Len(t, b.Column("Por hacer"), 1)
			assert.Len(t, b.Column("En progreso"), 1)
			assert.Len(t, b.Column("Completada"), 1)
		})
	}
}

func TestDecodeTaskList_Unknown(t *testing.T) {
	tasks, err := decodeTaskList([]byte(`{"items":[{"_id":"x"}]}`))
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tasks, err = decodeTaskList([]byte(`{"data":"nope","tasks":[{"_id":"x"}]}`))
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	_, err = decodeTaskList([]byte(`<html>`))
	assert.Error(t, err)
}

func TestLoad_IDFieldsTitleAndUnplaced(t *testing.T) {
	r, fake := setup(t, Options{}, fakeapi.WithAllowedStatuses())
	fake.AddRawTask("k1", map[string]any{"id": " :" + knownID + "/ ", "status": "Hecho"})
	fake.AddRawTask("k2", map[string]any{"_idTask": "aaaaaaaaaaaaaaaaaaaaaaaa", "title": "Legacy", "status": "Archivada"})

	b, err := r.Load(context.Background())
	require.NoError(t, err)

	done := b.Column("Completada")
	require.Len(t, done, 1)
	assert.Equal(t, knownID, done[0].ID)
	assert.Equal(t, "(sin título)", done[0].Title)
	assert.Equal(t, "Hecho", done[0].Backend)

	require.Len(t, b.Unplaced, 1)
	assert.Equal(t, "Archivada", b.Unplaced[0].Label)
	assert.Equal(t, 1, b.Len())
	assert.Same(t, b, r.Snapshot())
}

func TestLoad_FailureUsesServerMessage(t *testing.T) {
	r, _ := setup(t, Options{}, fakeapi.WithAuth())
	_, err := r.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "load tasks: No token provided", err.Error())
	assert.Nil(t, r.Snapshot())
}

func TestMove_PatchThenReload(t *testing.T) {
	rec := &recorder{}
	r, fake := setup(t, Options{Journal: rec})
	seedKnown(fake, "Por hacer")

	b, err := r.Move(context.Background(), knownID, "En progreso")
	require.NoError(t, err)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPatch, reqs[0].Method)
	assert.Equal(t, "/api/v1/tasks/"+knownID, reqs[0].Path)
	assert.JSONEq(t, `{"status":"Haciendo"}`, reqs[0].Body)
	assert.Equal(t, http.MethodGet, reqs[1].Method)

	require.Len(t, b.Column("En progreso"), 1)
	assert.Equal(t, []store.EventKind{store.EventMoved}, rec.events)
}

func TestMove_PatchNotFoundFallsBackToPut(t *testing.T) {
	r, fake := setup(t, Options{}, fakeapi.WithoutPatch())
	seedKnown(fake, "Por hacer")

	b, err := r.Move(context.Background(), knownID, "Completada")
	require.NoError(t, err)

	muts := fake.Mutations()
	require.Len(t, muts, 2)
	assert.Equal(t, http.MethodPatch, muts[0].Method)
	assert.Equal(t, http.MethodPut, muts[1].Method)
	assert.Equal(t, muts[0].Path, muts[1].Path)
	assert.Equal(t, muts[0].Body, muts[1].Body)

	assert.Len(t, b.Column("Completada"), 1)
	task, _ := fake.Task(knownID)
	assert.Equal(t, "Hecho", task["status"])
}

func TestMove_InvalidIDSendsNothing(t *testing.T) {
	r, fake := setup(t, Options{})
	for _, id := range []string{"abc", "", "507f1f77bcf86cd79943901z", knownID + "0"} {
		_, err := r.Move(context.Background(), id, "Completada")
		assert.True(t, IsValidation(err), id)
	}
	_, err := r.Move(context.Background(), knownID, " ")
	assert.True(t, IsValidation(err))
	assert.Empty(t, fake.Requests())
}

func TestMove_SanitizesDroppedID(t *testing.T) {
	r, fake := setup(t, Options{})
	seedKnown(fake, "Por hacer")

	_, err := r.Move(context.Background(), "/"+knownID+":", "Completada")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/tasks/"+knownID, fake.Mutations()[0].Path)
}

// A drop target that cannot read the transfer still moves the card.
type blindTransfer struct{}

func (blindTransfer) SetData(string) {}
func (blindTransfer) Data() string   { return "" }

func TestMove_FromDragSessionFallback(t *testing.T) {
	r, fake := setup(t, Options{})
	seedKnown(fake, "Por hacer")

	dc := drag.New()
	_, err := dc.Start(knownID, blindTransfer{})
	require.NoError(t, err)
	id := dc.Drop(blindTransfer{})
	dc.End()

	_, err = r.Move(context.Background(), id, "Completada")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Hecho"}`, fake.Mutations()[0].Body)
}

func TestMove_ServerRejectionReportsAndKeepsBoard(t *testing.T) {
	rec := &recorder{}
	r, fake := setup(t, Options{Reporter: rec, Journal: rec}, fakeapi.WithAllowedStatuses("Por hacer"))
	seedKnown(fake, "Por hacer")
	before, err := r.Load(context.Background())
	require.NoError(t, err)

	_, err = r.Move(context.Background(), knownID, "Completada")
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	require.Len(t, rec.diagnostics, 1)
	assert.Equal(t, http.StatusBadRequest, rec.diagnostics[0].StatusCode)
	assert.Contains(t, rec.diagnostics[0].Body, "is not a valid enum value")
	assert.Same(t, before, r.Snapshot())
	assert.Equal(t, []store.EventKind{store.EventMoveFailed}, rec.events)
}

func TestMove_CorrectionRetriesOnceOnly(t *testing.T) {
	corr := &fixedCorrector{value: "En curso", ok: true}
	r, fake := setup(t, Options{Corrector: corr},
		fakeapi.WithoutPatch(), fakeapi.WithAllowedStatuses("Por hacer", "En curso", "Hecho"))
	seedKnown(fake, "Por hacer")

	_, err := r.Move(context.Background(), knownID, "En progreso")
	require.Error(t, err)

	// PATCH 404, PUT 400, one corrected PATCH (404 again), nothing more.
	muts := fake.Mutations()
	require.Len(t, muts, 3)
	assert.Equal(t, http.MethodPatch, muts[2].Method)
	assert.JSONEq(t, `{"status":"En curso"}`, muts[2].Body)
	assert.Equal(t, 1, corr.calls)

	// The correction is remembered even though the retry failed.
	assert.Equal(t, "En curso", r.Mapper().ToBackend("En progreso"))
}

func TestMove_CorrectionNotOfferedWithoutFallback(t *testing.T) {
	corr := &fixedCorrector{value: "En curso", ok: true}
	r, fake := setup(t, Options{Corrector: corr}, fakeapi.WithAllowedStatuses("Por hacer"))
	seedKnown(fake, "Por hacer")

	_, err := r.Move(context.Background(), knownID, "En progreso")
	require.Error(t, err)
	assert.Len(t, fake.Mutations(), 1)
	assert.Zero(t, corr.calls)
}

// scriptedRepo answers UpdateTask from a queue.
type scriptedRepo struct {
	mu      sync.Mutex
	replies []error
	calls   []string
	bodies  []any
	lists   int
}

func (s *scriptedRepo) ListTasks(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	return []byte(`[{"_id":"` + knownID + `","title":"Known","status":"En curso"}]`), nil
}

func (s *scriptedRepo) CreateTask(context.Context, api.TaskInput) error { return nil }

func (s *scriptedRepo) UpdateTask(_ context.Context, method, _ string, body any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method)
	s.bodies = append(s.bodies, body)
	if len(s.replies) == 0 {
		return nil
	}
	err := s.replies[0]
	s.replies = s.replies[1:]
	return err
}

func (s *scriptedRepo) DeleteTask(context.Context, string) error { return nil }

func notFound() error {
	return &api.StatusError{Method: http.MethodPatch, StatusCode: http.StatusNotFound, Body: "Cannot PATCH"}
}

func enumRejected(v string) error {
	return &api.StatusError{
		Method:     http.MethodPut,
		StatusCode: http.StatusBadRequest,
		Body:       `{"message":"status: ` + "`" + v + "`" + ` is not a valid enum value for path ` + "`status`" + `."}`,
	}
}

func TestMove_CorrectionSucceeds(t *testing.T) {
	repo := &scriptedRepo{replies: []error{notFound(), enumRejected("Haciendo"), nil}}
	corr := &fixedCorrector{value: " En curso ", ok: true}
	rec := &recorder{}
	r := New(repo, newMapper(t), Options{Corrector: corr, Reporter: rec, Journal: rec})

	b, err := r.Move(context.Background(), knownID, "En progreso")
	require.NoError(t, err)

	assert.Equal(t, []string{http.MethodPatch, http.MethodPut, http.MethodPatch}, repo.calls)
	assert.Equal(t, api.StatusUpdate{Status: "En curso"}, repo.bodies[2])
	assert.Equal(t, 1, repo.lists)
	assert.Len(t, rec.diagnostics, 1)
	assert.Equal(t, []store.EventKind{store.EventCorrected, store.EventMoved}, rec.events)

	// The reloaded task's backend value now reads back as the column.
	assert.Len(t, b.Column("En progreso"), 1)
}

func TestMove_CorrectionDeclined(t *testing.T) {
	repo := &scriptedRepo{replies: []error{notFound(), enumRejected("Haciendo")}}
	corr := &fixedCorrector{ok: false}
	r := New(repo, newMapper(t), Options{Corrector: corr})

	_, err := r.Move(context.Background(), knownID, "En progreso")
	require.Error(t, err)
	assert.Len(t, repo.calls, 2)
	assert.Zero(t, repo.lists)
	assert.Equal(t, "Haciendo", r.Mapper().ToBackend("En progreso"))
}

func TestMove_EnumSignatureInPatchBody(t *testing.T) {
	patch := &api.StatusError{StatusCode: http.StatusNotFound, Body: "`x` is not a valid enum value"}
	put := &api.StatusError{StatusCode: http.StatusInternalServerError, Body: "oops"}
	repo := &scriptedRepo{replies: []error{patch, put, nil}}
	corr := &fixedCorrector{value: "Fixed", ok: true}
	r := New(repo, newMapper(t), Options{Corrector: corr})

	_, err := r.Move(context.Background(), knownID, "Completada")
	require.NoError(t, err)
	assert.Equal(t, 1, corr.calls)
}

func TestMove_TransportErrorNoDiagnostic(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	r := New(api.New(srv.URL, nil, time.Second), newMapper(t), Options{Reporter: rec})

	_, err := r.Move(context.Background(), knownID, "Completada")
	var te *api.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Empty(t, rec.diagnostics)
}

func TestDelete_DeclinedSendsNothing(t *testing.T) {
	r, fake := setup(t, Options{Confirmer: answer(false)})
	seedKnown(fake, "Hecho")

	_, err := r.Delete(context.Background(), knownID, DeleteReload)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, fake.Mutations())

	r2, fake2 := setup(t, Options{})
	_, err = r2.Delete(context.Background(), knownID, DeleteReload)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, fake2.Requests())
}

func TestDelete_InvalidID(t *testing.T) {
	r, fake := setup(t, Options{Confirmer: answer(true)})
	_, err := r.Delete(context.Background(), "abc", DeleteReload)
	assert.True(t, IsValidation(err))
	assert.Empty(t, fake.Requests())
}

func TestDelete_Reload(t *testing.T) {
	r, fake := setup(t, Options{Confirmer: answer(true)})
	seedKnown(fake, "Hecho")

	b, err := r.Delete(context.Background(), knownID, DeleteReload)
	require.NoError(t, err)
	assert.Zero(t, b.Len())

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodDelete, reqs[0].Method)
	assert.Equal(t, http.MethodGet, reqs[1].Method)
}

func TestDelete_Local(t *testing.T) {
	r, fake := setup(t, Options{Confirmer: answer(true)})
	seedKnown(fake, "Hecho")
	fake.AddTask("other", "", "Por hacer")
	_, err := r.Load(context.Background())
	require.NoError(t, err)
	fake.ResetRequests()

	b, err := r.Delete(context.Background(), knownID, DeleteLocal)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
	_, found := b.Find(knownID)
	assert.False(t, found)

	require.Len(t, fake.Requests(), 1)
	assert.Equal(t, http.MethodDelete, fake.Requests()[0].Method)
}

func TestDelete_FailureKeepsBoard(t *testing.T) {
	rec := &recorder{}
	r, fake := setup(t, Options{Confirmer: answer(true), Reporter: rec})
	before, err := r.Load(context.Background())
	require.NoError(t, err)

	_, err = r.Delete(context.Background(), knownID, DeleteLocal)
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
	assert.Same(t, before, r.Snapshot())
	assert.Len(t, rec.diagnostics, 1)
	assert.Len(t, fake.Mutations(), 1)
}

func TestEdit_FallsBackToPutWithFullBody(t *testing.T) {
	r, fake := setup(t, Options{}, fakeapi.WithoutPatch())
	seedKnown(fake, "Por hacer")

	_, err := r.Edit(context.Background(), knownID, Input{
		Title: " Renamed ", Description: "more", Status: "En progreso", User: "u1",
	})
	require.NoError(t, err)

	muts := fake.Mutations()
	require.Len(t, muts, 2)
	assert.Equal(t, http.MethodPut, muts[1].Method)
	assert.JSONEq(t, `{"title":"Renamed","description":"more","status":"Haciendo","user":"u1"}`, muts[1].Body)

	task, _ := fake.Task(knownID)
	assert.Equal(t, "Renamed", task["title"])
}

func TestEdit_RequiresTitle(t *testing.T) {
	r, fake := setup(t, Options{})
	_, err := r.Edit(context.Background(), knownID, Input{Title: "  "})
	assert.True(t, IsValidation(err))
	assert.Empty(t, fake.Requests())
}

func TestCreate_PostsThenReloads(t *testing.T) {
	rec := &recorder{}
	r, fake := setup(t, Options{Journal: rec})

	b, err := r.Create(context.Background(), Input{Title: "New", User: "u1"})
	require.NoError(t, err)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.JSONEq(t, `{"title":"New","description":"","status":"Por hacer","user":"u1"}`, reqs[0].Body)
	assert.Len(t, b.Column("Por hacer"), 1)
	assert.Equal(t, []store.EventKind{store.EventCreated}, rec.events)
}

func TestConcurrentMoves(t *testing.T) {
	r, fake := setup(t, Options{})
	ids := []string{
		fake.AddTask("a", "", "Por hacer"),
		fake.AddTask("b", "", "Por hacer"),
		fake.AddTask("c", "", "Por hacer"),
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := r.Move(context.Background(), id, "Completada")
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	b, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.Column("Completada"), 3)
}

func TestParseDeleteMode(t *testing.T) {
	assert.Equal(t, DeleteLocal, ParseDeleteMode("local"))
	assert.Equal(t, DeleteReload, ParseDeleteMode("reload"))
	assert.Equal(t, DeleteReload, ParseDeleteMode(""))
}
