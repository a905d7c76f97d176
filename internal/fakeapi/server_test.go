package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestListShapes(t *testing.T) {
	for shape, prefix := range map[Shape]string{
		ShapeList:  `[`,
		ShapeData:  `{"data":`,
		ShapeTasks: `{"tasks":`,
	} {
		s := New(WithShape(shape))
		s.AddTask("a", "", "Hecho")
		rec := do(t, s, http.MethodGet, "/api/v1/tasks", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), prefix), rec.Body.String())
	}
}

func TestPatchDisabled(t *testing.T) {
	s := New(WithoutPatch())
	id := s.AddTask("a", "", "Por hacer")

	rec := do(t, s, http.MethodPatch, "/api/v1/tasks/"+id, `{"status":"Hecho"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/v1/tasks/"+id, `{"status":"Hecho"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	task, _ := s.Task(id)
	assert.Equal(t, "Hecho", task["status"])

	s.SetPatchEnabled(true)
	rec = do(t, s, http.MethodPatch, "/api/v1/tasks/"+id, `{"status":"Haciendo"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEnumValidation(t *testing.T) {
	s := New()
	id := s.AddTask("a", "", "Por hacer")

	rec := do(t, s, http.MethodPatch, "/api/v1/tasks/"+id, `{"status":"Completada"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "is not a valid enum value")

	s.SetAllowedStatuses()
	rec = do(t, s, http.MethodPatch, "/api/v1/tasks/"+id, `{"status":"Completada"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndDelete(t *testing.T) {
	s := New()
	rec := do(t, s, http.MethodPost, "/api/v1/tasks", `{"title":"","status":"Hecho"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/tasks", `{"title":"x","status":"Hecho"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id, _ := created["_id"].(string)
	assert.Len(t, id, 24)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/v1/tasks/"+id, "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/v1/tasks/"+id, "", "").Code)
}

func TestAuthFlow(t *testing.T) {
	s := New(WithAuth())
	id := s.AddUser("ana@example.com", "secreto1")

	rec := do(t, s, http.MethodGet, "/api/v1/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "No token provided")

	rec = do(t, s, http.MethodPost, "/api/v1/auth/login", `{"email":"ana@example.com","password":"mal"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/auth/login", `{"email":"ana@example.com","password":"secreto1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, id, res.User["_id"])

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/tasks", "", res.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/api/v1/tasks", "", "garbage").Code)
}

func TestRegister(t *testing.T) {
	s := New()
	body := `{"email":"b@example.com","password":"p","confirmPassword":"q"}`
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/v1/users", body, "").Code)

	body = `{"email":"b@example.com","password":"p","confirmPassword":"p","firstName":"Bea"}`
	rec := do(t, s, http.MethodPost, "/api/v1/users", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/api/v1/users", body, "").Code)

	assert.Len(t, s.Mutations(), 3)
}
