package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imkarma/tablero/internal/fakeapi"
)

func newTestClient(t *testing.T, token string, opts ...fakeapi.Option) (*Client, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(opts...)
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", StaticToken(token), 5*time.Second), fake
}

func TestListTasks_ReturnsRawBody(t *testing.T) {
	c, fake := newTestClient(t, "")
	fake.AddTask("Write docs", "README", "Por hacer")

	body, err := c.ListTasks(context.Background())
	require.NoError(t, err)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Write docs", list[0]["title"])
}

func TestBearerHeader_OnlyWhenTokenPresent(t *testing.T) {
	c, fake := newTestClient(t, "")
	_, err := c.ListTasks(context.Background())
	require.NoError(t, err)

	c2 := New(c.BaseURL(), StaticToken("tok"), time.Second)
	_, err = c2.ListTasks(context.Background())
	require.NoError(t, err)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Auth)
	assert.Equal(t, "Bearer tok", reqs[1].Auth)
}

func TestUpdateTask_SendsBodyToTaskURL(t *testing.T) {
	c, fake := newTestClient(t, "")
	id := fake.AddTask("t", "d", "Por hacer")

	err := c.UpdateTask(context.Background(), http.MethodPatch, id, StatusUpdate{Status: "Haciendo"})
	require.NoError(t, err)

	muts := fake.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, http.MethodPatch, muts[0].Method)
	assert.Equal(t, "/api/v1/tasks/"+id, muts[0].Path)
	assert.JSONEq(t, `{"status":"Haciendo"}`, muts[0].Body)

	task, _ := fake.Task(id)
	assert.Equal(t, "Haciendo", task["status"])
}

func TestUpdateTask_StatusErrorCarriesBody(t *testing.T) {
	c, fake := newTestClient(t, "")
	id := fake.AddTask("t", "d", "Por hacer")

	err := c.UpdateTask(context.Background(), http.MethodPut, id, StatusUpdate{Status: "En progreso"})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "is not a valid enum value")
	assert.Contains(t, se.Message(), "`En progreso`")
}

func TestUpdateTask_PatchNotRouted(t *testing.T) {
	c, fake := newTestClient(t, "", fakeapi.WithoutPatch())
	id := fake.AddTask("t", "d", "Por hacer")

	err := c.UpdateTask(context.Background(), http.MethodPatch, id, StatusUpdate{Status: "Hecho"})
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, nil, time.Second)
	_, err := c.ListTasks(context.Background())
	require.Error(t, err)

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, http.MethodGet, te.Method)
}

func TestGetTask_UnwrapsTaskKey(t *testing.T) {
	c, fake := newTestClient(t, "")
	fake.AddRawTask("507f1f77bcf86cd799439011", map[string]any{
		"task": map[string]any{"_id": "507f1f77bcf86cd799439011", "title": "wrapped"},
	})

	task, err := c.GetTask(context.Background(), "507f1f77bcf86cd799439011")
	require.NoError(t, err)
	assert.Equal(t, "wrapped", task["title"])
}

func TestDeleteTask(t *testing.T) {
	c, fake := newTestClient(t, "")
	id := fake.AddTask("t", "d", "Hecho")

	require.NoError(t, c.DeleteTask(context.Background(), id))
	_, ok := fake.Task(id)
	assert.False(t, ok)

	err := c.DeleteTask(context.Background(), id)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestLoginAndRegister(t *testing.T) {
	c, _ := newTestClient(t, "")
	ctx := context.Background()

	err := c.Register(ctx, NewUser{
		FirstName: "Ana", LastName: "Ruiz", Age: 30,
		Email: "ana@example.com", Password: "secreto1", ConfirmPassword: "secreto1",
	})
	require.NoError(t, err)

	res, err := c.Login(ctx, "ana@example.com", "secreto1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Len(t, res.User.ID, 24)

	user, err := c.GetUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user["nombres"])

	_, err = c.Login(ctx, "ana@example.com", "wrong")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestUpdateUser_VerbFallbacks(t *testing.T) {
	cases := []struct {
		name    string
		styles  []string
		methods []string
		ok      bool
	}{
		{"put", []string{fakeapi.UserPut, fakeapi.UserPatch, fakeapi.UserCollection}, []string{"PUT"}, true},
		{"patch after put", []string{fakeapi.UserPatch}, []string{"PUT", "PATCH"}, true},
		{"collection after 404", []string{fakeapi.UserCollection}, []string{"PUT", "PATCH", "PATCH"}, true},
		{"nothing routed", nil, []string{"PUT", "PATCH", "PATCH"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, fake := newTestClient(t, "", fakeapi.WithUserUpdates(tc.styles...))
			id := fake.AddUser("ana@example.com", "secreto1")

			user, err := c.UpdateUser(context.Background(), id, ProfileUpdate{"nombres": "Ana"})
			var methods []string
			for _, r := range fake.Mutations() {
				methods = append(methods, r.Method)
			}
			assert.Equal(t, tc.methods, methods)

			if !tc.ok {
				assert.True(t, IsStatus(err, http.StatusNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ana", user["nombres"])
			stored, _ := fake.User("ana@example.com")
			assert.Equal(t, "Ana", stored["nombres"])
		})
	}
}

func TestUpdateUser_CollectionBodyCarriesID(t *testing.T) {
	c, fake := newTestClient(t, "", fakeapi.WithUserUpdates(fakeapi.UserCollection))
	id := fake.AddUser("ana@example.com", "secreto1")

	_, err := c.UpdateUser(context.Background(), id, ProfileUpdate{"apellidos": "Ruiz"})
	require.NoError(t, err)

	muts := fake.Mutations()
	require.Len(t, muts, 3)
	assert.Equal(t, "/api/v1/users", muts[2].Path)
	assert.JSONEq(t, `{"id":"`+id+`","apellidos":"Ruiz"}`, muts[2].Body)
}

func TestUpdateUser_UnauthorizedStopsAtPatch(t *testing.T) {
	c, fake := newTestClient(t, "expired", fakeapi.WithAuth())
	id := fake.AddUser("ana@example.com", "secreto1")

	_, err := c.UpdateUser(context.Background(), id, ProfileUpdate{"nombres": "Ana"})
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Len(t, fake.Mutations(), 2)
}

func TestForgotAndResetPassword(t *testing.T) {
	c, fake := newTestClient(t, "")
	ctx := context.Background()
	fake.AddUser("ana@example.com", "secreto1")

	msg, err := c.ForgotPassword(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	token := fake.ResetToken("ana@example.com")
	require.NotEmpty(t, token)

	err = c.ResetPassword(ctx, PasswordReset{Token: token, Password: "nueva123", ConfirmPassword: "otra"})
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	err = c.ResetPassword(ctx, PasswordReset{Token: "bogus", Password: "nueva123", ConfirmPassword: "nueva123"})
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	err = c.ResetPassword(ctx, PasswordReset{Token: token, Password: "nueva123", ConfirmPassword: "nueva123"})
	require.NoError(t, err)

	_, err = c.Login(ctx, "ana@example.com", "secreto1")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	_, err = c.Login(ctx, "ana@example.com", "nueva123")
	assert.NoError(t, err)

	// Tokens are single use.
	err = c.ResetPassword(ctx, PasswordReset{Token: token, Password: "x", ConfirmPassword: "x"})
	assert.Error(t, err)
}

func TestServerMessage(t *testing.T) {
	cases := map[string]string{
		`{"message":"boom"}`:            "boom",
		`{"error":"bad"}`:               "bad",
		`{"message":"","error":"bad"}`:  "bad",
		`{"other":1}`:                   "",
		"  Cannot PATCH /api/v1/tasks ": "Cannot PATCH /api/v1/tasks",
	}
	for in, want := range cases {
		assert.Equal(t, want, ServerMessage([]byte(in)), in)
	}
}
