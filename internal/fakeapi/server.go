// Package fakeapi is an in-memory stand-in for the remote task API.
// It mimics the quirks the client has to cope with: an enum-validated
// status field, deployments without PATCH, and several list payload
// shapes.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Shape selects how GET /api/v1/tasks wraps the list.
type Shape int

const (
	ShapeList  Shape = iota // [...]
	ShapeData               // {"data": [...]}
	ShapeTasks              // {"tasks": [...]}
)

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

// Server holds the fake API state.
type Server struct {
	e      *echo.Echo
	secret []byte

	mu           sync.Mutex
	order        []string
	tasks        map[string]map[string]any
	users        map[string]user // by email
	allowed      map[string]bool // nil = any status accepted
	patchEnabled bool
	shape        Shape
	requireAuth  bool
	requests     []Request
	userVerbs    map[string]bool   // routed profile update styles
	resetTokens  map[string]string // reset token -> email
}

type user struct {
	ID       string
	Fields   map[string]any
	Password string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedStatuses restricts the status enum.
func WithAllowedStatuses(values ...string) Option {
	return func(s *Server) { s.setAllowed(values) }
}

// WithoutPatch answers every PATCH with 404, like APIs that only route PUT.
func WithoutPatch() Option {
	return func(s *Server) { s.patchEnabled = false }
}

// WithShape selects the list payload shape.
func WithShape(shape Shape) Option {
	return func(s *Server) { s.shape = shape }
}

// Profile update styles accepted by WithUserUpdates.
const (
	UserPut        = "PUT"
	UserPatch      = "PATCH"
	UserCollection = "COLLECTION" // PATCH /api/v1/users with the id in the body
)

// WithUserUpdates routes only the given profile update styles; the
// others answer 404. All three are routed by default.
func WithUserUpdates(styles ...string) Option {
	return func(s *Server) {
		s.userVerbs = map[string]bool{}
		for _, v := range styles {
			s.userVerbs[v] = true
		}
	}
}

// WithAuth rejects task calls without the bearer token issued by login.
func WithAuth() Option {
	return func(s *Server) { s.requireAuth = true }
}

// New creates a fake API. By default it accepts the Spanish enum the
// real backend uses.
func New(opts ...Option) *Server {
	s := &Server{
		e:            echo.New(),
		secret:       []byte("fakeapi-secret"),
		tasks:        map[string]map[string]any{},
		users:        map[string]user{},
		patchEnabled: true,
		userVerbs:    map[string]bool{UserPut: true, UserPatch: true, UserCollection: true},
		resetTokens:  map[string]string{},
	}
	s.setAllowed([]string{"Por hacer", "Haciendo", "Hecho"})
	for _, o := range opts {
		o(s)
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(s.recordRequest)

	s.e.POST("/api/v1/auth/login", s.handleLogin)
	s.e.POST("/api/v1/users", s.handleRegister)
	s.e.GET("/api/v1/users/:id", s.handleGetUser)
	s.e.PUT("/api/v1/users/:id", s.handlePutUser, s.checkAuth)
	s.e.PATCH("/api/v1/users/:id", s.handlePatchUser, s.checkAuth)
	s.e.PATCH("/api/v1/users", s.handlePatchUsers, s.checkAuth)
	s.e.POST("/api/v1/auth/forgot-password", s.handleForgotPassword)
	s.e.POST("/api/v1/auth/reset-password", s.handleResetPassword)

	tasks := s.e.Group("/api/v1/tasks", s.checkAuth)
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.GET("/:id", s.handleGetTask)
	tasks.PATCH("/:id", s.handlePatchTask)
	tasks.PUT("/:id", s.handlePutTask)
	tasks.DELETE("/:id", s.handleDeleteTask)
	return s
}

// Handler returns the HTTP handler, for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until the server fails.
func (s *Server) Start(addr string) error {
	log.WithField("addr", addr).Info("fake API listening")
	return s.e.Start(addr)
}

// --- State helpers ---

// NewObjectID returns a random 24-hex-character id.
func NewObjectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// AddTask seeds a task and returns its id.
func (s *Server) AddTask(title, description, status string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := NewObjectID()
	s.putTaskLocked(id, map[string]any{
		"_id":         id,
		"title":       title,
		"description": description,
		"status":      status,
	})
	return id
}

// AddRawTask seeds a task exactly as given, without generating an id.
func (s *Server) AddRawTask(key string, task map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putTaskLocked(key, task)
}

func (s *Server) putTaskLocked(id string, task map[string]any) {
	if _, ok := s.tasks[id]; !ok {
		s.order = append(s.order, id)
	}
	s.tasks[id] = task
}

// Task returns a copy of a stored task.
func (s *Server) Task(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out, true
}

// AddUser seeds an account and returns its id.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := NewObjectID()
	s.users[email] = user{ID: id, Password: password, Fields: map[string]any{"_id": id, "email": email}}
	return id
}

// User returns a copy of the stored profile for email.
func (s *Server) User(email string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(u.Fields))
	for k, v := range u.Fields {
		out[k] = v
	}
	return out, true
}

// ResetToken returns the pending reset token for email, as if read from
// the reset mail.
func (s *Server) ResetToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, e := range s.resetTokens {
		if e == email {
			return tok
		}
	}
	return ""
}

// SetAllowedStatuses replaces the status enum.
func (s *Server) SetAllowedStatuses(values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAllowed(values)
}

func (s *Server) setAllowed(values []string) {
	if len(values) == 0 {
		s.allowed = nil
		return
	}
	s.allowed = map[string]bool{}
	for _, v := range values {
		s.allowed[v] = true
	}
}

// SetPatchEnabled toggles PATCH support.
func (s *Server) SetPatchEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchEnabled = on
}

// Requests returns the calls seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Mutations returns recorded calls other than GET.
func (s *Server) Mutations() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded calls.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// --- Middleware ---

func (s *Server) recordRequest(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: req.Method,
			Path:   req.URL.Path,
			Body:   string(body),
			Auth:   req.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) checkAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		required := s.requireAuth
		s.mu.Unlock()
		if !required {
			return next(c)
		}
		raw := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token provided"})
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.secret, nil },
			jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid token"})
		}
		return next(c)
	}
}

// --- Handlers ---

func decodeBody(c echo.Context) (map[string]any, error) {
	var m map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Server) enumError(c echo.Context, status any) error {
	msg := fmt.Sprintf("Task validation failed: status: `%v` is not a valid enum value for path `status`.", status)
	return c.JSON(http.StatusBadRequest, echo.Map{"message": msg})
}

// validStatusLocked checks the enum. Caller holds mu.
func (s *Server) validStatusLocked(v any) bool {
	if s.allowed == nil {
		return true
	}
	str, ok := v.(string)
	return ok && s.allowed[str]
}

func (s *Server) handleListTasks(c echo.Context) error {
	s.mu.Lock()
	list := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.tasks[id])
	}
	shape := s.shape
	s.mu.Unlock()

	switch shape {
	case ShapeData:
		return c.JSON(http.StatusOK, echo.Map{"data": list})
	case ShapeTasks:
		return c.JSON(http.StatusOK, echo.Map{"tasks": list})
	default:
		return c.JSON(http.StatusOK, list)
	}
}

func (s *Server) handleGetTask(c echo.Context) error {
	t, ok := s.Task(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Task not found"})
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	title, _ := body["title"].(string)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Task validation failed: title: Path `title` is required."})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validStatusLocked(body["status"]) {
		return s.enumError(c, body["status"])
	}
	id := NewObjectID()
	body["_id"] = id
	body["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	s.putTaskLocked(id, body)
	return c.JSON(http.StatusCreated, body)
}

func (s *Server) handlePatchTask(c echo.Context) error {
	s.mu.Lock()
	enabled := s.patchEnabled
	s.mu.Unlock()
	if !enabled {
		return c.String(http.StatusNotFound, "Cannot PATCH "+c.Request().URL.Path)
	}
	return s.updateTask(c)
}

func (s *Server) handlePutTask(c echo.Context) error {
	return s.updateTask(c)
}

func (s *Server) updateTask(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Task not found"})
	}
	if st, has := body["status"]; has && !s.validStatusLocked(st) {
		return s.enumError(c, st)
	}
	for k, v := range body {
		if k == "_id" {
			continue
		}
		task[k] = v
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Task not found"})
	}
	delete(s.tasks, id)
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleLogin(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok || u.Password != password {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Credenciales inválidas"})
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": u.Fields})
}

func (s *Server) handleRegister(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	if email == "" || password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "email and password are required"})
	}
	if confirm, _ := body["confirmPassword"].(string); confirm != password {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Las contraseñas no coinciden"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return c.JSON(http.StatusConflict, echo.Map{"message": "El correo ya está registrado"})
	}
	id := NewObjectID()
	fields := map[string]any{"_id": id}
	for k, v := range body {
		if k == "password" || k == "confirmPassword" {
			continue
		}
		fields[k] = v
	}
	s.users[email] = user{ID: id, Password: password, Fields: fields}
	return c.JSON(http.StatusCreated, fields)
}

func (s *Server) handleGetUser(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return c.JSON(http.StatusOK, echo.Map{"user": u.Fields})
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
}

func (s *Server) handlePutUser(c echo.Context) error {
	return s.updateUser(c, UserPut, c.Param("id"))
}

func (s *Server) handlePatchUser(c echo.Context) error {
	return s.updateUser(c, UserPatch, c.Param("id"))
}

func (s *Server) handlePatchUsers(c echo.Context) error {
	return s.updateUser(c, UserCollection, "")
}

// updateUser applies profile fields. For the collection style id comes
// from the body.
func (s *Server) updateUser(c echo.Context, style, id string) error {
	s.mu.Lock()
	routed := s.userVerbs[style]
	s.mu.Unlock()
	if !routed {
		return c.String(http.StatusNotFound, "Cannot "+c.Request().Method+" "+c.Request().URL.Path)
	}

	body, err := decodeBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if id == "" {
		id, _ = body["id"].(string)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.users {
		if u.ID != id {
			continue
		}
		for k, v := range body {
			switch k {
			case "id", "_id", "password", "confirmPassword":
				continue
			}
			u.Fields[k] = v
		}
		if newEmail, ok := body["email"].(string); ok && newEmail != "" && newEmail != email {
			if _, taken := s.users[newEmail]; taken {
				return c.JSON(http.StatusConflict, echo.Map{"message": "El correo ya está registrado"})
			}
			delete(s.users, email)
			s.users[newEmail] = u
		}
		return c.JSON(http.StatusOK, echo.Map{"user": u.Fields})
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
}

func (s *Server) handleForgotPassword(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	email, _ := body["email"].(string)
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "El correo es obligatorio"})
	}

	s.mu.Lock()
	if _, ok := s.users[email]; ok {
		tok := uuid.NewString()
		s.resetTokens[tok] = email
		log.WithField("email", email).Info("password reset token issued")
	}
	s.mu.Unlock()
	// Same answer for unknown accounts.
	return c.JSON(http.StatusOK, echo.Map{"message": "Si el correo existe, recibirás instrucciones"})
}

func (s *Server) handleResetPassword(c echo.Context) error {
	body, err := decodeBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	tok, _ := body["token"].(string)
	password, _ := body["password"].(string)
	confirm, _ := body["confirmPassword"].(string)
	if password == "" || password != confirm {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Las contraseñas no coinciden"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.resetTokens[tok]
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Token inválido o expirado"})
	}
	delete(s.resetTokens, tok)
	u := s.users[email]
	u.Password = password
	s.users[email] = u
	return c.JSON(http.StatusOK, echo.Map{"message": "Contraseña actualizada"})
}
