// Package api is the HTTP client for the remote task service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	tasksPath  = "/api/v1/tasks"
	usersPath  = "/api/v1/users"
	loginPath  = "/api/v1/auth/login"
	forgotPath = "/api/v1/auth/forgot-password"
	resetPath  = "/api/v1/auth/reset-password"
)

// TokenSource supplies the bearer credential for each request.
// An empty token means the Authorization header is omitted.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// Client talks to the task API.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// New creates a client for baseURL. tokens may be nil.
func New(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// TaskURL returns the resource URL for one task.
func (c *Client) TaskURL(id string) string {
	return c.baseURL + tasksPath + "/" + id
}

// do sends one request and returns the response body. Non-2xx answers
// come back as *StatusError with the body attached.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	token := c.tokens.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	entry := log.WithFields(log.Fields{
		"method":        method,
		"url":           url,
		"request_id":    reqID,
		"token_present": token != "",
	})

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Warn("request failed")
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: fmt.Errorf("read response: %w", err)}
	}

	entry = entry.WithFields(log.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		entry.WithField("body", string(respBody)).Info("request rejected")
		return respBody, &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}
	entry.Debug("request ok")
	return respBody, nil
}

// --- Tasks ---

// ListTasks fetches the task collection and returns the raw body; the
// payload shape varies between deployments.
func (c *Client) ListTasks(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+tasksPath, nil)
}

// GetTask fetches one task. Both a bare object and {"task": {...}}
// are accepted.
func (c *Client) GetTask(ctx context.Context, id string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, c.TaskURL(id), nil)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if inner, ok := obj["task"].(map[string]any); ok {
		return inner, nil
	}
	return obj, nil
}

// CreateTask posts a new task.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) error {
	_, err := c.do(ctx, http.MethodPost, c.baseURL+tasksPath, in)
	return err
}

// UpdateTask sends body to the task resource with the given verb
// (PATCH or PUT).
func (c *Client) UpdateTask(ctx context.Context, method, id string, body any) error {
	_, err := c.do(ctx, method, c.TaskURL(id), body)
	return err
}

// DeleteTask removes a task. No body is expected on success.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.TaskURL(id), nil)
	return err
}

// --- Users ---

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+loginPath, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var res LoginResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}
	return &res, nil
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, u NewUser) error {
	_, err := c.do(ctx, http.MethodPost, c.baseURL+usersPath, u)
	return err
}

// GetUser fetches a user profile. {"user": {...}} and {"data": {...}}
// wrappers are unwrapped.
func (c *Client) GetUser(ctx context.Context, id string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, c.baseURL+usersPath+"/"+id, nil)
	if err != nil {
		return nil, err
	}
	user := decodeUser(body)
	if user == nil {
		return nil, fmt.Errorf("decode user: unexpected body %q", string(body))
	}
	return user, nil
}

// UpdateUser saves profile fields for user id. Deployments differ in
// how they route it, so the item resource is tried with PUT, then
// PATCH, and a 404 on the PATCH falls through to a PATCH on the users
// collection with the id in the body. A 401 on the PATCH is returned
// as is; the caller should drop the session. The saved profile is
// returned when the server echoes one.
func (c *Client) UpdateUser(ctx context.Context, id string, fields ProfileUpdate) (map[string]any, error) {
	url := c.baseURL + usersPath + "/" + id
	body, err := c.do(ctx, http.MethodPut, url, fields)
	if err == nil {
		return decodeUser(body), nil
	}
	if !isStatusError(err) {
		return nil, err
	}
	log.WithError(err).Debug("profile PUT failed, trying PATCH")

	body, err = c.do(ctx, http.MethodPatch, url, fields)
	if err == nil {
		return decodeUser(body), nil
	}
	if !IsStatus(err, http.StatusNotFound) {
		return nil, err
	}
	log.Debug("profile PATCH not routed, trying users collection")

	coll := map[string]string{"id": id}
	for k, v := range fields {
		coll[k] = v
	}
	body, err = c.do(ctx, http.MethodPatch, c.baseURL+usersPath, coll)
	if err != nil {
		return nil, err
	}
	return decodeUser(body), nil
}

// ForgotPassword asks the API to send reset instructions to email and
// returns the server's message, if any.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+forgotPath, map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	return ServerMessage(body), nil
}

// ResetPassword sets a new password using the token from the reset mail.
func (c *Client) ResetPassword(ctx context.Context, r PasswordReset) error {
	_, err := c.do(ctx, http.MethodPost, c.baseURL+resetPath, r)
	return err
}

func isStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// decodeUser unwraps {"user": {...}} or {"data": {...}}. Empty or
// non-object bodies yield nil.
func decodeUser(body []byte) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil
	}
	for _, k := range []string{"user", "data"} {
		if inner, ok := obj[k].(map[string]any); ok {
			return inner
		}
	}
	return obj
}
