// Package client is the command-line side of GophTodo: certificate
// registration, an API client for the HTTPS endpoints and an interactive shell.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/service"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// LoginInfo is the answer of the login endpoint.
type LoginInfo struct {
	Identity    models.Identity `json:"identity"`
	Initialized bool            `json:"initialized"`
}

// API calls the GophTodo HTTPS endpoints.
type API struct {
	HTTP    *http.Client
	BaseURL string
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Kind == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Login reports the caller identity and whether its profile exists.
func (a *API) Login(ctx context.Context) (LoginInfo, error) {
	var info LoginInfo
	err := a.do(ctx, http.MethodPost, "/api/login", nil, &info)
	return info, err
}

// InitProfile creates the caller's profile.
func (a *API) InitProfile(ctx context.Context) (service.ProfileRef, error) {
	var ref service.ProfileRef
	err := a.do(ctx, http.MethodPost, "/api/profile", nil, &ref)
	return ref, err
}

// Profile fetches the caller's profile.
func (a *API) Profile(ctx context.Context) (service.ProfileRef, error) {
	var ref service.ProfileRef
	err := a.do(ctx, http.MethodGet, "/api/profile", nil, &ref)
	return ref, err
}

// Add creates a todo.
func (a *API) Add(ctx context.Context, content string) (service.TaskRef, service.ProfileRef, error) {
	var out struct {
		Todo    service.TaskRef    `json:"todo"`
		Profile service.ProfileRef `json:"profile"`
	}
	err := a.do(ctx, http.MethodPost, "/api/todos", map[string]string{"content": content}, &out)
	return out.Todo, out.Profile, err
}

// List returns live todos matching filter; an empty filter returns all.
func (a *API) List(ctx context.Context, filter string) ([]service.TaskRef, error) {
	path := "/api/todos"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	var out struct {
		Todos []service.TaskRef `json:"todos"`
	}
	err := a.do(ctx, http.MethodGet, path, nil, &out)
	return out.Todos, err
}

// Get fetches one todo.
func (a *API) Get(ctx context.Context, index uint8) (service.TaskRef, error) {
	var ref service.TaskRef
	err := a.do(ctx, http.MethodGet, todoPath(index), nil, &ref)
	return ref, err
}

// Mark completes one todo.
func (a *API) Mark(ctx context.Context, index uint8) (service.TaskRef, error) {
	var ref service.TaskRef
	err := a.do(ctx, http.MethodPost, todoPath(index)+"/mark", nil, &ref)
	return ref, err
}

// Remove deletes one todo and returns the updated profile.
func (a *API) Remove(ctx context.Context, index uint8) (service.ProfileRef, error) {
	var ref service.ProfileRef
	err := a.do(ctx, http.MethodDelete, todoPath(index), nil, &ref)
	return ref, err
}

func todoPath(index uint8) string {
	return "/api/todos/" + strconv.Itoa(int(index))
}
