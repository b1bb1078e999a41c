package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atinyakov/GophTodo/internal/middleware"
	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/service"
	"github.com/go-chi/chi/v5"
)

// ProfileService is the profile lifecycle used by TodoHandler.
type ProfileService interface {
	ProfileReader
	InitializeUser(ctx context.Context, owner models.Identity) (service.ProfileRef, error)
}

// TaskService is the todo lifecycle used by TodoHandler.
type TaskService interface {
	AddTodo(ctx context.Context, owner models.Identity, content string) (service.TaskRef, service.ProfileRef, error)
	MarkTodo(ctx context.Context, owner models.Identity, index uint8) (service.TaskRef, error)
	RemoveTodo(ctx context.Context, owner models.Identity, index uint8) (service.ProfileRef, error)
	GetTodo(ctx context.Context, owner models.Identity, index uint8) (service.TaskRef, error)
	ListTodos(ctx context.Context, owner models.Identity, filter string) ([]service.TaskRef, error)
}

// TodoHandler serves the profile and todo endpoints for the authenticated caller.
type TodoHandler struct {
	Profiles ProfileService
	Tasks    TaskService
}

// AddRequest is the body of POST /api/todos.
type AddRequest struct {
	Content string `json:"content"`
}

// AddResponse returns the new todo with the profile as updated by the add.
type AddResponse struct {
	Todo    service.TaskRef    `json:"todo"`
	Profile service.ProfileRef `json:"profile"`
}

// ListResponse is the body of GET /api/todos.
type ListResponse struct {
	Todos []service.TaskRef `json:"todos"`
}

func owner(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
	}
	return id, ok
}

func pathIndex(w http.ResponseWriter, r *http.Request) (uint8, bool) {
	idx, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 8)
	if err != nil {
		writeBadRequest(w, "invalid_index", "index must be an integer in 0..255")
		return 0, false
	}
	return uint8(idx), true
}

// InitProfile handles POST /api/profile.
func (h *TodoHandler) InitProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	ref, err := h.Profiles.InitializeUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// GetProfile handles GET /api/profile.
func (h *TodoHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	ref, err := h.Profiles.GetProfile(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// Add handles POST /api/todos.
func (h *TodoHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid body")
		return
	}
	task, profile, err := h.Tasks.AddTodo(r.Context(), id, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddResponse{Todo: task, Profile: profile})
}

// List handles GET /api/todos with an optional filter query parameter.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	refs, err := h.Tasks.ListTodos(r.Context(), id, r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if refs == nil {
		refs = []service.TaskRef{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Todos: refs})
}

// Get handles GET /api/todos/{index}.
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	ref, err := h.Tasks.GetTodo(r.Context(), id, idx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// Mark handles POST /api/todos/{index}/mark.
func (h *TodoHandler) Mark(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	ref, err := h.Tasks.MarkTodo(r.Context(), id, idx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// Remove handles DELETE /api/todos/{index}.
func (h *TodoHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	ref, err := h.Tasks.RemoveTodo(r.Context(), id, idx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}
