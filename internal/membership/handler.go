// internal/membership/handler.go
package membership

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the membership endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/users", h.handleAddUser)
	r.Get("/users/{id}", h.handleGetUser)
	r.Get("/users/{id}/books", h.handleBorrowedBooks)
	r.Post("/login", h.handleLogin)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.service.AuthenticateUser(r.Context(), req.Username, req.Password) {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	writeJSON(w, map[string]bool{"authenticated": true})
}

func (h *Handler) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
		Age      int    `json:"age"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := []UserOption{WithAge(req.Age)}
	if req.Username != "" {
		opts = append(opts, WithLogin(req.Username, req.Password))
	}
	user, err := NewUser(req.Name, opts...)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	profile := user.Profile()
	if err := h.service.AddUser(r.Context(), user); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profile)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, profile)
}

func (h *Handler) handleBorrowedBooks(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, profile.Borrowed)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (Profile, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return Profile{}, false
	}

	profile, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return Profile{}, false
	}
	return profile, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidUser):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
