// internal/catalog/handler.go
package catalog

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

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/books", func(r chi.Router) {
		r.Post("/", h.handleAddBook)
		r.Get("/", h.handleListBooks)
		r.Get("/available", h.handleAvailableBooks)
		r.Get("/{id}", h.handleGetBook)
		r.Delete("/{id}", h.handleRemoveBook)
	})
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		Author string `json:"author"`
		Genre  string `json:"genre"`
		Year   int    `json:"year"`
		ISBN   string `json:"isbn"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book := NewBook(req.Title, req.Author, WithGenre(req.Genre), WithYear(req.Year), WithISBN(req.ISBN))
	// The service owns book once added; answer with the state it was created in.
	created := *book
	if err := h.service.AddBook(r.Context(), book); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Books(r.Context()))
}

func (h *Handler) handleAvailableBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.AvailableBooks(r.Context()))
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, book)
}

func (h *Handler) handleRemoveBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateBook):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidBook):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
