// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"librarium/internal/catalog"
	"librarium/internal/membership"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the circulation endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/borrow", h.handleBorrow)
	r.Post("/return", h.handleReturnBorrowed)
	r.Post("/loans", h.handleLoan)
	r.Post("/loans/return", h.handleReturnLoan)
	r.Get("/loans", h.handleListLoans)
}

type loanRequest struct {
	UserID uuid.UUID `json:"user_id"`
	BookID uuid.UUID `json:"book_id"`
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.BorrowBook(r.Context(), req.UserID, req.BookID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleReturnBorrowed(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.ReturnBorrowedBook(r.Context(), req.UserID, req.BookID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := h.service.LoanBook(r.Context(), req.BookID, req.UserID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

func (h *Handler) handleReturnLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID uuid.UUID `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := h.service.ReturnBook(r.Context(), req.BookID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loan)
}

func (h *Handler) handleListLoans(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.Loans(r.Context()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrBookNotFound),
		errors.Is(err, membership.ErrUserNotFound),
		errors.Is(err, ErrLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBookUnavailable),
		errors.Is(err, membership.ErrBookNotAvailable),
		errors.Is(err, membership.ErrBookNotBorrowed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
