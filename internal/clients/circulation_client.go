// internal/clients/circulation_client.go
package clients

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"librarium/internal/circulation"
)

type CirculationClient struct {
	base
}

func NewCirculationClient(baseURL string, httpClient *http.Client) *CirculationClient {
	return &CirculationClient{base: newBase(baseURL, httpClient)}
}

type loanRequest struct {
	UserID uuid.UUID `json:"user_id,omitzero"`
	BookID uuid.UUID `json:"book_id"`
}

// BorrowBook takes a book off the shelf for a user.
func (c *CirculationClient) BorrowBook(ctx context.Context, userID, bookID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/borrow", loanRequest{UserID: userID, BookID: bookID}, http.StatusOK, nil)
}

// ReturnBorrowedBook puts a user's book back on the shelf.
func (c *CirculationClient) ReturnBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/return", loanRequest{UserID: userID, BookID: bookID}, http.StatusOK, nil)
}

func (c *CirculationClient) LoanBook(ctx context.Context, bookID, userID uuid.UUID) (*circulation.Loan, error) {
	var loan circulation.Loan
	if err := c.do(ctx, http.MethodPost, "/loans", loanRequest{UserID: userID, BookID: bookID}, http.StatusCreated, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *CirculationClient) ReturnBook(ctx context.Context, bookID uuid.UUID) (*circulation.Loan, error) {
	var loan circulation.Loan
	if err := c.do(ctx, http.MethodPost, "/loans/return", loanRequest{BookID: bookID}, http.StatusOK, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *CirculationClient) Loans(ctx context.Context) ([]circulation.Loan, error) {
	var loans []circulation.Loan
	err := c.do(ctx, http.MethodGet, "/loans", nil, http.StatusOK, &loans)
	return loans, err
}
