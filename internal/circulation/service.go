// internal/circulation/service.go
package circulation

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the circulation operations exposed over HTTP.
type Service interface {
	BorrowBook(ctx context.Context, userID, bookID uuid.UUID) error
	ReturnBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error
	LoanBook(ctx context.Context, bookID, userID uuid.UUID) (Loan, error)
	ReturnBook(ctx context.Context, bookID uuid.UUID) (Loan, error)
	Loans(ctx context.Context) []Loan
}
