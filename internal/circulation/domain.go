// internal/circulation/domain.go
package circulation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookUnavailable = errors.New("book is already on loan")
	ErrLoanNotFound    = errors.New("no open loan for book")
)

// Loan records one book lent to one user.
type Loan struct {
	ID         uuid.UUID `json:"id"`
	BookID     uuid.UUID `json:"book_id"`
	UserID     uuid.UUID `json:"user_id"`
	LoanDate   time.Time `json:"loan_date"`
	ReturnDate time.Time `json:"return_date,omitzero"`
}

// Returned reports whether the loan has been closed.
func (l Loan) Returned() bool {
	return !l.ReturnDate.IsZero()
}

// BookLoanedEvent is recorded when a loan is opened.
type BookLoanedEvent struct {
	LoanID   uuid.UUID `json:"loan_id"`
	BookID   uuid.UUID `json:"book_id"`
	UserID   uuid.UUID `json:"user_id"`
	LoanDate time.Time `json:"loan_date"`
}

// BookReturnedEvent is recorded when a loan is closed.
type BookReturnedEvent struct {
	LoanID     uuid.UUID `json:"loan_id"`
	BookID     uuid.UUID `json:"book_id"`
	UserID     uuid.UUID `json:"user_id"`
	ReturnDate time.Time `json:"return_date"`
}
