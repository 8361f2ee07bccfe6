// internal/circulation/implementation.go
package circulation

import (
	"time"

	"github.com/google/uuid"

	"librarium/internal/catalog"
	"librarium/internal/membership"
)

// Ledger is the append-only loan history of a library.
// It is not safe for concurrent use.
type Ledger struct {
	loans []*Loan
	now   func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock replaces time.Now as the source of loan and return dates.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoanBook lends an available book to user and records the loan.
func (l *Ledger) LoanBook(book *catalog.Book, user *membership.User) (Loan, error) {
	if user == nil {
		return Loan{}, membership.ErrUserNotFound
	}
	if book == nil || !book.Available {
		return Loan{}, ErrBookUnavailable
	}

	book.Available = false
	loan := &Loan{
		ID:       uuid.New(),
		BookID:   book.ID,
		UserID:   user.ID,
		LoanDate: l.now(),
	}
	l.loans = append(l.loans, loan)
	return *loan, nil
}

// ReturnBook closes the oldest open loan of book and makes it available again.
func (l *Ledger) ReturnBook(book *catalog.Book) (Loan, error) {
	if book == nil {
		return Loan{}, ErrLoanNotFound
	}
	for _, loan := range l.loans {
		if loan.BookID != book.ID || loan.Returned() {
			continue
		}
		returned := l.now()
		if returned.Before(loan.LoanDate) {
			returned = loan.LoanDate
		}
		loan.ReturnDate = returned
		book.Available = true
		return *loan, nil
	}
	return Loan{}, ErrLoanNotFound
}

// Loans returns the whole history, oldest first.
func (l *Ledger) Loans() []Loan {
	out := make([]Loan, 0, len(l.loans))
	for _, loan := range l.loans {
		out = append(out, *loan)
	}
	return out
}

// OpenLoans returns the loans that have not been returned yet.
func (l *Ledger) OpenLoans() []Loan {
	out := []Loan{}
	for _, loan := range l.loans {
		if !loan.Returned() {
			out = append(out, *loan)
		}
	}
	return out
}

// LoansFor returns the history of a single user.
func (l *Ledger) LoansFor(userID uuid.UUID) []Loan {
	out := []Loan{}
	for _, loan := range l.loans {
		if loan.UserID == userID {
			out = append(out, *loan)
		}
	}
	return out
}
