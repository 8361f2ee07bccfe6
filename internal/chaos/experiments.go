// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/library"
	"librarium/internal/membership"
)

const experimentTimeout = 5 * time.Second

// RegisterLibraryExperiments seeds lib with the fixtures every experiment needs
// and registers them with the engine. maxLogins is the most logins the
// library's limiter lets through a flood of attempts.
func (e *Engine) RegisterLibraryExperiments(ctx context.Context, lib *library.Library, maxLogins int) error {
	loans, err := LoanContentionExperiment(ctx, lib, 16)
	if err != nil {
		return err
	}
	churn, err := ShelfChurnExperiment(ctx, lib, 8, 4, 50)
	if err != nil {
		return err
	}
	flood, err := LoginFloodExperiment(ctx, lib, 50, maxLogins)
	if err != nil {
		return err
	}

	e.RegisterExperiment(loans)
	e.RegisterExperiment(churn)
	e.RegisterExperiment(flood)
	return nil
}

// LoanContentionExperiment has many users try to loan the same book at once.
func LoanContentionExperiment(ctx context.Context, lib *library.Library, workers int) (Experiment, error) {
	book := catalog.NewBook("The Contended Copy", "Chaos Monkey")
	if err := lib.AddBook(ctx, book); err != nil {
		return Experiment{}, err
	}
	users, err := addUsers(ctx, lib, "loan-racer", workers)
	if err != nil {
		return Experiment{}, err
	}

	openLoans := func(ctx context.Context) (float64, error) {
		n := 0
		for _, loan := range lib.Loans(ctx) {
			if loan.BookID == book.ID && !loan.Returned() {
				n++
			}
		}
		return float64(n), nil
	}

	method := make([]Action, 0, len(users))
	for _, u := range users {
		userID := u.ID
		method = append(method, Action{
			Type:   "contention",
			Target: "circulation",
			Execute: func(ctx context.Context) error {
				_, err := lib.LoanBook(ctx, book.ID, userID)
				if errors.Is(err, circulation.ErrBookUnavailable) {
					return nil
				}
				return err
			},
		})
	}

	return Experiment{
		Name:       "concurrent-loan-race-condition",
		Hypothesis: "A book is never on loan to more than one user",
		SteadyState: []Metric{
			{Name: "open_loans", Query: openLoans, Threshold: Threshold{Operator: "<=", Value: 1}},
		},
		Method: method,
		Validation: []Assertion{
			{
				Metric:    "open_loans",
				Condition: func(v float64) bool { return v == 1 },
				Message:   "exactly one loan should win the race",
			},
		},
		Duration: experimentTimeout,
	}, nil
}

// ShelfChurnExperiment has users borrow and return a small set of books in a tight loop.
func ShelfChurnExperiment(ctx context.Context, lib *library.Library, workers, books, rounds int) (Experiment, error) {
	before := lib.Stats(ctx)

	shelf := make([]uuid.UUID, 0, books)
	for i := 0; i < books; i++ {
		b := catalog.NewBook(fmt.Sprintf("Churn Volume %d", i+1), "Chaos Monkey")
		if err := lib.AddBook(ctx, b); err != nil {
			return Experiment{}, err
		}
		shelf = append(shelf, b.ID)
	}
	users, err := addUsers(ctx, lib, "churner", workers)
	if err != nil {
		return Experiment{}, err
	}

	total := float64(before.Books + before.Borrowed + books)
	accounted := func(ctx context.Context) (float64, error) {
		st := lib.Stats(ctx)
		return float64(st.Books + st.Borrowed), nil
	}
	borrowed := func(ctx context.Context) (float64, error) {
		return float64(lib.Stats(ctx).Borrowed), nil
	}

	method := make([]Action, 0, len(users))
	for w, u := range users {
		userID, offset := u.ID, w
		method = append(method, Action{
			Type:   "churn",
			Target: "membership",
			Execute: func(ctx context.Context) error {
				for r := 0; r < rounds; r++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					bookID := shelf[(r+offset)%len(shelf)]
					err := lib.BorrowBook(ctx, userID, bookID)
					if errors.Is(err, membership.ErrBookNotAvailable) {
						continue
					}
					if err != nil {
						return err
					}
					if err := lib.ReturnBorrowedBook(ctx, userID, bookID); err != nil {
						return err
					}
				}
				return nil
			},
		})
	}

	return Experiment{
		Name:       "shelf-churn",
		Hypothesis: "Every book is either on the shelf or held by exactly one user",
		SteadyState: []Metric{
			{Name: "books_accounted", Query: accounted, Threshold: Threshold{Operator: "==", Value: total}},
			{Name: "borrowed_books", Query: borrowed, Threshold: Threshold{Operator: ">=", Value: 0}},
		},
		Method: method,
		Validation: []Assertion{
			{
				Metric:    "borrowed_books",
				Condition: func(v float64) bool { return v == float64(before.Borrowed) },
				Message:   "all churned books should be back on the shelf",
			},
		},
		Duration: experimentTimeout,
	}, nil
}

// LoginFloodExperiment hammers AuthenticateUser with valid credentials.
func LoginFloodExperiment(ctx context.Context, lib *library.Library, attempts, maxAccepted int) (Experiment, error) {
	username := "flood-" + uuid.NewString()[:8]
	u, err := membership.NewUser("Flood Tester", membership.WithLogin(username, "correct horse"))
	if err != nil {
		return Experiment{}, err
	}
	if err := lib.AddUser(ctx, u); err != nil {
		return Experiment{}, err
	}

	var accepted atomic.Int64
	acceptedLogins := func(context.Context) (float64, error) {
		return float64(accepted.Load()), nil
	}

	return Experiment{
		Name:       "login-flood",
		Hypothesis: "The login limiter caps accepted logins during a flood",
		SteadyState: []Metric{
			{Name: "accepted_logins", Query: acceptedLogins, Threshold: Threshold{Operator: "<=", Value: float64(maxAccepted)}},
		},
		Method: []Action{
			{
				Type:   "flood",
				Target: "membership",
				Execute: func(ctx context.Context) error {
					for i := 0; i < attempts; i++ {
						if err := ctx.Err(); err != nil {
							return err
						}
						if lib.AuthenticateUser(ctx, username, "correct horse") {
							accepted.Add(1)
						}
					}
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "accepted_logins",
				Condition: func(v float64) bool { return v >= 1 },
				Message:   "the legitimate user should get in at least once",
			},
		},
		Duration: experimentTimeout,
	}, nil
}

func addUsers(ctx context.Context, lib *library.Library, prefix string, n int) ([]*membership.User, error) {
	users := make([]*membership.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := membership.NewUser(fmt.Sprintf("%s-%d", prefix, i+1))
		if err != nil {
			return nil, err
		}
		if err := lib.AddUser(ctx, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}
