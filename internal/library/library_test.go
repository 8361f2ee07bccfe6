// internal/library/library_test.go
package library

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/time/rate"

	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/membership"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLibrary(opts ...Option) *Library {
	return New("My Library", append([]Option{WithLogger(quietLogger())}, opts...)...)
}

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

func addUser(t testingT, lib *Library, name string, opts ...membership.UserOption) *membership.User {
	t.Helper()
	u, err := membership.NewUser(name, opts...)
	require.NoError(t, err)
	require.NoError(t, lib.AddUser(context.Background(), u))
	return u
}

func addBook(t testingT, lib *Library, title, author string) *catalog.Book {
	t.Helper()
	b := catalog.NewBook(title, author)
	require.NoError(t, lib.AddBook(context.Background(), b))
	return b
}

func TestTransferScenario(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	book := addBook(t, lib, "1984", "George Orwell")
	alice := addUser(t, lib, "Alice")

	require.NoError(t, lib.BorrowBook(ctx, alice.ID, book.ID))
	assert.Empty(t, lib.Books(ctx))
	borrowed, err := lib.BorrowedBooks(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, book.ID, borrowed[0].ID)

	require.NoError(t, lib.ReturnBorrowedBook(ctx, alice.ID, book.ID))
	books := lib.Books(ctx)
	require.Len(t, books, 1)
	assert.Equal(t, book.ID, books[0].ID)
	borrowed, err = lib.BorrowedBooks(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, borrowed)
}

func TestBorrowUnknownBookChangesNothing(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	kept := addBook(t, lib, "1984", "George Orwell")
	alice := addUser(t, lib, "Alice")

	err := lib.BorrowBook(ctx, alice.ID, uuid.New())

	assert.ErrorIs(t, err, membership.ErrBookNotAvailable)
	assert.Equal(t, []catalog.Book{*kept}, lib.Books(ctx))
	profile, err := lib.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Borrowed)
}

func TestBorrowAndReturnUnknownUser(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	book := addBook(t, lib, "1984", "George Orwell")

	assert.ErrorIs(t, lib.BorrowBook(ctx, uuid.New(), book.ID), membership.ErrUserNotFound)
	assert.ErrorIs(t, lib.ReturnBorrowedBook(ctx, uuid.New(), book.ID), membership.ErrUserNotFound)
	_, err := lib.LoanBook(ctx, book.ID, uuid.New())
	assert.ErrorIs(t, err, membership.ErrUserNotFound)
}

func TestReturnBookBorrowedBySomeoneElse(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	book := addBook(t, lib, "The Catcher in the Rye", "J.D. Salinger")
	john := addUser(t, lib, "John Doe")
	jane := addUser(t, lib, "Jane Smith")
	require.NoError(t, lib.BorrowBook(ctx, john.ID, book.ID))

	assert.ErrorIs(t, lib.BorrowBook(ctx, jane.ID, book.ID), membership.ErrBookNotAvailable)
	assert.ErrorIs(t, lib.ReturnBorrowedBook(ctx, jane.ID, book.ID), membership.ErrBookNotBorrowed)

	got, err := lib.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)
}

func TestLedgerScenario(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2022, 10, 10, 19, 58, 49, 0, time.UTC)
	lib := newTestLibrary(WithClock(func() time.Time { return now }))
	book1 := addBook(t, lib, "The Catcher in the Rye", "J.D. Salinger")
	book2 := addBook(t, lib, "To Kill a Mockingbird", "Harper Lee")
	user1 := addUser(t, lib, "John Doe", membership.WithInsecureLogin("john123", "password"))
	user2 := addUser(t, lib, "Jane Smith", membership.WithInsecureLogin("jane456", "abc123"))

	assert.True(t, lib.AuthenticateUser(ctx, "john123", "password"))

	loan, err := lib.LoanBook(ctx, book1.ID, user1.ID)
	require.NoError(t, err)
	assert.False(t, loan.Returned())
	assert.Equal(t, []catalog.Book{*book2}, lib.AvailableBooks(ctx))

	_, err = lib.LoanBook(ctx, book1.ID, user2.ID)
	assert.ErrorIs(t, err, circulation.ErrBookUnavailable)
	assert.Len(t, lib.Loans(ctx), 1)

	now = now.Add(time.Minute)
	returned, err := lib.ReturnBook(ctx, book1.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, returned.ID)
	assert.Equal(t, now, returned.ReturnDate)
	assert.Len(t, lib.AvailableBooks(ctx), 2)

	require.NoError(t, lib.RemoveBook(ctx, book2.ID))
	available := lib.AvailableBooks(ctx)
	require.Len(t, available, 1)
	assert.Equal(t, book1.ID, available[0].ID)
}

func TestLoanedBookStaysOnShelf(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	book := addBook(t, lib, "1984", "George Orwell")
	alice := addUser(t, lib, "Alice")
	bob := addUser(t, lib, "Bob")

	_, err := lib.LoanBook(ctx, book.ID, alice.ID)
	require.NoError(t, err)

	assert.Len(t, lib.Books(ctx), 1)
	assert.ErrorIs(t, lib.BorrowBook(ctx, bob.ID, book.ID), membership.ErrBookNotAvailable)
}

func TestAddBookRejectsBookHeldByBorrower(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	book := addBook(t, lib, "1984", "George Orwell")
	alice := addUser(t, lib, "Alice")
	require.NoError(t, lib.BorrowBook(ctx, alice.ID, book.ID))

	err := lib.AddBook(ctx, book)

	require.ErrorIs(t, err, catalog.ErrDuplicateBook)
	st := lib.Stats(ctx)
	assert.Equal(t, 0, st.Books)
	assert.Equal(t, 1, st.Borrowed)

	require.NoError(t, lib.ReturnBorrowedBook(ctx, alice.ID, book.ID))
	held, err := lib.BorrowedBooks(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, held)
	assert.Equal(t, []catalog.Book{*book}, lib.Books(ctx))
}

func TestAuthenticateDoesNotHoldLibraryDuringVerification(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	addUser(t, lib, "Alice", membership.WithLogin("alice", "secret"))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, lib.AuthenticateUser(ctx, "alice", "secret"))
		}()
	}
	for i := 0; i < 20; i++ {
		addBook(t, lib, "Dune", "Frank Herbert")
	}
	wg.Wait()

	assert.Len(t, lib.Books(ctx), 20)
	assert.False(t, lib.AuthenticateUser(ctx, "alice", "wrong"))
}

func TestLoanAndReturnUnknownBook(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	alice := addUser(t, lib, "Alice")

	_, err := lib.LoanBook(ctx, uuid.New(), alice.ID)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
	_, err = lib.ReturnBook(ctx, uuid.New())
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func TestRemoveBook(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	book := addBook(t, lib, "1984", "George Orwell")

	require.NoError(t, lib.RemoveBook(ctx, book.ID))
	assert.ErrorIs(t, lib.RemoveBook(ctx, book.ID), catalog.ErrBookNotFound)
	_, err := lib.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	first := addBook(t, lib, "The Catcher in the Rye", "J.D. Salinger")
	addBook(t, lib, "To Kill a Mockingbird", "Harper Lee")
	john := addUser(t, lib, "John Doe")
	require.NoError(t, lib.BorrowBook(ctx, john.ID, first.ID))

	var buf bytes.Buffer
	require.NoError(t, lib.ListBooks(ctx, &buf))
	require.NoError(t, lib.ListBorrowedBooks(ctx, john.ID, &buf))

	assert.Equal(t, "Books in My Library:\n"+
		"1. To Kill a Mockingbird - Harper Lee\n"+
		"Books borrowed by John Doe:\n"+
		"1. The Catcher in the Rye - J.D. Salinger\n", buf.String())
	assert.ErrorIs(t, lib.ListBorrowedBooks(ctx, uuid.New(), &buf), membership.ErrUserNotFound)
}

func TestEveryMutationIsJournaled(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	book := addBook(t, lib, "1984", "George Orwell")
	alice := addUser(t, lib, "Alice")
	require.NoError(t, lib.BorrowBook(ctx, alice.ID, book.ID))
	require.NoError(t, lib.ReturnBorrowedBook(ctx, alice.ID, book.ID))
	_, err := lib.LoanBook(ctx, book.ID, alice.ID)
	require.NoError(t, err)
	_, err = lib.ReturnBook(ctx, book.ID)
	require.NoError(t, err)
	require.NoError(t, lib.RemoveBook(ctx, book.ID))

	events, err := lib.Events(ctx, 0, 100)
	require.NoError(t, err)

	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		"BookAdded", "UserAdded", "BookBorrowed", "BorrowedBookReturned",
		"BookLoaned", "BookReturned", "BookRemoved",
	}, types)

	var added catalog.BookAddedEvent
	require.NoError(t, events[0].Decode(&added))
	assert.Equal(t, book.ID, added.ID)
	assert.Equal(t, 4, events[6].Version)
}

func TestFailedOperationsAreNotJournaled(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()

	assert.Error(t, lib.RemoveBook(ctx, uuid.New()))
	assert.Error(t, lib.AddBook(ctx, &catalog.Book{}))

	events, err := lib.Events(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMutationsAreLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	lib := New("My Library", WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	book := addBook(t, lib, "1984", "George Orwell")
	_ = lib.RemoveBook(ctx, book.ID)
	_ = lib.RemoveBook(ctx, book.ID)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `msg="book added"`)
	assert.Contains(t, lines[0], `library="My Library"`)
	assert.Contains(t, lines[1], `msg="book removed"`)
	assert.Contains(t, lines[2], `msg="book was not found"`)
}

func TestLoginLimiter(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(WithLoginLimiter(rate.NewLimiter(rate.Every(time.Hour), 2)))
	addUser(t, lib, "John Doe", membership.WithInsecureLogin("john123", "password"))

	assert.True(t, lib.AuthenticateUser(ctx, "john123", "password"))
	assert.False(t, lib.AuthenticateUser(ctx, "john123", "wrong"))
	assert.False(t, lib.AuthenticateUser(ctx, "john123", "password"))
}

func TestOperationsEmitSpans(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	lib := newTestLibrary(WithTracerProvider(tp))

	book := addBook(t, lib, "1984", "George Orwell")
	_, err := lib.ReturnBook(ctx, book.ID)
	require.ErrorIs(t, err, circulation.ErrLoanNotFound)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"journal.append", "library.add_book", "library.return_book"}, names)
	assert.Equal(t, "Error", recorder.Ended()[2].Status().Code.String())
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary()
	shelved := addBook(t, lib, "1984", "George Orwell")
	taken := addBook(t, lib, "Dune", "Frank Herbert")
	alice := addUser(t, lib, "Alice")

	require.NoError(t, lib.BorrowBook(ctx, alice.ID, taken.ID))
	_, err := lib.LoanBook(ctx, shelved.ID, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Books:     1,
		Available: 0,
		Borrowed:  1,
		Users:     1,
		Loans:     1,
		OpenLoans: 1,
	}, lib.Stats(ctx))
}
