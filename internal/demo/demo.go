// internal/demo/demo.go

// Package demo replays the two sample library sessions: books handed over
// to users, and books lent through the loan ledger.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"librarium/internal/catalog"
	"librarium/internal/circulation"
	"librarium/internal/library"
	"librarium/internal/membership"
)

// RunTransfer plays a session where users take books off the shelf and bring them back.
func RunTransfer(ctx context.Context, w io.Writer, opts ...library.Option) error {
	lib := library.New("My Library", opts...)
	p := &printer{w: w}

	catcher := catalog.NewBook("The Catcher in the Rye", "J.D. Salinger", catalog.WithISBN("9780316769488"))
	mockingbird := catalog.NewBook("To Kill a Mockingbird", "Harper Lee", catalog.WithISBN("0061120081"))
	orwell := catalog.NewBook("1984", "George Orwell", catalog.WithISBN("9780451524935"))
	for _, b := range []*catalog.Book{catcher, mockingbird, orwell} {
		if err := lib.AddBook(ctx, b); err != nil {
			return err
		}
	}

	john, err := membership.NewUser("John Doe")
	if err != nil {
		return err
	}
	jane, err := membership.NewUser("Jane Smith")
	if err != nil {
		return err
	}
	for _, u := range []*membership.User{john, jane} {
		if err := lib.AddUser(ctx, u); err != nil {
			return err
		}
	}

	type move struct {
		user *membership.User
		book *catalog.Book
	}
	moves := []move{{john, catcher}, {jane, mockingbird}, {jane, catcher}, {john, orwell}}

	p.section("Library")
	p.check(lib.ListBooks(ctx, w))

	p.section("Users")
	for _, m := range moves {
		err := lib.BorrowBook(ctx, m.user.ID, m.book.ID)
		switch {
		case err == nil:
			p.printf("Book '%s' borrowed by %s\n", m.book.Title, m.user.Name)
		case errors.Is(err, membership.ErrBookNotAvailable):
			p.printf("Book '%s' is not available in the library.\n", m.book.Title)
		default:
			return err
		}
	}

	p.section("Library")
	p.check(lib.ListBooks(ctx, w))
	p.section("Users")
	p.check(lib.ListBorrowedBooks(ctx, john.ID, w))
	p.check(lib.ListBorrowedBooks(ctx, jane.ID, w))

	p.section("Returning Books")
	for _, m := range moves {
		err := lib.ReturnBorrowedBook(ctx, m.user.ID, m.book.ID)
		switch {
		case err == nil:
			p.printf("Book '%s' returned by %s\n", m.book.Title, m.user.Name)
		case errors.Is(err, membership.ErrBookNotBorrowed):
			p.printf("Book '%s' was not borrowed by %s\n", m.book.Title, m.user.Name)
		default:
			return err
		}
	}

	p.section("Library")
	p.check(lib.ListBooks(ctx, w))
	p.section("Users")
	p.check(lib.ListBorrowedBooks(ctx, john.ID, w))
	p.check(lib.ListBorrowedBooks(ctx, jane.ID, w))

	return p.err
}

// RunLedger plays a session with logins, a loan, its return and a removal.
func RunLedger(ctx context.Context, w io.Writer, opts ...library.Option) error {
	lib := library.New("My Library", opts...)
	p := &printer{w: w}

	catcher := catalog.NewBook("The Catcher in the Rye", "J.D. Salinger", catalog.WithGenre("Fiction"), catalog.WithYear(1951))
	mockingbird := catalog.NewBook("To Kill a Mockingbird", "Harper Lee", catalog.WithGenre("Fiction"), catalog.WithYear(1960))
	for _, b := range []*catalog.Book{catcher, mockingbird} {
		if err := lib.AddBook(ctx, b); err != nil {
			return err
		}
	}

	john, err := membership.NewUser("John Doe", membership.WithAge(25), membership.WithInsecureLogin("john123", "password"))
	if err != nil {
		return err
	}
	jane, err := membership.NewUser("Jane Smith", membership.WithAge(30), membership.WithInsecureLogin("jane456", "abc123"))
	if err != nil {
		return err
	}
	for _, u := range []*membership.User{john, jane} {
		if err := lib.AddUser(ctx, u); err != nil {
			return err
		}
	}

	p.printf("User authentication: %t\n", lib.AuthenticateUser(ctx, "john123", "password"))

	loan, err := lib.LoanBook(ctx, catcher.ID, john.ID)
	if err != nil {
		return err
	}
	p.printf("Loan: '%s' to %s on %s\n", catcher.Title, john.Name, loan.LoanDate.Format(time.RFC3339))

	if _, err := lib.LoanBook(ctx, catcher.ID, jane.ID); !errors.Is(err, circulation.ErrBookUnavailable) {
		return fmt.Errorf("second loan of %q was not refused: %v", catcher.Title, err)
	}
	p.printf("Loan refused: '%s' is already on loan\n", catcher.Title)

	returned, err := lib.ReturnBook(ctx, catcher.ID)
	if err != nil {
		return err
	}
	p.printf("Returned loan: '%s' by %s on %s\n", catcher.Title, john.Name, returned.ReturnDate.Format(time.RFC3339))

	p.printf("Available books:\n")
	p.check(catalog.WriteListing(w, pointers(lib.AvailableBooks(ctx))))

	if err := lib.RemoveBook(ctx, mockingbird.ID); err != nil {
		return err
	}
	p.printf("Available books after removal:\n")
	p.check(catalog.WriteListing(w, pointers(lib.AvailableBooks(ctx))))

	return p.err
}

// printer keeps the first write error so the scenario can run straight through.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string) {
	p.printf("\n--- %s ---\n", title)
}

func (p *printer) check(err error) {
	if p.err == nil {
		p.err = err
	}
}

func pointers(books []catalog.Book) []*catalog.Book {
	out := make([]*catalog.Book, len(books))
	for i := range books {
		out[i] = &books[i]
	}
	return out
}
