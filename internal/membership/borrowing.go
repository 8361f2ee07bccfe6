// internal/membership/borrowing.go
package membership

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"librarium/internal/catalog"
)

// Shelf is where a user takes books from and puts them back.
// *catalog.Catalog satisfies it.
type Shelf interface {
	Contains(book *catalog.Book) bool
	AddBook(book *catalog.Book) error
	RemoveBook(book *catalog.Book) error
}

// BorrowBook moves book from the shelf into the user's hands.
// Nothing changes unless the book is on the shelf and available.
func (u *User) BorrowBook(shelf Shelf, book *catalog.Book) error {
	if book == nil || !shelf.Contains(book) || !book.Available {
		return ErrBookNotAvailable
	}
	if err := shelf.RemoveBook(book); err != nil {
		return fmt.Errorf("failed to take book off the shelf: %w", err)
	}
	book.Available = false
	u.borrowed = append(u.borrowed, book)
	return nil
}

// ReturnBook puts a borrowed book back at the end of the shelf.
func (u *User) ReturnBook(shelf Shelf, book *catalog.Book) error {
	if book == nil {
		return ErrBookNotBorrowed
	}
	i := u.indexOf(book.ID)
	if i < 0 {
		return ErrBookNotBorrowed
	}
	book.Available = true
	if err := shelf.AddBook(book); err != nil {
		book.Available = false
		return fmt.Errorf("failed to put book back on the shelf: %w", err)
	}
	u.borrowed = append(u.borrowed[:i], u.borrowed[i+1:]...)
	return nil
}

// Borrowed returns the user's borrowed book with the given ID.
func (u *User) Borrowed(id uuid.UUID) (*catalog.Book, bool) {
	i := u.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return u.borrowed[i], true
}

// BorrowedBooks returns the books the user holds, in borrowing order.
func (u *User) BorrowedBooks() []*catalog.Book {
	out := make([]*catalog.Book, len(u.borrowed))
	copy(out, u.borrowed)
	return out
}

// ListBorrowedBooks writes a 1-indexed listing of the user's books.
func (u *User) ListBorrowedBooks(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Books borrowed by %s:\n", u.Name); err != nil {
		return err
	}
	return catalog.WriteListing(w, u.borrowed)
}

func (u *User) indexOf(id uuid.UUID) int {
	for i, b := range u.borrowed {
		if b.ID == id {
			return i
		}
	}
	return -1
}
