// internal/catalog/implementation.go
package catalog

import (
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Catalog is the ordered shelf of books a library currently holds.
// It is not safe for concurrent use; library.Library serializes access.
type Catalog struct {
	name  string
	books []*Book
}

// NewCatalog creates an empty catalog for the named library.
func NewCatalog(name string) *Catalog {
	return &Catalog{name: name}
}

func (c *Catalog) Name() string { return c.name }

func (c *Catalog) Len() int { return len(c.books) }

// AddBook appends a book to the end of the shelf.
func (c *Catalog) AddBook(book *Book) error {
	if err := book.Validate(); err != nil {
		return err
	}
	if c.indexOf(book.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateBook, book.ID)
	}
	c.books = append(c.books, book)
	return nil
}

// RemoveBook takes the book with the same ID off the shelf.
func (c *Catalog) RemoveBook(book *Book) error {
	if book == nil {
		return ErrBookNotFound
	}
	i := c.indexOf(book.ID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrBookNotFound, book.Title)
	}
	c.books = append(c.books[:i], c.books[i+1:]...)
	return nil
}

// Contains reports whether the book is currently on the shelf.
func (c *Catalog) Contains(book *Book) bool {
	return book != nil && c.indexOf(book.ID) >= 0
}

// Find returns the shelved book with the given ID.
func (c *Catalog) Find(id uuid.UUID) (*Book, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return c.books[i], true
}

// Books returns the shelf in insertion order.
func (c *Catalog) Books() []*Book {
	out := make([]*Book, len(c.books))
	copy(out, c.books)
	return out
}

// AvailableBooks returns the books that can currently be lent.
func (c *Catalog) AvailableBooks() []*Book {
	var out []*Book
	for _, b := range c.books {
		if b.Available {
			out = append(out, b)
		}
	}
	return out
}

// ListBooks writes a 1-indexed listing of the shelf.
func (c *Catalog) ListBooks(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Books in %s:\n", c.name); err != nil {
		return err
	}
	return WriteListing(w, c.books)
}

// WriteListing writes one "N. Title - Author" line per book.
func WriteListing(w io.Writer, books []*Book) error {
	for i, b := range books {
		if _, err := fmt.Fprintf(w, "%d. %s - %s\n", i+1, b.Title, b.Author); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) indexOf(id uuid.UUID) int {
	for i, b := range c.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}
