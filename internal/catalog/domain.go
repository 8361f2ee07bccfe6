// internal/catalog/domain.go
package catalog

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrDuplicateBook = errors.New("book already in catalog")
	ErrInvalidBook   = errors.New("book needs a title and an author")
)

// Book represents a single copy held by the library.
type Book struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre,omitempty"`
	Year      int       `json:"year,omitempty"`
	ISBN      string    `json:"isbn,omitempty"`
	Available bool      `json:"available"`
}

// BookOption sets an optional attribute on a new Book.
type BookOption func(*Book)

func WithGenre(genre string) BookOption {
	return func(b *Book) { b.Genre = genre }
}

func WithYear(year int) BookOption {
	return func(b *Book) { b.Year = year }
}

func WithISBN(isbn string) BookOption {
	return func(b *Book) { b.ISBN = isbn }
}

// NewBook creates an available book with a fresh ID.
func NewBook(title, author string, opts ...BookOption) *Book {
	b := &Book{
		ID:        uuid.New(),
		Title:     title,
		Author:    author,
		Available: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Validate reports whether the book carries the mandatory fields.
func (b *Book) Validate() error {
	if b == nil || b.ID == uuid.Nil || b.Title == "" || b.Author == "" {
		return ErrInvalidBook
	}
	return nil
}

// BookAddedEvent is recorded when a book is put on the shelf.
type BookAddedEvent struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	ISBN   string    `json:"isbn,omitempty"`
}

// BookRemovedEvent is recorded when a book is taken out of the catalog.
type BookRemovedEvent struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}
