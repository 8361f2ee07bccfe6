// internal/catalog/catalog_test.go
package catalog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBook(t *testing.T) {
	b := NewBook("1984", "George Orwell", WithGenre("Dystopia"), WithYear(1949), WithISBN("9780451524935"))

	assert.NotEmpty(t, b.ID)
	assert.True(t, b.Available)
	assert.Equal(t, "Dystopia", b.Genre)
	assert.Equal(t, 1949, b.Year)
	assert.Equal(t, "9780451524935", b.ISBN)
	assert.NoError(t, b.Validate())
}

func TestAddBookKeepsInsertionOrder(t *testing.T) {
	c := NewCatalog("My Library")
	first := NewBook("The Catcher in the Rye", "J.D. Salinger")
	second := NewBook("To Kill a Mockingbird", "Harper Lee")

	require.NoError(t, c.AddBook(first))
	require.NoError(t, c.AddBook(second))

	assert.Equal(t, []*Book{first, second}, c.Books())
	assert.Equal(t, 2, c.Len())
}

func TestAddBookRejectsDuplicateAndInvalid(t *testing.T) {
	c := NewCatalog("My Library")
	b := NewBook("1984", "George Orwell")
	require.NoError(t, c.AddBook(b))

	assert.ErrorIs(t, c.AddBook(b), ErrDuplicateBook)
	assert.ErrorIs(t, c.AddBook(&Book{Title: "No ID"}), ErrInvalidBook)
	assert.ErrorIs(t, c.AddBook(nil), ErrInvalidBook)
	assert.Equal(t, 1, c.Len())
}

func TestSameTitleIsADifferentBook(t *testing.T) {
	c := NewCatalog("My Library")
	a := NewBook("1984", "George Orwell")
	b := NewBook("1984", "George Orwell")
	require.NoError(t, c.AddBook(a))
	require.NoError(t, c.AddBook(b))

	require.NoError(t, c.RemoveBook(b))

	assert.Equal(t, []*Book{a}, c.Books())
}

func TestRemoveMissingBookIsNoop(t *testing.T) {
	c := NewCatalog("My Library")
	kept := NewBook("1984", "George Orwell")
	require.NoError(t, c.AddBook(kept))

	err := c.RemoveBook(NewBook("Brave New World", "Aldous Huxley"))

	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Equal(t, []*Book{kept}, c.Books())
}

func TestAvailableBooks(t *testing.T) {
	c := NewCatalog("My Library")
	lent := NewBook("The Catcher in the Rye", "J.D. Salinger")
	free := NewBook("To Kill a Mockingbird", "Harper Lee")
	require.NoError(t, c.AddBook(lent))
	require.NoError(t, c.AddBook(free))
	lent.Available = false

	assert.Equal(t, []*Book{free}, c.AvailableBooks())
}

func TestListBooks(t *testing.T) {
	c := NewCatalog("My Library")
	require.NoError(t, c.AddBook(NewBook("The Catcher in the Rye", "J.D. Salinger")))
	require.NoError(t, c.AddBook(NewBook("1984", "George Orwell")))

	var buf bytes.Buffer
	require.NoError(t, c.ListBooks(&buf))

	assert.Equal(t, "Books in My Library:\n"+
		"1. The Catcher in the Rye - J.D. Salinger\n"+
		"2. 1984 - George Orwell\n", buf.String())
}

func TestFind(t *testing.T) {
	c := NewCatalog("My Library")
	b := NewBook("1984", "George Orwell")
	require.NoError(t, c.AddBook(b))

	got, ok := c.Find(b.ID)
	assert.True(t, ok)
	assert.Same(t, b, got)

	_, ok = c.Find(NewBook("x", "y").ID)
	assert.False(t, ok)
}
