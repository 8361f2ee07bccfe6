// internal/membership/membership_test.go
package membership

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/catalog"
)

func newShelf(t *testing.T, books ...*catalog.Book) *catalog.Catalog {
	t.Helper()
	c := catalog.NewCatalog("My Library")
	for _, b := range books {
		require.NoError(t, c.AddBook(b))
	}
	return c
}

func mustUser(t *testing.T, name string, opts ...UserOption) *User {
	t.Helper()
	u, err := NewUser(name, opts...)
	require.NoError(t, err)
	return u
}

func TestNewUserRequiresName(t *testing.T) {
	_, err := NewUser("")
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestBorrowAndReturnRoundTrip(t *testing.T) {
	book := catalog.NewBook("1984", "George Orwell")
	shelf := newShelf(t, book)
	alice := mustUser(t, "Alice")

	require.NoError(t, alice.BorrowBook(shelf, book))
	assert.False(t, shelf.Contains(book))
	assert.Equal(t, []*catalog.Book{book}, alice.BorrowedBooks())
	assert.False(t, book.Available)

	require.NoError(t, alice.ReturnBook(shelf, book))
	assert.True(t, shelf.Contains(book))
	assert.Empty(t, alice.BorrowedBooks())
	assert.True(t, book.Available)
}

func TestReturnedBookGoesToEndOfShelf(t *testing.T) {
	first := catalog.NewBook("The Catcher in the Rye", "J.D. Salinger")
	second := catalog.NewBook("To Kill a Mockingbird", "Harper Lee")
	shelf := newShelf(t, first, second)
	john := mustUser(t, "John Doe")

	require.NoError(t, john.BorrowBook(shelf, first))
	require.NoError(t, john.ReturnBook(shelf, first))

	assert.Equal(t, []*catalog.Book{second, first}, shelf.Books())
}

func TestBorrowBookHeldByAnotherUser(t *testing.T) {
	book := catalog.NewBook("The Catcher in the Rye", "J.D. Salinger")
	shelf := newShelf(t, book)
	john := mustUser(t, "John Doe")
	jane := mustUser(t, "Jane Smith")
	require.NoError(t, john.BorrowBook(shelf, book))

	err := jane.BorrowBook(shelf, book)

	assert.ErrorIs(t, err, ErrBookNotAvailable)
	assert.Empty(t, jane.BorrowedBooks())
	assert.Equal(t, []*catalog.Book{book}, john.BorrowedBooks())
	assert.Zero(t, shelf.Len())
}

func TestBorrowUnavailableBookOnShelf(t *testing.T) {
	book := catalog.NewBook("1984", "George Orwell")
	shelf := newShelf(t, book)
	book.Available = false
	alice := mustUser(t, "Alice")

	assert.ErrorIs(t, alice.BorrowBook(shelf, book), ErrBookNotAvailable)
	assert.True(t, shelf.Contains(book))
}

func TestReturnBookNotBorrowed(t *testing.T) {
	book := catalog.NewBook("1984", "George Orwell")
	shelf := newShelf(t)
	jane := mustUser(t, "Jane Smith")

	assert.ErrorIs(t, jane.ReturnBook(shelf, book), ErrBookNotBorrowed)
	assert.Zero(t, shelf.Len())
}

func TestListBorrowedBooks(t *testing.T) {
	book := catalog.NewBook("1984", "George Orwell")
	shelf := newShelf(t, book)
	john := mustUser(t, "John Doe")
	require.NoError(t, john.BorrowBook(shelf, book))

	var buf bytes.Buffer
	require.NoError(t, john.ListBorrowedBooks(&buf))

	assert.Equal(t, "Books borrowed by John Doe:\n1. 1984 - George Orwell\n", buf.String())
}

func TestAuthenticate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddUser(mustUser(t, "John Doe", WithLogin("john123", "password"), WithAge(25))))
	require.NoError(t, r.AddUser(mustUser(t, "Jane Smith", WithInsecureLogin("jane456", "abc123"))))

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"hashed match", "john123", "password", true},
		{"plaintext match", "jane456", "abc123", true},
		{"wrong password", "john123", "abc123", false},
		{"unknown user", "nobody", "password", false},
		{"empty username", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Authenticate(tt.username, tt.password))
		})
	}
}

func TestAuthenticateDuplicateUsernames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddUser(mustUser(t, "First", WithInsecureLogin("sam", "one"))))
	require.NoError(t, r.AddUser(mustUser(t, "Second", WithInsecureLogin("sam", "two"))))

	assert.True(t, r.Authenticate("sam", "one"))
	assert.True(t, r.Authenticate("sam", "two"))
	assert.False(t, r.Authenticate("sam", "three"))
}

func TestAddUserRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	u := mustUser(t, "Alice")
	require.NoError(t, r.AddUser(u))

	assert.ErrorIs(t, r.AddUser(u), ErrDuplicateUser)
	assert.Len(t, r.Users(), 1)
}

func TestHashedCredentialDoesNotKeepPassword(t *testing.T) {
	u := mustUser(t, "John Doe", WithLogin("john123", "password"))

	assert.Equal(t, SchemeArgon2id, u.credential.Scheme)
	assert.NotEqual(t, "password", u.credential.PasswordHash)
	assert.NotEmpty(t, u.credential.Salt)
}

func TestCredentialsMatchUsernameOnly(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddUser(mustUser(t, "First", WithInsecureLogin("sam", "one"))))
	require.NoError(t, r.AddUser(mustUser(t, "Second", WithLogin("sam", "two"))))
	require.NoError(t, r.AddUser(mustUser(t, "Third", WithInsecureLogin("kim", "one"))))
	require.NoError(t, r.AddUser(mustUser(t, "No Login")))

	creds := r.Credentials("sam")

	require.Len(t, creds, 2)
	assert.True(t, VerifyAny(creds, "two"))
	assert.False(t, VerifyAny(creds, "three"))
	assert.Empty(t, r.Credentials(""))
	assert.False(t, VerifyAny(nil, "one"))
}

func TestArgon2KeyRoundTrip(t *testing.T) {
	key, salt, err := hashPassword("correct horse")
	require.NoError(t, err)

	ok, err := verifyPassword("correct horse", salt, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("battery staple", salt, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = verifyPassword("correct horse", "%%%", key)
	assert.ErrorContains(t, err, "salt")
}
