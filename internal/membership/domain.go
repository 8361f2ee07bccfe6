// internal/membership/domain.go
package membership

import (
	"errors"

	"github.com/google/uuid"

	"librarium/internal/catalog"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateUser    = errors.New("user already registered")
	ErrInvalidUser      = errors.New("user needs a name")
	ErrBookNotAvailable = errors.New("book is not available in the library")
	ErrBookNotBorrowed  = errors.New("book was not borrowed by this user")
)

// User represents a library patron.
type User struct {
	ID         uuid.UUID
	Name       string
	Username   string
	Age        int
	credential *Credential
	borrowed   []*catalog.Book
}

// UserOption sets an optional attribute on a new User.
type UserOption func(*User) error

func WithAge(age int) UserOption {
	return func(u *User) error {
		u.Age = age
		return nil
	}
}

// WithLogin gives the user a username and an Argon2id hashed password.
func WithLogin(username, password string) UserOption {
	return func(u *User) error {
		cred, err := newCredential(SchemeArgon2id, password)
		if err != nil {
			return err
		}
		u.Username = username
		u.credential = cred
		return nil
	}
}

// WithInsecureLogin stores the password in cleartext. Demo use only.
func WithInsecureLogin(username, password string) UserOption {
	return func(u *User) error {
		cred, err := newCredential(SchemePlaintext, password)
		if err != nil {
			return err
		}
		u.Username = username
		u.credential = cred
		return nil
	}
}

// NewUser creates a user with a fresh ID and no borrowed books.
func NewUser(name string, opts ...UserOption) (*User, error) {
	if name == "" {
		return nil, ErrInvalidUser
	}
	u := &User{ID: uuid.New(), Name: name}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Profile is a read-only copy of a User, safe to hand out of the library lock.
type Profile struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Username string         `json:"username,omitempty"`
	Age      int            `json:"age,omitempty"`
	Borrowed []catalog.Book `json:"borrowed_books"`
}

func (u *User) Profile() Profile {
	p := Profile{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Age:      u.Age,
		Borrowed: make([]catalog.Book, 0, len(u.borrowed)),
	}
	for _, b := range u.borrowed {
		p.Borrowed = append(p.Borrowed, *b)
	}
	return p
}

// UserAddedEvent is recorded when a user joins the library.
type UserAddedEvent struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username,omitempty"`
}

// BookBorrowedEvent is recorded when a book moves from the shelf to a user.
type BookBorrowedEvent struct {
	UserID uuid.UUID `json:"user_id"`
	BookID uuid.UUID `json:"book_id"`
}

// BorrowedBookReturnedEvent is recorded when a user puts a book back on the shelf.
type BorrowedBookReturnedEvent struct {
	UserID uuid.UUID `json:"user_id"`
	BookID uuid.UUID `json:"book_id"`
}
