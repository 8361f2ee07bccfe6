// internal/seed/seed.go

// Package seed loads an initial set of books and users from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"librarium/internal/catalog"
	"librarium/internal/membership"
)

// File is the document layout:
//
//	books:
//	  - title: "1984"
//	    author: George Orwell
//	users:
//	  - name: Alice
//	    username: alice
//	    password: secret
type File struct {
	Books []BookEntry `yaml:"books"`
	Users []UserEntry `yaml:"users"`
}

type BookEntry struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Genre  string `yaml:"genre"`
	Year   int    `yaml:"year"`
	ISBN   string `yaml:"isbn"`
}

type UserEntry struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Age      int    `yaml:"age"`
	// Plaintext stores the password without hashing.
	Plaintext bool `yaml:"plaintext"`
}

// Target receives the seeded entities. *library.Library satisfies it.
type Target interface {
	AddBook(ctx context.Context, book *catalog.Book) error
	AddUser(ctx context.Context, user *membership.User) error
}

// Result reports what was created.
type Result struct {
	Books []*catalog.Book
	Users []*membership.User
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	return &f, nil
}

// LoadFile parses path and applies it to target.
func LoadFile(ctx context.Context, path string, target Target) (*Result, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, err
	}
	return f.Apply(ctx, target)
}

// Apply adds every book, then every user, stopping at the first failure.
func (f *File) Apply(ctx context.Context, target Target) (*Result, error) {
	res := &Result{}

	for i, e := range f.Books {
		book := catalog.NewBook(e.Title, e.Author,
			catalog.WithGenre(e.Genre),
			catalog.WithYear(e.Year),
			catalog.WithISBN(e.ISBN),
		)
		if err := target.AddBook(ctx, book); err != nil {
			return res, fmt.Errorf("book %d (%q): %w", i+1, e.Title, err)
		}
		res.Books = append(res.Books, book)
	}

	for i, e := range f.Users {
		user, err := membership.NewUser(e.Name, e.options()...)
		if err == nil {
			err = target.AddUser(ctx, user)
		}
		if err != nil {
			return res, fmt.Errorf("user %d (%q): %w", i+1, e.Name, err)
		}
		res.Users = append(res.Users, user)
	}

	return res, nil
}

func (e UserEntry) options() []membership.UserOption {
	var opts []membership.UserOption
	if e.Age != 0 {
		opts = append(opts, membership.WithAge(e.Age))
	}
	if e.Username != "" {
		if e.Plaintext {
			opts = append(opts, membership.WithInsecureLogin(e.Username, e.Password))
		} else {
			opts = append(opts, membership.WithLogin(e.Username, e.Password))
		}
	}
	return opts
}
