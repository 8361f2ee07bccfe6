// internal/membership/implementation.go
package membership

import (
	"fmt"

	"github.com/google/uuid"
)

// Registry is the ordered list of users known to a library.
// It is not safe for concurrent use.
type Registry struct {
	users []*User
}

func NewRegistry() *Registry {
	return &Registry{}
}

// AddUser appends a user. Usernames are not required to be unique.
func (r *Registry) AddUser(user *User) error {
	if user == nil || user.ID == uuid.Nil || user.Name == "" {
		return ErrInvalidUser
	}
	if _, ok := r.Find(user.ID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, user.ID)
	}
	r.users = append(r.users, user)
	return nil
}

func (r *Registry) Find(id uuid.UUID) (*User, bool) {
	for _, u := range r.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

func (r *Registry) Users() []*User {
	out := make([]*User, len(r.users))
	copy(out, r.users)
	return out
}

// Authenticate reports whether some user has exactly this username and password.
func (r *Registry) Authenticate(username, password string) bool {
	return VerifyAny(r.Credentials(username), password)
}

// Credentials returns the login secrets of every user named username.
func (r *Registry) Credentials(username string) []*Credential {
	if username == "" {
		return nil
	}
	var creds []*Credential
	for _, u := range r.users {
		if u.Username == username && u.credential != nil {
			creds = append(creds, u.credential)
		}
	}
	return creds
}

// VerifyAny reports whether password matches at least one of creds.
func VerifyAny(creds []*Credential, password string) bool {
	for _, c := range creds {
		if ok, err := c.Verify(password); err == nil && ok {
			return true
		}
	}
	return false
}
