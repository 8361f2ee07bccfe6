// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the membership operations exposed over HTTP.
type Service interface {
	AddUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (Profile, error)
	AuthenticateUser(ctx context.Context, username, password string) bool
}
