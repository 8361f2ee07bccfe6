// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the catalog operations exposed over HTTP.
type Service interface {
	AddBook(ctx context.Context, book *Book) error
	GetBook(ctx context.Context, id uuid.UUID) (Book, error)
	RemoveBook(ctx context.Context, id uuid.UUID) error
	Books(ctx context.Context) []Book
	AvailableBooks(ctx context.Context) []Book
}
