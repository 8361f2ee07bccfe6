// internal/clients/catalog_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"librarium/internal/catalog"
)

type CatalogClient struct {
	base
}

func NewCatalogClient(baseURL string, httpClient *http.Client) *CatalogClient {
	return &CatalogClient{base: newBase(baseURL, httpClient)}
}

// AddBook creates a book and returns it with its assigned ID.
func (c *CatalogClient) AddBook(ctx context.Context, title, author, genre, isbn string, year int) (*catalog.Book, error) {
	req := struct {
		Title  string `json:"title"`
		Author string `json:"author"`
		Genre  string `json:"genre,omitempty"`
		Year   int    `json:"year,omitempty"`
		ISBN   string `json:"isbn,omitempty"`
	}{title, author, genre, year, isbn}

	var book catalog.Book
	if err := c.do(ctx, http.MethodPost, "/books", req, http.StatusCreated, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *CatalogClient) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/books/%s", id), nil, http.StatusOK, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *CatalogClient) Books(ctx context.Context) ([]catalog.Book, error) {
	var books []catalog.Book
	err := c.do(ctx, http.MethodGet, "/books", nil, http.StatusOK, &books)
	return books, err
}

func (c *CatalogClient) AvailableBooks(ctx context.Context) ([]catalog.Book, error) {
	var books []catalog.Book
	err := c.do(ctx, http.MethodGet, "/books/available", nil, http.StatusOK, &books)
	return books, err
}

func (c *CatalogClient) RemoveBook(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/books/%s", id), nil, http.StatusNoContent, nil)
}
