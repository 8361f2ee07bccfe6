// internal/clients/membership_client.go
package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"librarium/internal/membership"
)

type MembershipClient struct {
	base
}

func NewMembershipClient(baseURL string, httpClient *http.Client) *MembershipClient {
	return &MembershipClient{base: newBase(baseURL, httpClient)}
}

func (c *MembershipClient) AddUser(ctx context.Context, name, username, password string, age int) (*membership.Profile, error) {
	req := struct {
		Name     string `json:"name"`
		Username string `json:"username,omitempty"`
		Password string `json:"password,omitempty"`
		Age      int    `json:"age,omitempty"`
	}{name, username, password, age}

	var profile membership.Profile
	if err := c.do(ctx, http.MethodPost, "/users", req, http.StatusCreated, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *MembershipClient) GetUser(ctx context.Context, id uuid.UUID) (*membership.Profile, error) {
	var profile membership.Profile
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s", id), nil, http.StatusOK, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Authenticate reports whether the server accepted the credentials.
func (c *MembershipClient) Authenticate(ctx context.Context, username, password string) (bool, error) {
	req := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}

	err := c.do(ctx, http.MethodPost, "/login", req, http.StatusOK, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
