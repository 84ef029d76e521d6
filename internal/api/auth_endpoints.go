package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/englishstudent/client/internal/models"
)

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	UserType  string `json:"user_type,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Login authenticates with username/password and persists the
// returned session.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	payload := map[string]string{"username": username, "password": password}

	var resp models.AuthResponse
	if err := c.doNoAuthJSON(ctx, "/auth/login/", payload, &resp); err != nil {
		return nil, err
	}

	if err := c.tokens.SaveSession(resp.Tokens, resp.User); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return &resp.User, nil
}

// Register creates an account and persists the returned session. A
// duplicate registration surfaces the server's validation message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var resp models.AuthResponse
	if err := c.doNoAuthJSON(ctx, "/auth/register/", req, &resp); err != nil {
		return nil, err
	}

	if err := c.tokens.SaveSession(resp.Tokens, resp.User); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return &resp.User, nil
}

// Me fetches the current profile and refreshes the stored copy.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me/", nil, &user); err != nil {
		return nil, err
	}
	if err := c.tokens.SaveUser(user); err != nil {
		return nil, fmt.Errorf("failed to persist user: %w", err)
	}
	return &user, nil
}

// Logout destroys the local session. The backend keeps no server-side
// session to tear down.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

// doNoAuthJSON posts JSON without bearer auth or refresh-and-retry.
// A 401 here means bad credentials, not an expired session.
func (c *Client) doNoAuthJSON(ctx context.Context, path string, payload, out any) error {
	body, err := jsonBody(payload)
	if err != nil {
		return err
	}

	resp, err := c.doRaw(ctx, http.MethodPost, path, requestOptions{
		body:        body,
		contentType: "application/json",
		accept:      "application/json",
		noAuth:      true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	return decodeJSON(resp, out)
}
