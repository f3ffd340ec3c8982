package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (Tokens, error) {
	var t Tokens
	err := c.send(ctx, "auth.login", http.MethodPost, "token/", map[string]string{
		"username": username,
		"password": password,
	}, &t)
	return t, err
}

// RegisterRequest is the account sign-up payload.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Password2   string `json:"password2"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.send(ctx, "auth.register", http.MethodPost, "register/", req, nil)
}

// CurrentUser returns the account behind the access token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var u User
	err := c.get(ctx, "auth.user", "user/", nil, &u)
	return u, err
}
