package api

import "context"

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a bearer token. The token is returned to
// the caller, not installed on the client: installing it is the session
// store's job, so that the credential and the session state change as one
// ordered step.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, "POST", "/api/auth/login", loginRequest{Username: username, Password: password}, &out)
	return out, err
}

// Register creates a new account and returns the server confirmation
// message. Registration never authenticates the client.
func (c *Client) Register(ctx context.Context, username, email, password string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, "POST", "/api/auth/register",
		registerRequest{Username: username, Email: email, Password: password}, &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}
