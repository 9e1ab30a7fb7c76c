package backend

import (
	"context"
	"net/http"
	"strings"

	"image-studio-client/internal/apperr"
	"image-studio-client/internal/models"
)

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.MessageResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, &apperr.ValidationError{Field: "email", Message: "email and password are required"}
	}
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}

	var result models.MessageResponse
	_, err = c.do(ctx, request{
		op:          "register",
		method:      http.MethodPost,
		path:        "/api/auth/register",
		body:        body,
		contentType: "application/json",
		anonymous:   true,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, &apperr.ValidationError{Field: "email", Message: "email and password are required"}
	}
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}

	var result models.LoginResponse
	_, err = c.do(ctx, request{
		op:          "login",
		method:      http.MethodPost,
		path:        "/api/auth/login",
		body:        body,
		contentType: "application/json",
		anonymous:   true,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Token.AccessToken == "" {
		return nil, &apperr.AuthError{Message: "login response did not include an access token"}
	}
	return &result, nil
}

// LoginWithGoogle exchanges a Google ID token credential for a backend
// session and reshapes the reply like a password login.
func (c *Client) LoginWithGoogle(ctx context.Context, credential string) (*models.LoginResponse, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, &apperr.ValidationError{Field: "credential", Message: "google credential is required"}
	}
	body, err := jsonBody(models.GoogleTokenRequest{Credential: credential, Provider: "google"})
	if err != nil {
		return nil, err
	}

	var result models.GoogleLoginResponse
	_, err = c.do(ctx, request{
		op:          "google login",
		method:      http.MethodPost,
		path:        "/api/auth/google/token",
		body:        body,
		contentType: "application/json",
		anonymous:   true,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, &apperr.AuthError{Message: "google auth failed"}
	}

	return &models.LoginResponse{
		Status:  "success",
		Message: "logged in with Google",
		User:    result.User,
		Token:   models.AccessToken{AccessToken: result.AccessToken},
	}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, request{
		op:     "logout",
		method: http.MethodPost,
		path:   "/api/auth/logout",
	}, nil)
	return err
}

// Validate reports whether the backend still accepts token. Any failure,
// including transport errors, counts as invalid.
func (c *Client) Validate(ctx context.Context, token string) bool {
	body, err := jsonBody(models.ValidateTokenRequest{Token: token})
	if err != nil {
		return false
	}
	_, err = c.do(ctx, request{
		op:          "validate token",
		method:      http.MethodPost,
		path:        "/api/auth/validate",
		body:        body,
		contentType: "application/json",
		anonymous:   true,
	}, nil)
	return err == nil
}
