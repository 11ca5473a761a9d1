package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/models"
)

// ErrEmptyToken is returned when /authenticate succeeds without a token
var ErrEmptyToken = errors.New("authentication response did not contain a token")

// AuthService covers login and self-registration
type AuthService struct {
	client *apiclient.Client
}

// NewAuthService creates the auth client
func NewAuthService(client *apiclient.Client) *AuthService {
	return &AuthService{client: client}
}

// Login exchanges credentials for a session token
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := s.client.Do(ctx, http.MethodPost, "/authenticate", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.JWT == "" {
		return "", ErrEmptyToken
	}
	return resp.JWT, nil
}

// Register creates a user account
func (s *AuthService) Register(ctx context.Context, reg *models.Registration) (*models.User, error) {
	var user models.User
	if err := s.client.Do(ctx, http.MethodPost, "/users/post", nil, reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
