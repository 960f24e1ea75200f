package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/programmerrakibul/book-wagon-client/internal/models"
	"github.com/programmerrakibul/book-wagon-client/pkg/dto"
)

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

// Sync creates or refreshes the backend's record of a signed-in principal.
func (s *UserService) Sync(ctx context.Context, api Backend, p *models.Principal) error {
	if p == nil || p.Email == "" {
		return fmt.Errorf("%w: principal has no email", ErrInvalidInput)
	}

	err := api.PostJSON(ctx, "/users", dto.SyncUserRequest{
		UID:      p.UID,
		Email:    p.Email,
		Name:     p.DisplayName,
		PhotoURL: p.PhotoURL,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to sync user: %w", err)
	}
	return nil
}

// List returns every user known to the backend. Admin only.
func (s *UserService) List(ctx context.Context, api Backend) ([]models.UserRecord, error) {
	var users []models.UserRecord
	if err := api.GetJSON(ctx, "/users", &users); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetRole changes a user's role. Admin only.
func (s *UserService) SetRole(ctx context.Context, api Backend, email string, role models.Role) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err := api.PatchJSON(ctx, "/users/"+url.PathEscape(email)+"/role", dto.UpdateRoleRequest{Role: role.String()}, nil)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}
