package dto

import "time"

type UserResponse struct {
	UID           string     `json:"uid"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	LastSignInAt  *time.Time `json:"last_sign_in_at,omitempty"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Loading       bool          `json:"loading"`
	User          *UserResponse `json:"user,omitempty"`
	Role          string        `json:"role,omitempty"`
	RoleState     string        `json:"role_state"`
}

type SyncUserRequest struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}
