package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRegisterRequest payload for self-service reporter accounts.
type UserRegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Department *string `json:"department"`
	Phone      *string `json:"phone"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest payload for admin-provisioned accounts.
type CreateUserRequest struct {
	UserRegisterRequest
	Role string `json:"role"`
}

// UpdateProfileRequest payload. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FullName   *string `json:"full_name"`
	Department *string `json:"department"`
	Phone      *string `json:"phone"`
}

// ProfileResponse represents a user profile.
type ProfileResponse struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FullName   string      `json:"full_name"`
	Role       domain.Role `json:"role"`
	Department *string     `json:"department"`
	Phone      *string     `json:"phone"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}
