package dto

import (
	"time"

	"github.com/spec-kit/fieldconnect/internal/domain"
)

// UserResponse is the public view of an account. The password hash is never exposed.
type UserResponse struct {
	ID          int64     `json:"id"`
	NIC         string    `json:"nic"`
	Name        string    `json:"name"`
	Email       *string   `json:"email"`
	Role        string    `json:"role"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	BackupPhone string    `json:"backup_phone"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// NewUserResponse maps a user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		NIC:         user.NIC,
		Name:        user.Name,
		Email:       user.Email,
		Role:        string(user.Role),
		Address:     user.Address,
		Phone:       user.Phone,
		BackupPhone: user.BackupPhone,
		CreatedAt:   user.CreatedAt,
	}
}

// NewUserList maps users, never returning nil.
func NewUserList(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
