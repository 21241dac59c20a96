package scylla

import (
	"context"
	"errors"
	"time"

	"akshaya-auth/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// Directory is the user store consulted after a successful OTP
// verification. The auth service depends on this interface so tests can
// substitute an in-memory implementation.
type Directory interface {
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID, name, language string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	HealthCheck() error
}
