package ports

import (
	"context"

	"github.com/snapmeal/auth-service/internal/core/domain"
)

// UserRepository defines the interface for credential-store persistence.
// Username and email are each globally unique; Create must report collisions
// as domain.ErrUsernameTaken / domain.ErrEmailTaken.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
