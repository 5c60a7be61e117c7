package repository

import (
	"context"

	"github.com/taskforge/backend/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// ListImageRefs returns every profile image reference currently in use,
	// so the blob sweeper can tell live blobs from orphans.
	ListImageRefs(ctx context.Context) ([]string, error)
}
