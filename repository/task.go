package repository

import (
	"context"
	"time"

	"github.com/taskforge/backend/domain"
)

// TaskFilter narrows task queries. Zero values mean "no restriction":
// an empty AssigneeID matches tasks regardless of assignment, an empty
// Status matches every known status.
type TaskFilter struct {
	AssigneeID string
	Status     domain.TaskStatus
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, filter TaskFilter) (int, error)
	CountOverdue(ctx context.Context, assigneeID string, reference time.Time) (int, error)
	StatusCounts(ctx context.Context, assigneeID string) (map[domain.TaskStatus]int, error)
	PriorityCounts(ctx context.Context, assigneeID string) (map[domain.TaskPriority]int, error)
	ListRecent(ctx context.Context, assigneeID string, limit int) ([]domain.Task, error)
}
