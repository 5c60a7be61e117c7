package user

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/repository"
)

// UseCase covers admin user management: listing users with their task
// rollups, fetching a single user, and deleting accounts. Role gating
// happens at the route level.
type UseCase struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		tasks:  tasks,
		logger: logger,
	}
}

// UserWithCounts annotates a user with counts of the tasks assigned to them.
type UserWithCounts struct {
	domain.User
	PendingTasks    int `json:"pendingTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	CompletedTasks  int `json:"completedTasks"`
}

func (uc *UseCase) List(ctx context.Context) ([]UserWithCounts, error) {
	users, err := uc.users.List(ctx)
	if err != nil {
		return nil, err
	}

	annotated := make([]UserWithCounts, 0, len(users))
	for _, u := range users {
		counts, err := uc.tasks.StatusCounts(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		annotated = append(annotated, UserWithCounts{
			User:            u,
			PendingTasks:    counts[domain.StatusPending],
			InProgressTasks: counts[domain.StatusInProgress],
			CompletedTasks:  counts[domain.StatusCompleted],
		})
	}
	return annotated, nil
}

func (uc *UseCase) Get(ctx context.Context, id string) (*domain.User, error) {
	return uc.users.GetByID(ctx, id)
}

func (uc *UseCase) Delete(ctx context.Context, id string) error {
	if err := uc.users.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}
