package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/repository"
)

// fakeTaskRepo is an in-memory TaskRepository used across the tests in this
// package.
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]domain.Task)}
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := t
	return &copied, nil
}

func (r *fakeTaskRepo) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, t := range r.tasks {
		if matches(t, filter) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = *task
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now()
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) Count(_ context.Context, filter repository.TaskFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if matches(t, filter) {
			n++
		}
	}
	return n, nil
}

func (r *fakeTaskRepo) CountOverdue(_ context.Context, assigneeID string, reference time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tasks {
		if matches(t, repository.TaskFilter{AssigneeID: assigneeID}) && t.IsOverdue(reference) {
			n++
		}
	}
	return n, nil
}

func (r *fakeTaskRepo) StatusCounts(_ context.Context, assigneeID string) (map[domain.TaskStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.TaskStatus]int)
	for _, t := range r.tasks {
		if matches(t, repository.TaskFilter{AssigneeID: assigneeID}) {
			counts[t.Status]++
		}
	}
	return counts, nil
}

func (r *fakeTaskRepo) PriorityCounts(_ context.Context, assigneeID string) (map[domain.TaskPriority]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.TaskPriority]int)
	for _, t := range r.tasks {
		if matches(t, repository.TaskFilter{AssigneeID: assigneeID}) {
			counts[t.Priority]++
		}
	}
	return counts, nil
}

func (r *fakeTaskRepo) ListRecent(_ context.Context, assigneeID string, limit int) ([]domain.Task, error) {
	out, err := r.List(context.Background(), repository.TaskFilter{AssigneeID: assigneeID})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(t domain.Task, filter repository.TaskFilter) bool {
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.AssigneeID != "" && !t.IsAssignee(filter.AssigneeID) {
		return false
	}
	return true
}

// fakeUserRepo covers only the lookups the task use case performs.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = *user
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) ListImageRefs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []string
	for _, u := range r.users {
		if u.ProfileImageRef != "" {
			refs = append(refs, u.ProfileImageRef)
		}
	}
	return refs, nil
}
