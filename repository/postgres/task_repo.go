package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, title, description, priority, status, due_date, assigned_to, created_by, attachments, todo_checklist, progress, created_at, updated_at`

// assigneeClause matches every task when the parameter is empty, otherwise
// only tasks whose assignment list contains the given user id.
const assigneeClause = `($1 = '' OR $1 = ANY(assigned_to))`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ` + assigneeClause + `
	  AND ($2 = '' OR status = $2)
	ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, filter.AssigneeID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, title, description, priority, status, due_date, assigned_to, created_by, attachments, todo_checklist, progress)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING created_at, updated_at
	`
	checklist, err := json.Marshal(task.TodoChecklist)
	if err != nil {
		return nil, err
	}

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Priority),
		string(task.Status),
		task.DueDate,
		task.AssignedTo,
		task.CreatedBy,
		task.Attachments,
		checklist,
		task.Progress,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	return task, nil
}

// Update rewrites the full task row. The checklist, progress and status
// always travel together in one statement so a concurrent writer can never
// observe a checklist paired with a stale progress value.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		priority = $4,
		status = $5,
		due_date = $6,
		assigned_to = $7,
		attachments = $8,
		todo_checklist = $9,
		progress = $10,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	checklist, err := json.Marshal(task.TodoChecklist)
	if err != nil {
		return err
	}

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Priority),
		string(task.Status),
		task.DueDate,
		task.AssignedTo,
		task.Attachments,
		checklist,
		task.Progress,
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) Count(ctx context.Context, filter repository.TaskFilter) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM tasks
	WHERE ` + assigneeClause + `
	  AND ($2 = '' OR status = $2)
	`
	var count int
	err := r.pool.QueryRow(ctx, query, filter.AssigneeID, string(filter.Status)).Scan(&count)
	return count, err
}

func (r *taskRepository) CountOverdue(ctx context.Context, assigneeID string, reference time.Time) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM tasks
	WHERE ` + assigneeClause + `
	  AND status <> 'completed'
	  AND due_date IS NOT NULL
	  AND due_date < $2
	`
	var count int
	err := r.pool.QueryRow(ctx, query, assigneeID, reference).Scan(&count)
	return count, err
}

func (r *taskRepository) StatusCounts(ctx context.Context, assigneeID string) (map[domain.TaskStatus]int, error) {
	query := `
	SELECT status, COUNT(*)
	FROM tasks
	WHERE ` + assigneeClause + `
	GROUP BY status
	`
	rows, err := r.pool.Query(ctx, query, assigneeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.TaskStatus(status)] = count
	}
	return counts, rows.Err()
}

func (r *taskRepository) PriorityCounts(ctx context.Context, assigneeID string) (map[domain.TaskPriority]int, error) {
	query := `
	SELECT priority, COUNT(*)
	FROM tasks
	WHERE ` + assigneeClause + `
	GROUP BY priority
	`
	rows, err := r.pool.Query(ctx, query, assigneeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TaskPriority]int)
	for rows.Next() {
		var priority string
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		counts[domain.TaskPriority(priority)] = count
	}
	return counts, rows.Err()
}

func (r *taskRepository) ListRecent(ctx context.Context, assigneeID string, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ` + assigneeClause + `
	ORDER BY created_at DESC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, assigneeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var (
		priority  string
		status    string
		due       *time.Time
		checklist []byte
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&priority,
		&status,
		&due,
		&task.AssignedTo,
		&task.CreatedBy,
		&task.Attachments,
		&checklist,
		&task.Progress,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Priority = domain.TaskPriority(priority)
	task.Status = domain.TaskStatus(status)
	task.DueDate = due
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &task.TodoChecklist); err != nil {
			return nil, err
		}
	}
	return &task, nil
}
