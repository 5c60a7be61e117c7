package task

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/repository"
)

const recentTaskLimit = 10

// UseCase is the task lifecycle engine: every task read and write flows
// through here, gated by the authorization matrix in authz.go.
type UseCase struct {
	tasks  repository.TaskRepository
	users  repository.UserRepository
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		users:  users,
		logger: logger,
	}
}

// AssigneeSummary is the slim user projection attached to task reads.
type AssigneeSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// TaskView decorates a task with its derived completed-item count and
// resolved assignee details.
type TaskView struct {
	domain.Task
	CompletedCount  int               `json:"completedCount"`
	AssigneeDetails []AssigneeSummary `json:"assignedToDetails,omitempty"`
}

// SummaryCounts aggregates task counts over one visibility scope.
type SummaryCounts struct {
	All        int `json:"all"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// TaskList is the list response: visible tasks plus summary counts computed
// over the same visibility scope, independent of any status filter.
type TaskList struct {
	Tasks   []TaskView    `json:"tasks"`
	Summary SummaryCounts `json:"summary"`
}

// visibilityScope returns the assignee filter for the actor: admins see
// everything, everyone else only tasks assigned to them.
func visibilityScope(actor *domain.User) string {
	if actor.IsAdmin() {
		return ""
	}
	return actor.ID
}

// List returns the tasks visible to the actor. statusFilter restricts the
// listing when it names a known status and is ignored otherwise; the summary
// counts always cover the full scope.
func (uc *UseCase) List(ctx context.Context, actor *domain.User, statusFilter string) (*TaskList, error) {
	scope := visibilityScope(actor)

	filter := repository.TaskFilter{AssigneeID: scope}
	for _, known := range domain.Statuses {
		if statusFilter == string(known) {
			filter.Status = known
		}
	}

	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}

	views, err := uc.buildViews(ctx, tasks)
	if err != nil {
		return nil, err
	}

	summary := SummaryCounts{}
	counts := []struct {
		status domain.TaskStatus
		dest   *int
	}{
		{"", &summary.All},
		{domain.StatusPending, &summary.Pending},
		{domain.StatusInProgress, &summary.InProgress},
		{domain.StatusCompleted, &summary.Completed},
	}
	for _, c := range counts {
		n, err := uc.tasks.Count(ctx, repository.TaskFilter{AssigneeID: scope, Status: c.status})
		if err != nil {
			return nil, storeError(err)
		}
		*c.dest = n
	}

	return &TaskList{Tasks: views, Summary: summary}, nil
}

// GetByID fetches a single task. Any authenticated user may read any task
// by id; only the list view is scoped by assignment.
func (uc *UseCase) GetByID(ctx context.Context, actor *domain.User, taskID string) (*TaskView, error) {
	t, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, storeError(err)
	}
	return uc.buildView(ctx, t)
}

// CreateInput carries the admin task-creation form.
type CreateInput struct {
	Title         string
	Description   string
	Priority      string
	DueDate       *time.Time
	AssignedTo    []string
	Attachments   []string
	TodoChecklist []domain.ChecklistItem
}

// Create makes a new task. Admin-only; createdBy is forced to the actor
// regardless of input.
func (uc *UseCase) Create(ctx context.Context, actor *domain.User, in CreateInput) (*domain.Task, error) {
	if !CanPerform(actor, ActionCreate, nil) {
		return nil, domain.ErrNotAuthorized
	}
	if in.Title == "" || in.Description == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "title and description required")
	}
	if len(in.AssignedTo) == 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, "at least one assignee required")
	}

	priority := domain.PriorityMedium
	if in.Priority != "" {
		parsed, ok := domain.ParsePriority(in.Priority)
		if !ok {
			return nil, domain.NewError(domain.ErrCodeValidation, "invalid priority value")
		}
		priority = parsed
	}

	checklist := in.TodoChecklist
	if checklist == nil {
		checklist = []domain.ChecklistItem{}
	}

	created, err := uc.tasks.Create(ctx, &domain.Task{
		Title:         in.Title,
		Description:   in.Description,
		Priority:      priority,
		Status:        domain.StatusPending,
		DueDate:       in.DueDate,
		AssignedTo:    in.AssignedTo,
		CreatedBy:     actor.ID,
		Attachments:   in.Attachments,
		TodoChecklist: checklist,
	})
	if err != nil {
		return nil, storeError(err)
	}

	uc.logger.Info("task created",
		zap.String("task_id", created.ID),
		zap.String("created_by", actor.ID))
	return created, nil
}

// UpdatePatch distinguishes absent fields (nil) from explicit values, so a
// PUT may change any subset of the mutable fields.
type UpdatePatch struct {
	Title         *string
	Description   *string
	Priority      *string
	Status        *string
	Attachments   *[]string
	TodoChecklist *[]domain.ChecklistItem
	AssignedTo    *[]string
	DueDate       *time.Time
	DueDateSet    bool
	Progress      *int
}

// Update applies a general patch. Admins and the task's creator may update;
// assignment and due-date changes stay admin-only. A checklist change
// recomputes progress and status in the same write; a direct progress write
// is honored only when the checklist is untouched.
func (uc *UseCase) Update(ctx context.Context, actor *domain.User, taskID string, patch UpdatePatch) (*TaskView, error) {
	t, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, storeError(err)
	}
	if !CanPerform(actor, ActionUpdate, t) {
		return nil, domain.ErrNotAuthorized
	}
	if (patch.AssignedTo != nil || patch.DueDateSet) && !CanPerform(actor, ActionReassign, t) {
		return nil, domain.NewError(domain.ErrCodeForbidden, "only admins can reassign tasks and set due dates")
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		priority, ok := domain.ParsePriority(*patch.Priority)
		if !ok {
			return nil, domain.NewError(domain.ErrCodeValidation, "invalid priority value")
		}
		t.Priority = priority
	}
	if patch.Status != nil {
		status, ok := domain.ParseStatus(*patch.Status)
		if !ok {
			return nil, domain.NewError(domain.ErrCodeValidation, "invalid status value")
		}
		t.Status = status
	}
	if patch.Attachments != nil {
		t.Attachments = *patch.Attachments
	}
	if patch.AssignedTo != nil {
		if len(*patch.AssignedTo) == 0 {
			return nil, domain.NewError(domain.ErrCodeValidation, "at least one assignee required")
		}
		t.AssignedTo = *patch.AssignedTo
	}
	if patch.DueDateSet {
		t.DueDate = patch.DueDate
	}

	if patch.TodoChecklist != nil {
		t.ApplyChecklist(*patch.TodoChecklist)
	} else if patch.Progress != nil {
		if *patch.Progress < 0 || *patch.Progress > 100 {
			return nil, domain.NewError(domain.ErrCodeValidation, "progress must be between 0 and 100")
		}
		t.Progress = *patch.Progress
	}

	if err := uc.tasks.Update(ctx, t); err != nil {
		return nil, storeError(err)
	}
	return uc.buildView(ctx, t)
}

// UpdateStatus writes the status directly, bypassing checklist derivation.
// Admins, the creator, and assignees qualify.
func (uc *UseCase) UpdateStatus(ctx context.Context, actor *domain.User, taskID, rawStatus string) (*TaskView, error) {
	var status domain.TaskStatus
	valid := false
	for _, known := range domain.Statuses {
		if rawStatus == string(known) {
			status, valid = known, true
		}
	}
	if !valid {
		return nil, domain.NewError(domain.ErrCodeValidation, "invalid status value")
	}

	t, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, storeError(err)
	}
	if !CanPerform(actor, ActionSetStatus, t) {
		return nil, domain.ErrNotAuthorized
	}

	t.Status = status
	if err := uc.tasks.Update(ctx, t); err != nil {
		return nil, storeError(err)
	}
	return uc.buildView(ctx, t)
}

// UpdateChecklist replaces the checklist and re-derives progress and status.
// Narrower actor set than Update: admins and assignees only.
func (uc *UseCase) UpdateChecklist(ctx context.Context, actor *domain.User, taskID string, items []domain.ChecklistItem) (*TaskView, error) {
	t, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, storeError(err)
	}
	if !CanPerform(actor, ActionSetChecklist, t) {
		return nil, domain.ErrNotAuthorized
	}

	if items == nil {
		items = []domain.ChecklistItem{}
	}
	t.ApplyChecklist(items)
	if err := uc.tasks.Update(ctx, t); err != nil {
		return nil, storeError(err)
	}
	return uc.buildView(ctx, t)
}

// Delete removes a task. Admins and the creator qualify.
func (uc *UseCase) Delete(ctx context.Context, actor *domain.User, taskID string) error {
	t, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return storeError(err)
	}
	if !CanPerform(actor, ActionDelete, t) {
		return domain.ErrNotAuthorized
	}
	if err := uc.tasks.Delete(ctx, taskID); err != nil {
		return storeError(err)
	}
	uc.logger.Info("task deleted",
		zap.String("task_id", taskID),
		zap.String("deleted_by", actor.ID))
	return nil
}

// DashboardSummary is the admin-wide rollup.
type DashboardSummary struct {
	TotalTasks           int            `json:"totalTasks"`
	PendingTasks         int            `json:"pendingTasks"`
	CompletedTasks       int            `json:"completedTasks"`
	OverdueTasks         int            `json:"overdueTasks"`
	TaskDistribution     map[string]int `json:"taskDistribution"`
	PriorityDistribution map[string]int `json:"priorityDistribution"`
	RecentTasks          []domain.Task  `json:"recentTasks"`
}

// Dashboard computes the admin aggregate over every task.
func (uc *UseCase) Dashboard(ctx context.Context, actor *domain.User) (*DashboardSummary, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewError(domain.ErrCodeForbidden, "access denied")
	}

	statusCounts, err := uc.tasks.StatusCounts(ctx, "")
	if err != nil {
		return nil, storeError(err)
	}
	priorityCounts, err := uc.tasks.PriorityCounts(ctx, "")
	if err != nil {
		return nil, storeError(err)
	}
	overdue, err := uc.tasks.CountOverdue(ctx, "", time.Now())
	if err != nil {
		return nil, storeError(err)
	}
	recent, err := uc.tasks.ListRecent(ctx, "", recentTaskLimit)
	if err != nil {
		return nil, storeError(err)
	}

	statusDist, total := distribution(statusCounts)
	return &DashboardSummary{
		TotalTasks:           total,
		PendingTasks:         statusCounts[domain.StatusPending],
		CompletedTasks:       statusCounts[domain.StatusCompleted],
		OverdueTasks:         overdue,
		TaskDistribution:     statusDist,
		PriorityDistribution: priorityDistribution(priorityCounts),
		RecentTasks:          recent,
	}, nil
}

// UserDashboardSummary is the per-assignee rollup.
type UserDashboardSummary struct {
	TotalTasks       int            `json:"totalTasks"`
	PendingTasks     int            `json:"pendingTasks"`
	InProgressTasks  int            `json:"inProgressTasks"`
	CompletedTasks   int            `json:"completedTasks"`
	OverdueTasks     int            `json:"overdueTasks"`
	TaskDistribution map[string]int `json:"taskDistribution"`
	RecentTasks      []domain.Task  `json:"recentTasks"`
}

// UserDashboard computes the aggregate over tasks assigned to the actor.
// No role restriction.
func (uc *UseCase) UserDashboard(ctx context.Context, actor *domain.User) (*UserDashboardSummary, error) {
	statusCounts, err := uc.tasks.StatusCounts(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err)
	}
	overdue, err := uc.tasks.CountOverdue(ctx, actor.ID, time.Now())
	if err != nil {
		return nil, storeError(err)
	}
	recent, err := uc.tasks.ListRecent(ctx, actor.ID, recentTaskLimit)
	if err != nil {
		return nil, storeError(err)
	}

	statusDist, total := distribution(statusCounts)
	return &UserDashboardSummary{
		TotalTasks:       total,
		PendingTasks:     statusCounts[domain.StatusPending],
		InProgressTasks:  statusCounts[domain.StatusInProgress],
		CompletedTasks:   statusCounts[domain.StatusCompleted],
		OverdueTasks:     overdue,
		TaskDistribution: statusDist,
		RecentTasks:      recent,
	}, nil
}

// distribution zero-fills every known status, adds the "all" total, and
// returns the total alongside.
func distribution(counts map[domain.TaskStatus]int) (map[string]int, int) {
	dist := make(map[string]int, len(domain.Statuses)+1)
	total := 0
	for _, status := range domain.Statuses {
		dist[string(status)] = counts[status]
		total += counts[status]
	}
	dist["all"] = total
	return dist, total
}

func priorityDistribution(counts map[domain.TaskPriority]int) map[string]int {
	dist := make(map[string]int, len(domain.Priorities))
	for _, priority := range domain.Priorities {
		dist[string(priority)] = counts[priority]
	}
	return dist
}

func (uc *UseCase) buildView(ctx context.Context, t *domain.Task) (*TaskView, error) {
	views, err := uc.buildViews(ctx, []domain.Task{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// buildViews resolves assignee summaries once per distinct user. Assignees
// deleted since assignment are skipped rather than failing the read.
func (uc *UseCase) buildViews(ctx context.Context, tasks []domain.Task) ([]TaskView, error) {
	resolved := make(map[string]*AssigneeSummary)
	views := make([]TaskView, 0, len(tasks))

	for _, t := range tasks {
		view := TaskView{
			Task:           t,
			CompletedCount: domain.CompletedCount(t.TodoChecklist),
		}
		for _, userID := range t.AssignedTo {
			summary, seen := resolved[userID]
			if !seen {
				user, err := uc.users.GetByID(ctx, userID)
				switch {
				case err == nil:
					summary = &AssigneeSummary{
						ID:              user.ID,
						Name:            user.Name,
						Email:           user.Email,
						ProfileImageURL: user.ProfileImageRef,
					}
				case domain.IsDomainError(err, domain.ErrCodeNotFound):
					summary = nil
				default:
					return nil, storeError(err)
				}
				resolved[userID] = summary
			}
			if summary != nil {
				view.AssigneeDetails = append(view.AssigneeDetails, *summary)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// storeError keeps domain classifications and wraps raw storage failures as
// internal, so handlers never leak driver errors.
func storeError(err error) error {
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	return domain.WrapError(domain.ErrCodeInternal, "task store failure", err)
}
