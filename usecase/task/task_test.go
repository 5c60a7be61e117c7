package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/backend/domain"
)

var (
	testAdmin    = domain.User{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin}
	testAssignee = domain.User{ID: "member-1", Name: "Member", Email: "member@example.com", Role: domain.RoleUser}
	testOther    = domain.User{ID: "member-2", Name: "Other", Email: "other@example.com", Role: domain.RoleUser}
)

func newTestUseCase(t *testing.T) (*UseCase, *fakeTaskRepo) {
	t.Helper()
	tasks := newFakeTaskRepo()
	users := newFakeUserRepo(testAdmin, testAssignee, testOther)
	return New(tasks, users, nil), tasks
}

func mustCreate(t *testing.T, uc *UseCase, in CreateInput) *domain.Task {
	t.Helper()
	created, err := uc.Create(context.Background(), &testAdmin, in)
	require.NoError(t, err)
	return created
}

func TestCreate(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{
		Title:       "Ship release",
		Description: "Cut and publish the release",
		Priority:    "High",
		AssignedTo:  []string{testAssignee.ID},
	})

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, domain.PriorityHigh, created.Priority)
	assert.Equal(t, 0, created.Progress)
	assert.Equal(t, testAdmin.ID, created.CreatedBy)
	assert.NotNil(t, created.TodoChecklist)

	_, err := uc.Create(ctx, &testAssignee, CreateInput{
		Title: "x", Description: "y", AssignedTo: []string{testAssignee.ID},
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	_, err = uc.Create(ctx, &testAdmin, CreateInput{Description: "missing title", AssignedTo: []string{"u"}})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	_, err = uc.Create(ctx, &testAdmin, CreateInput{Title: "t", Description: "d"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	_, err = uc.Create(ctx, &testAdmin, CreateInput{
		Title: "t", Description: "d", Priority: "urgent", AssignedTo: []string{"u"},
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestListVisibility(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})
	mustCreate(t, uc, CreateInput{Title: "b", Description: "d", AssignedTo: []string{testOther.ID}})

	adminList, err := uc.List(ctx, &testAdmin, "")
	require.NoError(t, err)
	assert.Len(t, adminList.Tasks, 2)
	assert.Equal(t, 2, adminList.Summary.All)
	assert.Equal(t, 2, adminList.Summary.Pending)

	memberList, err := uc.List(ctx, &testAssignee, "")
	require.NoError(t, err)
	require.Len(t, memberList.Tasks, 1)
	assert.Equal(t, "a", memberList.Tasks[0].Title)
	assert.Equal(t, 1, memberList.Summary.All)
}

func TestListStatusFilter(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	pending := mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})
	_, err := uc.UpdateStatus(ctx, &testAdmin, pending.ID, "completed")
	require.NoError(t, err)
	mustCreate(t, uc, CreateInput{Title: "b", Description: "d", AssignedTo: []string{testAssignee.ID}})

	completed, err := uc.List(ctx, &testAdmin, "completed")
	require.NoError(t, err)
	require.Len(t, completed.Tasks, 1)
	assert.Equal(t, "a", completed.Tasks[0].Title)
	// Summary counts still cover the whole scope.
	assert.Equal(t, 2, completed.Summary.All)
	assert.Equal(t, 1, completed.Summary.Completed)

	// An unknown filter value is ignored rather than rejected.
	all, err := uc.List(ctx, &testAdmin, "nonsense")
	require.NoError(t, err)
	assert.Len(t, all.Tasks, 2)
}

func TestGetByIDNoOwnershipCheck(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})

	view, err := uc.GetByID(ctx, &testOther, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, view.ID)
	require.Len(t, view.AssigneeDetails, 1)
	assert.Equal(t, testAssignee.Name, view.AssigneeDetails[0].Name)

	_, err = uc.GetByID(ctx, &testOther, "missing")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestUpdateChecklistDerivation(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})

	items := []domain.ChecklistItem{
		{Text: "one", Completed: true},
		{Text: "two", Completed: false},
	}
	view, err := uc.Update(ctx, &testAdmin, created.ID, UpdatePatch{TodoChecklist: &items})
	require.NoError(t, err)
	assert.Equal(t, 50, view.Progress)
	assert.Equal(t, domain.StatusInProgress, view.Status)
	assert.Equal(t, 1, view.CompletedCount)
}

func TestUpdateReassignForbidden(t *testing.T) {
	uc, tasks := newTestUseCase(t)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})
	created.CreatedBy = testAssignee.ID
	tasks.tasks[created.ID] = *created

	newAssignees := []string{testOther.ID}
	_, err := uc.Update(ctx, &testAssignee, created.ID, UpdatePatch{AssignedTo: &newAssignees})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	due := time.Now().Add(24 * time.Hour)
	_, err = uc.Update(ctx, &testAssignee, created.ID, UpdatePatch{DueDate: &due, DueDateSet: true})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	title := "renamed"
	view, err := uc.Update(ctx, &testAssignee, created.ID, UpdatePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", view.Title)
}

func TestUpdateStatusActors(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})

	view, err := uc.UpdateStatus(ctx, &testAssignee, created.ID, "in-progress")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, view.Status)

	_, err = uc.UpdateStatus(ctx, &testOther, created.ID, "completed")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	// The legacy "todo" alias is only honored on the general update path.
	_, err = uc.UpdateStatus(ctx, &testAssignee, created.ID, "todo")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestUpdateChecklistActors(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})

	items := []domain.ChecklistItem{{Text: "x", Completed: true}}
	view, err := uc.UpdateChecklist(ctx, &testAssignee, created.ID, items)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, domain.StatusCompleted, view.Status)

	_, err = uc.UpdateChecklist(ctx, &testOther, created.ID, items)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	view, err = uc.UpdateChecklist(ctx, &testAdmin, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Progress)
	assert.Equal(t, domain.StatusPending, view.Status)
}

func TestDelete(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})

	err := uc.Delete(ctx, &testAssignee, created.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	require.NoError(t, uc.Delete(ctx, &testAdmin, created.ID))

	err = uc.Delete(ctx, &testAdmin, created.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestDashboard(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	mustCreate(t, uc, CreateInput{Title: "a", Description: "d", AssignedTo: []string{testAssignee.ID}})
	done := mustCreate(t, uc, CreateInput{Title: "b", Description: "d", Priority: "high", AssignedTo: []string{testOther.ID}})
	_, err := uc.UpdateStatus(ctx, &testAdmin, done.ID, "completed")
	require.NoError(t, err)

	_, err = uc.Dashboard(ctx, &testAssignee)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	summary, err := uc.Dashboard(ctx, &testAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTasks)
	assert.Equal(t, 1, summary.PendingTasks)
	assert.Equal(t, 1, summary.CompletedTasks)
	assert.Equal(t, 2, summary.TaskDistribution["all"])
	assert.Equal(t, 0, summary.TaskDistribution["in-progress"])
	assert.Equal(t, 1, summary.PriorityDistribution["high"])
	assert.Equal(t, 1, summary.PriorityDistribution["medium"])
	assert.Equal(t, 0, summary.PriorityDistribution["low"])
	assert.Len(t, summary.RecentTasks, 2)
}

func TestUserDashboard(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	mine := mustCreate(t, uc, CreateInput{Title: "mine", Description: "d", AssignedTo: []string{testAssignee.ID}})
	mustCreate(t, uc, CreateInput{Title: "other", Description: "d", AssignedTo: []string{testOther.ID}})
	_, err := uc.UpdateStatus(ctx, &testAssignee, mine.ID, "in-progress")
	require.NoError(t, err)

	summary, err := uc.UserDashboard(ctx, &testAssignee)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalTasks)
	assert.Equal(t, 1, summary.InProgressTasks)
	assert.Equal(t, 0, summary.PendingTasks)
	require.Len(t, summary.RecentTasks, 1)
	assert.Equal(t, "mine", summary.RecentTasks[0].Title)
}

func TestViewsSkipDeletedAssignees(t *testing.T) {
	tasks := newFakeTaskRepo()
	users := newFakeUserRepo(testAdmin, testAssignee)
	uc := New(tasks, users, nil)
	ctx := context.Background()

	created := mustCreate(t, uc, CreateInput{
		Title:       "a",
		Description: "d",
		AssignedTo:  []string{testAssignee.ID, "deleted-user"},
	})

	view, err := uc.GetByID(ctx, &testAdmin, created.ID)
	require.NoError(t, err)
	require.Len(t, view.AssigneeDetails, 1)
	assert.Equal(t, testAssignee.ID, view.AssigneeDetails[0].ID)
}
