package report

import (
	"context"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/repository"
)

// UseCase renders admin spreadsheet exports. It is a read-only consumer of
// the task and user stores; the core invariants live upstream.
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

// ExportTasks produces an xlsx workbook listing every task with its
// assignees resolved to names and emails.
func (uc *UseCase) ExportTasks(ctx context.Context) ([]byte, error) {
	tasks, err := uc.tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}
	userIndex, err := uc.userIndex(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Tasks Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := []interface{}{"Task ID", "Title", "Description", "Assigned To", "Assigned To Email", "Status", "Due Date", "Priority"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, t := range tasks {
		names, emails := assigneeColumns(t.AssignedTo, userIndex)
		due := "No Due Date"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		row := []interface{}{t.ID, t.Title, t.Description, names, emails, string(t.Status), due, string(t.Priority)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return workbookBytes(f)
}

// ExportUsers produces an xlsx workbook with per-user task rollups.
func (uc *UseCase) ExportUsers(ctx context.Context) ([]byte, error) {
	users, err := uc.users.List(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := uc.tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	type rollup struct {
		total, pending, inProgress, completed, overdue int
	}
	rollups := make(map[string]*rollup, len(users))
	for _, u := range users {
		rollups[u.ID] = &rollup{}
	}
	now := time.Now()
	for _, t := range tasks {
		for _, assignee := range t.AssignedTo {
			stats, ok := rollups[assignee]
			if !ok {
				continue
			}
			stats.total++
			switch t.Status {
			case domain.StatusPending:
				stats.pending++
			case domain.StatusInProgress:
				stats.inProgress++
			case domain.StatusCompleted:
				stats.completed++
			}
			if t.IsOverdue(now) {
				stats.overdue++
			}
		}
	}

	f := excelize.NewFile()
	const sheet = "Users Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := []interface{}{"User ID", "Name", "Email", "Role", "Created At", "Total Tasks", "Pending Tasks", "In Progress Tasks", "Completed Tasks", "Overdue Tasks"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, u := range users {
		stats := rollups[u.ID]
		row := []interface{}{
			u.ID, u.Name, u.Email, string(u.Role), u.CreatedAt.Format("2006-01-02"),
			stats.total, stats.pending, stats.inProgress, stats.completed, stats.overdue,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return workbookBytes(f)
}

func (uc *UseCase) userIndex(ctx context.Context) (map[string]domain.User, error) {
	users, err := uc.users.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.User, len(users))
	for _, u := range users {
		index[u.ID] = u
	}
	return index, nil
}

func assigneeColumns(ids []string, index map[string]domain.User) (names, emails string) {
	var nameList, emailList []string
	for _, id := range ids {
		if u, ok := index[id]; ok {
			nameList = append(nameList, u.Name)
			emailList = append(emailList, u.Email)
		}
	}
	if len(nameList) == 0 {
		return "Unassigned", "Unassigned"
	}
	return strings.Join(nameList, ", "), strings.Join(emailList, ", ")
}

func workbookBytes(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
