package domain

import (
	"math"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskPriority orders tasks by urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Statuses and Priorities enumerate the allowed value sets, in display order.
var (
	Statuses   = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}
	Priorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}
)

// ChecklistItem is a single todo entry on a task.
type ChecklistItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task represents an assignable unit of work.
type Task struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Priority      TaskPriority    `json:"priority"`
	Status        TaskStatus      `json:"status"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	AssignedTo    []string        `json:"assignedTo"`
	CreatedBy     string          `json:"createdBy"`
	Attachments   []string        `json:"attachments"`
	TodoChecklist []ChecklistItem `json:"todoChecklist"`
	Progress      int             `json:"progress"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ParseStatus validates a raw status value. The legacy value "todo" is an
// alias for pending kept for older clients.
func ParseStatus(raw string) (TaskStatus, bool) {
	if raw == "todo" {
		return StatusPending, true
	}
	s := TaskStatus(raw)
	for _, known := range Statuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// ParsePriority normalizes a raw priority value case-insensitively.
func ParsePriority(raw string) (TaskPriority, bool) {
	p := TaskPriority(strings.ToLower(raw))
	for _, known := range Priorities {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// ChecklistProgress computes the completion percentage of a checklist,
// rounded to the nearest integer. An empty checklist counts as 0.
func ChecklistProgress(items []ChecklistItem) int {
	if len(items) == 0 {
		return 0
	}
	completed := CompletedCount(items)
	return int(math.Round(float64(completed) / float64(len(items)) * 100))
}

// CompletedCount returns the number of completed checklist items.
func CompletedCount(items []ChecklistItem) int {
	n := 0
	for _, item := range items {
		if item.Completed {
			n++
		}
	}
	return n
}

// StatusForProgress derives the task status implied by a progress value.
func StatusForProgress(progress int) TaskStatus {
	switch {
	case progress >= 100:
		return StatusCompleted
	case progress > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// ApplyChecklist replaces the checklist and re-derives progress and status
// in the same step, so the two fields can never drift apart.
func (t *Task) ApplyChecklist(items []ChecklistItem) {
	t.TodoChecklist = items
	t.Progress = ChecklistProgress(items)
	t.Status = StatusForProgress(t.Progress)
}

// IsAssignee reports whether the given user id appears in the assignment list.
func (t *Task) IsAssignee(userID string) bool {
	if t == nil {
		return false
	}
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// IsOverdue reports whether the task is past due and not yet completed.
func (t *Task) IsOverdue(reference time.Time) bool {
	if t == nil || t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.Before(reference)
}
