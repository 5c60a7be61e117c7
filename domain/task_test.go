package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklistProgress(t *testing.T) {
	tests := []struct {
		name     string
		items    []ChecklistItem
		expected int
	}{
		{name: "empty checklist", items: nil, expected: 0},
		{name: "none completed", items: []ChecklistItem{{Text: "a"}, {Text: "b"}}, expected: 0},
		{
			name:     "one of three",
			items:    []ChecklistItem{{Text: "a", Completed: true}, {Text: "b"}, {Text: "c"}},
			expected: 33,
		},
		{
			name:     "two of three rounds up",
			items:    []ChecklistItem{{Text: "a", Completed: true}, {Text: "b", Completed: true}, {Text: "c"}},
			expected: 67,
		},
		{
			name:     "all completed",
			items:    []ChecklistItem{{Text: "a", Completed: true}, {Text: "b", Completed: true}},
			expected: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ChecklistProgress(tt.items))
		})
	}
}

func TestStatusForProgress(t *testing.T) {
	assert.Equal(t, StatusPending, StatusForProgress(0))
	assert.Equal(t, StatusInProgress, StatusForProgress(1))
	assert.Equal(t, StatusInProgress, StatusForProgress(99))
	assert.Equal(t, StatusCompleted, StatusForProgress(100))
}

func TestApplyChecklist(t *testing.T) {
	task := &Task{Status: StatusPending}

	task.ApplyChecklist([]ChecklistItem{
		{Text: "design", Completed: true},
		{Text: "build", Completed: true},
	})
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, StatusCompleted, task.Status)

	task.ApplyChecklist([]ChecklistItem{
		{Text: "design", Completed: true},
		{Text: "build"},
	})
	assert.Equal(t, 50, task.Progress)
	assert.Equal(t, StatusInProgress, task.Status)

	task.ApplyChecklist(nil)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, StatusPending, task.Status)
}

func TestParseStatus(t *testing.T) {
	status, ok := ParseStatus("in-progress")
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, status)

	status, ok = ParseStatus("todo")
	require.True(t, ok)
	assert.Equal(t, StatusPending, status)

	_, ok = ParseStatus("archived")
	assert.False(t, ok)
}

func TestParsePriority(t *testing.T) {
	priority, ok := ParsePriority("HIGH")
	require.True(t, ok)
	assert.Equal(t, PriorityHigh, priority)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestIsAssignee(t *testing.T) {
	task := &Task{AssignedTo: []string{"u1", "u2"}}
	assert.True(t, task.IsAssignee("u2"))
	assert.False(t, task.IsAssignee("u3"))
	assert.False(t, task.IsAssignee(""))
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Task{DueDate: &past, Status: StatusPending}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &future, Status: StatusPending}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &past, Status: StatusCompleted}).IsOverdue(now))
	assert.False(t, (&Task{Status: StatusPending}).IsOverdue(now))
}
