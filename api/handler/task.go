package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskforge/backend/api/transport"
	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/pkg/httpcontext"
	taskUC "github.com/taskforge/backend/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List visible tasks with summary counts
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) List(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)
	statusFilter := string(ctx.QueryArgs().Peek("status"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	list, err := h.uc.List(stdCtx, actor, statusFilter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, list)
}

// @Summary Fetch a task by id
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetByID(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.GetByID(stdCtx, actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Create a task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) Create(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)

	var req transport.TaskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondValidation(ctx, "invalid payload")
		return
	}

	checklist := []domain.ChecklistItem{}
	if req.TodoChecklist != nil {
		parsed, ok := parseChecklist(req.TodoChecklist)
		if !ok {
			h.respondValidation(ctx, "invalid checklist format")
			return
		}
		checklist = parsed
	}

	var due *time.Time
	if req.DueDate != "" {
		parsed, err := parseDueDate(req.DueDate)
		if err != nil {
			h.respondValidation(ctx, "invalid due date")
			return
		}
		due = parsed
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Create(stdCtx, actor, taskUC.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		DueDate:       due,
		AssignedTo:    req.AssignedTo,
		Attachments:   req.Attachments,
		TodoChecklist: checklist,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update task fields
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) Update(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	var req transport.TaskUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondValidation(ctx, "invalid payload")
		return
	}

	patch := taskUC.UpdatePatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Attachments: req.Attachments,
		AssignedTo:  req.AssignedTo,
		Progress:    req.Progress,
	}

	if req.TodoChecklist != nil {
		checklist, ok := parseChecklist(req.TodoChecklist)
		if !ok {
			h.respondValidation(ctx, "invalid checklist format")
			return
		}
		patch.TodoChecklist = &checklist
	}

	if req.DueDate != nil {
		patch.DueDateSet = true
		if !bytes.Equal(bytes.TrimSpace(req.DueDate), []byte("null")) {
			var raw string
			if err := json.Unmarshal(req.DueDate, &raw); err != nil {
				h.respondValidation(ctx, "invalid due date")
				return
			}
			parsed, err := parseDueDate(raw)
			if err != nil {
				h.respondValidation(ctx, "invalid due date")
				return
			}
			patch.DueDate = parsed
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.Update(stdCtx, actor, id, patch)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Delete a task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, actor, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"message": "task deleted successfully"})
}

// @Summary Set task status directly
// @Tags tasks
// @Router /api/v1/tasks/{id}/status [put]
func (h *TaskHandler) UpdateStatus(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	var req transport.TaskStatusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondValidation(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.UpdateStatus(stdCtx, actor, id, req.Status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Replace the todo checklist
// @Tags tasks
// @Router /api/v1/tasks/{id}/todo [put]
func (h *TaskHandler) UpdateChecklist(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	var req transport.TaskChecklistRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondValidation(ctx, "invalid payload")
		return
	}

	checklist, valid := parseChecklist(req.TodoChecklist)
	if !valid {
		h.respondValidation(ctx, "invalid checklist format")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.uc.UpdateChecklist(stdCtx, actor, id, checklist)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, view)
}

// @Summary Admin dashboard aggregates
// @Tags tasks
// @Router /api/v1/tasks/dashboard-data [get]
func (h *TaskHandler) Dashboard(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	summary, err := h.uc.Dashboard(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, summary)
}

// @Summary Per-user dashboard aggregates
// @Tags tasks
// @Router /api/v1/tasks/user-dashboard-data [get]
func (h *TaskHandler) UserDashboard(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	summary, err := h.uc.UserDashboard(stdCtx, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, summary)
}

func (h *TaskHandler) taskID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondValidation(ctx, "missing task id")
		return "", false
	}
	return id, true
}

// parseChecklist accepts only a JSON array of checklist items. A missing
// value or any other JSON shape is malformed.
func parseChecklist(raw json.RawMessage) ([]domain.ChecklistItem, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []domain.ChecklistItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	if items == nil {
		items = []domain.ChecklistItem{}
	}
	return items, true
}

func parseDueDate(raw string) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
