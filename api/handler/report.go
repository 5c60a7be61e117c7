package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskforge/backend/pkg/httpcontext"
	reportUC "github.com/taskforge/backend/usecase/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	baseHandler
	uc *reportUC.UseCase
}

func NewReportHandler(uc *reportUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Export all tasks as a spreadsheet
// @Tags reports
// @Router /api/v1/reports/export/tasks [get]
func (h *ReportHandler) ExportTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	workbook, err := h.uc.ExportTasks(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.sendWorkbook(ctx, workbook, "tasks_report.xlsx")
}

// @Summary Export user task rollups as a spreadsheet
// @Tags reports
// @Router /api/v1/reports/export/users [get]
func (h *ReportHandler) ExportUsers(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	workbook, err := h.uc.ExportUsers(stdCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.sendWorkbook(ctx, workbook, "users_report.xlsx")
}

func (h *ReportHandler) sendWorkbook(ctx *fasthttp.RequestCtx, workbook []byte, filename string) {
	ctx.Response.Header.SetContentType(xlsxContentType)
	ctx.Response.Header.Set("Content-Disposition", "attachment; filename="+filename)
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(workbook)
}
