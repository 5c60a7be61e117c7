package handler

import (
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskforge/backend/api/transport"
	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/internal/infrastructure/blob"
	"github.com/taskforge/backend/pkg/httpcontext"
)

// UploadHandler serves stored profile images by blob id.
type UploadHandler struct {
	baseHandler
	store *blob.Store
}

func NewUploadHandler(store *blob.Store, adapter *httpcontext.Adapter, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		baseHandler: newBaseHandler(adapter, logger),
		store:       store,
	}
}

// @Summary Serve an uploaded profile image
// @Tags uploads
// @Router /uploads/{id} [get]
func (h *UploadHandler) Serve(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondValidation(ctx, "missing upload id")
		return
	}

	b, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			h.respondJSON(ctx, http.StatusNotFound, transport.NewError(string(domain.ErrCodeNotFound), "upload not found", nil))
			return
		}
		h.respondError(ctx, err)
		return
	}

	contentType := b.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.Response.Header.SetContentType(contentType)
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBody(b.Data)
}
