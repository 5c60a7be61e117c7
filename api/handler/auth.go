package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskforge/backend/api/transport"
	"github.com/taskforge/backend/internal/auth"
	"github.com/taskforge/backend/internal/infrastructure/blob"
	"github.com/taskforge/backend/pkg/httpcontext"
	identityUC "github.com/taskforge/backend/usecase/identity"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
	profileImageField = "profilePic"
)

// CookieConfig controls the refresh-token cookie hardening.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	baseHandler
	uc      *identityUC.UseCase
	uploads *blob.Store
	cookie  CookieConfig
}

func NewAuthHandler(uc *identityUC.UseCase, uploads *blob.Store, cookie CookieConfig, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = auth.DefaultRefreshTTL
	}
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		uploads:     uploads,
		cookie:      cookie,
	}
}

// @Summary Register a new account
// @Tags auth
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	var req transport.RegisterRequest
	imageRef, ok := h.parseIdentityForm(ctx, func(values map[string]string) {
		req.Name = values["name"]
		req.Email = values["email"]
		req.Password = values["password"]
		req.AdminInviteToken = values["adminInviteToken"]
	}, &req)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Register(stdCtx, identityUC.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		InviteToken:     req.AdminInviteToken,
		ProfileImageRef: imageRef,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.setRefreshCookie(ctx, result.RefreshToken)
	h.respondSuccess(ctx, http.StatusCreated, transport.AuthResponse{User: result.User, Token: result.AccessToken})
}

// @Summary Log in with email and password
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondValidation(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Login(stdCtx, req.Email, req.Password)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.setRefreshCookie(ctx, result.RefreshToken)
	h.respondSuccess(ctx, http.StatusOK, transport.AuthResponse{User: result.User, Token: result.AccessToken})
}

// @Summary Mint a new access token from the refresh cookie
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	refresh := string(ctx.Request.Header.Cookie(refreshCookieName))
	if refresh == "" {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.NewError("UNAUTHENTICATED", "no refresh token provided", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	access, err := h.uc.Rotate(stdCtx, refresh)
	if err != nil {
		// Invalid or expired refresh tokens answer 403, unlike access
		// token failures.
		h.respondJSON(ctx, http.StatusForbidden, transport.NewError("UNAUTHENTICATED", "invalid or expired refresh token", nil))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.AccessTokenResponse{AccessToken: access})
}

// @Summary Get the acting user's profile
// @Tags auth
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) Profile(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.Profile(stdCtx, actor.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, user)
}

// @Summary Update the acting user's profile
// @Tags auth
// @Router /api/v1/auth/update-profile [put]
func (h *AuthHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	actor := h.actingUser(ctx)

	var req transport.ProfileUpdateRequest
	imageRef, ok := h.parseIdentityForm(ctx, func(values map[string]string) {
		req.Name = values["name"]
		req.Email = values["email"]
		req.Password = values["password"]
	}, &req)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.UpdateProfile(stdCtx, actor.ID, identityUC.ProfilePatch{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ProfileImageRef: imageRef,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.setRefreshCookie(ctx, result.RefreshToken)
	h.respondSuccess(ctx, http.StatusOK, transport.AuthResponse{User: result.User, Token: result.AccessToken})
}

// @Summary Log out and revoke the refresh token
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	refresh := string(ctx.Request.Header.Cookie(refreshCookieName))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	_ = h.uc.Logout(stdCtx, refresh)
	h.clearRefreshCookie(ctx)
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// parseIdentityForm handles the dual encoding of the identity endpoints:
// plain JSON, or multipart with an optional profile image. It returns the
// stored image ref ("" when no file was sent) and whether parsing succeeded.
func (h *AuthHandler) parseIdentityForm(ctx *fasthttp.RequestCtx, fromValues func(map[string]string), jsonTarget interface{}) (string, bool) {
	contentType := string(ctx.Request.Header.ContentType())
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if len(ctx.PostBody()) > 0 {
			if err := json.Unmarshal(ctx.PostBody(), jsonTarget); err != nil {
				h.respondValidation(ctx, "invalid payload")
				return "", false
			}
		}
		return "", true
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		h.respondValidation(ctx, "invalid form payload")
		return "", false
	}

	values := make(map[string]string, len(form.Value))
	for key, vals := range form.Value {
		if len(vals) > 0 {
			values[key] = vals[0]
		}
	}
	fromValues(values)

	files := form.File[profileImageField]
	if len(files) == 0 {
		return "", true
	}

	imageRef, err := h.storeImage(files[0])
	if err != nil {
		if err == blob.ErrTooLarge {
			h.respondValidation(ctx, "profile image too large")
			return "", false
		}
		h.respondError(ctx, err)
		return "", false
	}
	return imageRef, true
}

func (h *AuthHandler) storeImage(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	id, err := h.uploads.Put(data, fh.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	return blob.Ref(id), nil
}

func (h *AuthHandler) setRefreshCookie(ctx *fasthttp.RequestCtx, token *auth.RefreshToken) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(refreshCookieName)
	cookie.SetValue(token.Signed)
	cookie.SetPath(refreshCookiePath)
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(h.cookie.Secure)
	cookie.SetSameSite(fasthttp.CookieSameSiteStrictMode)
	cookie.SetMaxAge(int(h.cookie.MaxAge.Seconds()))
	ctx.Response.Header.SetCookie(cookie)
}

func (h *AuthHandler) clearRefreshCookie(ctx *fasthttp.RequestCtx) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(refreshCookieName)
	cookie.SetValue("")
	cookie.SetPath(refreshCookiePath)
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(h.cookie.Secure)
	cookie.SetSameSite(fasthttp.CookieSameSiteStrictMode)
	cookie.SetMaxAge(-1)
	ctx.Response.Header.SetCookie(cookie)
}
