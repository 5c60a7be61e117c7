package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskforge/backend/api/transport"
	"github.com/taskforge/backend/domain"
	"github.com/taskforge/backend/internal/auth"
	"github.com/taskforge/backend/repository"
)

// actingUserKey is where Authenticate stores the resolved user on the
// request context.
const actingUserKey = "acting_user"

// ActingUser returns the user resolved by Authenticate, or nil on an
// unprotected route.
func ActingUser(ctx *fasthttp.RequestCtx) *domain.User {
	user, _ := ctx.UserValue(actingUserKey).(*domain.User)
	return user
}

// Authenticate resolves the acting identity for protected routes: it
// requires a bearer Authorization header, verifies the access token, and
// loads the subject user. Any failure short-circuits with 401 before the
// wrapped handler runs.
func Authenticate(tokens *auth.TokenService, users repository.UserRepository, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			token := bearerToken(ctx)
			if token == "" {
				reject(ctx, fasthttp.StatusUnauthorized, "not authorized, no token")
				return
			}

			userID, err := tokens.VerifyAccessToken(token)
			if err != nil {
				logger.Debug("access token rejected", zap.Error(err))
				reject(ctx, fasthttp.StatusUnauthorized, err.Error())
				return
			}

			loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			user, err := users.GetByID(loadCtx, userID)
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCodeNotFound) {
					reject(ctx, fasthttp.StatusUnauthorized, "user not found")
					return
				}
				logger.Error("acting user lookup failed", zap.Error(err))
				reject(ctx, fasthttp.StatusInternalServerError, "internal error")
				return
			}

			ctx.SetUserValue(actingUserKey, user)
			next(ctx)
		}
	}
}

// RequireAdmin gates admin-only routes. It must run inside Authenticate.
func RequireAdmin(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user := ActingUser(ctx)
		if user == nil || !user.IsAdmin() {
			reject(ctx, fasthttp.StatusForbidden, "access denied, admin only")
			return
		}
		next(ctx)
	}
}

func bearerToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func reject(ctx *fasthttp.RequestCtx, status int, message string) {
	code := domain.ErrCodeUnauthenticated
	switch status {
	case fasthttp.StatusForbidden:
		code = domain.ErrCodeForbidden
	case fasthttp.StatusInternalServerError:
		code = domain.ErrCodeInternal
	}
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(transport.NewError(string(code), message, nil))
	ctx.SetBody(body)
}
