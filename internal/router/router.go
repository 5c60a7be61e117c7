package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskforge/backend/api/handler"
	"github.com/taskforge/backend/internal/middleware"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Task   *apiHandler.TaskHandler
	User   *apiHandler.UserHandler
	Report *apiHandler.ReportHandler
	Upload *apiHandler.UploadHandler
	Health *apiHandler.HealthHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// New wires every route. protected resolves the acting identity; admin
// additionally requires the admin role and always runs inside protected.
func New(handlers Handlers, protected Middleware) *router.Router {
	r := router.New()

	admin := func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return protected(middleware.RequireAdmin(next))
	}

	r.GET("/health", handlers.Health.Check)
	r.GET("/uploads/{id}", handlers.Upload.Serve)

	// Identity
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", handlers.Auth.Logout)
	r.GET("/api/v1/auth/profile", protected(handlers.Auth.Profile))
	r.PUT("/api/v1/auth/update-profile", protected(handlers.Auth.UpdateProfile))

	// Tasks. Dashboard routes are registered before {id} so the literal
	// segments match first.
	r.GET("/api/v1/tasks/dashboard-data", admin(handlers.Task.Dashboard))
	r.GET("/api/v1/tasks/user-dashboard-data", protected(handlers.Task.UserDashboard))
	r.GET("/api/v1/tasks", protected(handlers.Task.List))
	r.POST("/api/v1/tasks", admin(handlers.Task.Create))
	r.GET("/api/v1/tasks/{id}", protected(handlers.Task.GetByID))
	r.PUT("/api/v1/tasks/{id}", protected(handlers.Task.Update))
	r.DELETE("/api/v1/tasks/{id}", protected(handlers.Task.Delete))
	r.PUT("/api/v1/tasks/{id}/status", protected(handlers.Task.UpdateStatus))
	r.PUT("/api/v1/tasks/{id}/todo", protected(handlers.Task.UpdateChecklist))

	// User management
	r.GET("/api/v1/users", admin(handlers.User.List))
	r.GET("/api/v1/users/{id}", admin(handlers.User.GetByID))
	r.DELETE("/api/v1/users/{id}", admin(handlers.User.Delete))

	// Reports
	r.GET("/api/v1/reports/export/tasks", admin(handlers.Report.ExportTasks))
	r.GET("/api/v1/reports/export/users", admin(handlers.Report.ExportUsers))

	return r
}
