package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ACondori95/admin-tarea/middleware"
	"github.com/ACondori95/admin-tarea/services"
)

// Services bundles everything the HTTP surface is served from.
type Services struct {
	Users      *services.UserService
	Tasks      *services.TaskService
	Dashboards *services.DashboardService
	Reports    *services.ReportService
	Ping       PingFunc
	ClientURL  string
	DBTimeout  time.Duration
}

// NewRouter registers every route. Static task paths precede /api/tasks/{id}.
func NewRouter(s Services) http.Handler {
	authHandler := NewAuthHandler(s.Users)
	taskHandler := NewTaskHandler(s.Tasks, s.Dashboards)
	userHandler := NewUserHandler(s.Users)
	reportHandler := NewReportHandler(s.Reports)

	authenticated := middleware.JWTAuthMiddleware(s.Users)
	session := func(h http.HandlerFunc) http.Handler { return authenticated(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authenticated(middleware.AdminOnly(h)) }

	r := mux.NewRouter()

	r.HandleFunc("/health", HealthHandler(s.Ping)).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.Handle("/api/auth/profile", session(authHandler.GetProfile)).Methods(http.MethodGet)
	r.Handle("/api/auth/profile", session(authHandler.UpdateProfile)).Methods(http.MethodPut, http.MethodPost)

	r.Handle("/api/tasks/dashboard-data", admin(taskHandler.GetDashboardData)).Methods(http.MethodGet)
	r.Handle("/api/tasks/user-dashboard-data", session(taskHandler.GetUserDashboardData)).Methods(http.MethodGet)
	r.Handle("/api/tasks", session(taskHandler.GetTasks)).Methods(http.MethodGet)
	r.Handle("/api/tasks", admin(taskHandler.CreateTask)).Methods(http.MethodPost)
	r.Handle("/api/tasks/{id}", session(taskHandler.GetTask)).Methods(http.MethodGet)
	r.Handle("/api/tasks/{id}", admin(taskHandler.UpdateTask)).Methods(http.MethodPut)
	r.Handle("/api/tasks/{id}", admin(taskHandler.DeleteTask)).Methods(http.MethodDelete)
	r.Handle("/api/tasks/{id}/status", session(taskHandler.UpdateTaskStatus)).Methods(http.MethodPut)
	r.Handle("/api/tasks/{id}/todo", session(taskHandler.UpdateTaskChecklist)).Methods(http.MethodPut)
	r.Handle("/api/tasks/{id}/checklist", session(taskHandler.UpdateTaskChecklist)).Methods(http.MethodPut)

	r.Handle("/api/users", admin(userHandler.GetUsers)).Methods(http.MethodGet)
	r.Handle("/api/users/{id}", session(userHandler.GetUser)).Methods(http.MethodGet)

	r.Handle("/api/reports/export/tasks", admin(reportHandler.ExportTasks)).Methods(http.MethodGet)
	r.Handle("/api/reports/export/users", admin(reportHandler.ExportUsers)).Methods(http.MethodGet)

	return middleware.RequestLogger(middleware.EnableCORS(s.ClientURL)(middleware.RequestTimeout(s.DBTimeout)(r)))
}
