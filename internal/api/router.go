package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/service"
)

// Config holds the router settings.
type Config struct {
	JWTSecret      string
	TokenExpiry    time.Duration
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, svc *service.Service, cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: cfg.JWTSecret, TokenExpiry: cfg.TokenExpiry}
	usersHandler := &UsersHandler{DB: db}
	jobsHandler := &JobsHandler{Service: svc}
	itemsHandler := &ItemsHandler{Service: svc, MaxUploadBytes: cfg.MaxUploadBytes}
	photosHandler := &PhotosHandler{Storage: svc.Storage()}

	authMW := AuthMiddleware(cfg.JWTSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))

	// Jobs: read (all roles), item creation (manager+), job lifecycle (admin).
	mux.Handle("GET /api/jobs", authMW(http.HandlerFunc(jobsHandler.List)))
	mux.Handle("POST /api/jobs", authMW(requireAdmin(http.HandlerFunc(jobsHandler.Create))))
	mux.Handle("GET /api/jobs/{id}", authMW(http.HandlerFunc(jobsHandler.Get)))
	mux.Handle("GET /api/jobs/{id}/items", authMW(http.HandlerFunc(jobsHandler.ListItems)))
	mux.Handle("POST /api/jobs/{id}/items", authMW(requireManager(http.HandlerFunc(jobsHandler.CreateItem))))
	mux.Handle("PUT /api/jobs/{id}/stage", authMW(requireAdmin(http.HandlerFunc(jobsHandler.AdvanceStage))))
	mux.Handle("POST /api/jobs/{id}/online-sale/toggle", authMW(requireAdmin(http.HandlerFunc(jobsHandler.ToggleOnlineSale))))

	// Items: read (all roles), workflow mutations (manager+).
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("GET /api/items/{id}/pending", authMW(http.HandlerFunc(itemsHandler.Pending)))
	mux.Handle("GET /api/items/{id}/events", authMW(http.HandlerFunc(itemsHandler.Events)))
	mux.Handle("POST /api/items/{id}/photos", authMW(requireManager(http.HandlerFunc(itemsHandler.UploadPhotos))))
	mux.Handle("POST /api/items/{id}/analysis", authMW(requireManager(http.HandlerFunc(itemsHandler.Analyze))))
	mux.Handle("POST /api/items/{id}/approvals", authMW(requireManager(http.HandlerFunc(itemsHandler.Approve))))
	mux.Handle("POST /api/items/{id}/reopen", authMW(requireManager(http.HandlerFunc(itemsHandler.Reopen))))
	mux.Handle("POST /api/items/{id}/dispositions", authMW(requireManager(http.HandlerFunc(itemsHandler.MarkDisposition))))

	// Photo bytes for the database storage backend.
	mux.Handle("GET /api/photos/{key...}", authMW(http.HandlerFunc(photosHandler.Get)))

	return RequestIDMiddleware(RecoveryMiddleware(mux))
}
