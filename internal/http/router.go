package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/surajM3157/myAPI/internal/repository"
	"github.com/surajM3157/myAPI/internal/service/auth"
	"github.com/surajM3157/myAPI/internal/service/user"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	auth    auth.Service
	users   user.Service
	limiter RateLimiter

	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitReset     = 5
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, userSvc user.Service, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     authSvc,
		users:    userSvc,
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/users/register", r.audit("/api/users/register", r.withRateLimit("/api/users/register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/api/users/login", r.audit("/api/users/login", r.withRateLimit("/api/users/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/api/users/forgot-password", r.audit("/api/users/forgot-password", r.withRateLimit("/api/users/forgot-password", rateLimitReset, rateWindowDefault, rateLimitKeyIP, r.handleForgotPassword)))
	r.mux.HandleFunc("/api/users/reset-password", r.audit("/api/users/reset-password", r.withRateLimit("/api/users/reset-password", rateLimitReset, rateWindowDefault, rateLimitKeyIP, r.handleResetPassword)))
	r.mux.HandleFunc("/api/users/me", r.audit("/api/users/me", r.handlerAuthRate("/api/users/me", rateLimitUserRead, rateWindowDefault, r.handleMe)))
	r.mux.HandleFunc("/api/users/email/", r.audit("/api/users/email", r.handlerAuthRate("/api/users/email", rateLimitUserRead, rateWindowDefault, r.handleUserByEmail)))
	r.mux.HandleFunc("/api/users", r.audit("/api/users", r.handlerAuthRate("/api/users", rateLimitUserWrite, rateWindowDefault, r.handleUsers)))
	r.mux.HandleFunc("/api/users/", r.audit("/api/users/{id}", r.handlerAuthRate("/api/users/{id}", rateLimitUserWrite, rateWindowDefault, r.handleUserByID)))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Age      *int   `json:"age"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Name == "" || payload.Email == "" || payload.Age == nil || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email, age, and password are required")
		return
	}
	created, err := r.auth.Register(req.Context(), payload.Name, payload.Email, *payload.Age, payload.Password)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "User email already exists")
			return
		}
		r.logger.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error registering user")
		return
	}
	writeData(w, http.StatusCreated, "User registered successfully", userPayload(created, false))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	account, token, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			r.logger.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Error logging in user")
		}
		return
	}
	data := userPayload(account, false)
	data["token"] = token
	writeData(w, http.StatusOK, "User logged in successfully", data)
}

func (r *Router) handleForgotPassword(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	token, expires, err := r.auth.ForgotPassword(req.Context(), payload.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		r.logger.Error("forgot password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error generating reset token")
		return
	}
	// In a real deployment the token goes out by email, not in the body.
	writeData(w, http.StatusOK, "Password reset token generated", map[string]any{
		"resetToken":       token,
		"resetTokenExpire": expires.Format(time.RFC3339),
	})
}

func (r *Router) handleResetPassword(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		ResetToken  string `json:"resetToken"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.ResetToken == "" || payload.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Reset token and new password are required")
		return
	}
	if _, err := r.auth.ResetPassword(req.Context(), payload.ResetToken, payload.NewPassword); err != nil {
		if errors.Is(err, auth.ErrResetTokenInvalid) {
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		r.logger.Error("reset password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error resetting password")
		return
	}
	writeData(w, http.StatusOK, "Password reset successful", nil)
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	account, ok := userFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	writeData(w, http.StatusOK, "", userPayload(account, true))
}

// handleUsers serves the collection routes: list and bulk delete.
func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.handleListUsers(w, req)
	case http.MethodDelete:
		r.handleDeleteAll(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) {
	users, err := r.users.List(req.Context())
	if err != nil {
		r.logger.Error("list users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching users")
		return
	}
	writeData(w, http.StatusOK, "", userListPayload(users))
}

func (r *Router) handleDeleteAll(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !payload.Confirm {
		writeError(w, http.StatusBadRequest, "You must set 'confirm: true' to delete all users")
		return
	}
	count, err := r.users.DeleteAll(req.Context())
	if err != nil {
		r.logger.Error("delete all users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error deleting all users")
		return
	}
	writeData(w, http.StatusOK, fmt.Sprintf("All users deleted successfully (%d users)", count), map[string]any{
		"deletedCount": count,
	})
}

func (r *Router) handleUserByEmail(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	email := strings.TrimPrefix(req.URL.Path, "/api/users/email/")
	if email == "" || strings.Contains(email, "/") {
		r.notFound(w)
		return
	}
	account, err := r.users.GetByEmail(req.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		r.logger.Error("get user by email failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching user")
		return
	}
	writeData(w, http.StatusOK, "", userPayload(account, false))
}

// handleUserByID serves the /api/users/{id} routes.
func (r *Router) handleUserByID(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/api/users/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		// A non-numeric segment cannot name any account.
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	switch req.Method {
	case http.MethodGet:
		r.handleGetUser(w, req, id)
	case http.MethodPut:
		r.handleUpdateUser(w, req, id)
	case http.MethodDelete:
		r.handleDeleteUser(w, req, id)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request, id int64) {
	account, err := r.users.GetByID(req.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		r.logger.Error("get user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching user")
		return
	}
	writeData(w, http.StatusOK, "", userPayload(account, false))
}

func (r *Router) handleUpdateUser(w http.ResponseWriter, req *http.Request, id int64) {
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Age   *int   `json:"age"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Name == "" || payload.Email == "" || payload.Age == nil {
		writeError(w, http.StatusBadRequest, "Name, email, and age are required")
		return
	}
	updated, err := r.users.Update(req.Context(), id, payload.Name, payload.Email, *payload.Age)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, repository.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "User email already exists")
		default:
			r.logger.Error("update user failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Error updating user")
		}
		return
	}
	writeData(w, http.StatusOK, "User updated successfully", userPayload(updated, false))
}

func (r *Router) handleDeleteUser(w http.ResponseWriter, req *http.Request, id int64) {
	if err := r.users.Delete(req.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		r.logger.Error("delete user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error deleting user")
		return
	}
	writeData(w, http.StatusOK, "User deleted successfully", nil)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		reqID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		recorder.Header().Set("X-Request-ID", reqID)
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", reqID,
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if account, ok := userFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", account.ID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
