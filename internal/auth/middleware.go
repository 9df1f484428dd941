package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/straye-as/labelling-app/internal/domain"
	"go.uber.org/zap"
)

// Middleware resolves the user of each request
type Middleware struct {
	service *Service
	apiKey  string
	logger  *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(service *Service, apiKey string, logger *zap.Logger) *Middleware {
	return &Middleware{
		service: service,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// systemUser is used for requests carrying the admin API key
var systemUser = UserContext{
	Username:      "system",
	DisplayName:   "System",
	Email:         "system@localhost",
	DataScientist: true,
	System:        true,
}

// Identify attaches the user to the request context when a valid API key or
// session cookie is present. Anonymous requests pass through.
func (m *Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-api-key"); key != "" {
			if m.validateAPIKey(key) {
				user := systemUser
				next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), &user)))
				return
			}
			m.logger.Warn("invalid API key attempt",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
		}

		user, err := m.service.UserFromRequest(r)
		if err == nil {
			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), user)))
			return
		}
		if !errors.Is(err, ErrInvalidToken) {
			m.logger.Debug("session cookie rejected", zap.String("path", r.URL.Path), zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects anonymous API requests with 401
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			writeProblem(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireDataScientist rejects API requests of users without the data
// scientist role
func (m *Middleware) RequireDataScientist(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := FromContext(r.Context())
		if !ok {
			writeProblem(w, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, "Unauthorized", "login required")
			return
		}
		if !user.CanViewAnalysis() {
			writeProblem(w, http.StatusForbidden, domain.ErrorTypeForbidden, "Forbidden", "data scientist role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireDataScientistPage redirects anonymous page requests to the login
// page and answers 403 for logged-in users without the role
func (m *Middleware) RequireDataScientistPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := FromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		if !user.CanViewAnalysis() {
			http.Error(w, "Forbidden: data scientist role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func writeProblem(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
