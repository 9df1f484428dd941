package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/straye-as/labelling-app/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// ErrTooManyAttempts is returned when a username exceeded its login budget
var ErrTooManyAttempts = errors.New("too many login attempts, try again later")

// LoginLimiter throttles login attempts per username
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLoginLimiter allows attempts per minute for each username
func NewLoginLimiter(attempts int) *LoginLimiter {
	if attempts <= 0 {
		attempts = 5
	}
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(attempts)),
		burst:    attempts,
	}
}

// Allow consumes one attempt for username
func (l *LoginLimiter) Allow(username string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[username]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[username] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Service handles login, logout, registration and session cookies
type Service struct {
	registry     *Registry
	limiter      *LoginLimiter
	secureCookie bool
	dummyHash    []byte
	logger       *zap.Logger
	now          func() time.Time
}

// ServiceOptions configures the auth service
type ServiceOptions struct {
	MaxLoginAttempts int
	SecureCookie     bool
}

// NewService creates the auth service
func NewService(registry *Registry, opts ServiceOptions, logger *zap.Logger) *Service {
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("unknown-user"), bcrypt.DefaultCost)
	return &Service{
		registry:     registry,
		limiter:      NewLoginLimiter(opts.MaxLoginAttempts),
		secureCookie: opts.SecureCookie,
		dummyHash:    dummyHash,
		logger:       logger,
		now:          time.Now,
	}
}

// Registry returns the user registry
func (s *Service) Registry() *Registry {
	return s.registry
}

// Login checks a username and password against the registry
func (s *Service) Login(ctx context.Context, username, password string) (*UserContext, error) {
	if !s.limiter.Allow(username) {
		s.logger.Warn("Login throttled", zap.String("user_name", username))
		return nil, ErrTooManyAttempts
	}

	rec, ok, err := s.registry.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Same cost as a wrong password
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, fmt.Errorf("%w: username/password is incorrect", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)); err != nil {
		s.logger.Info("Failed login", zap.String("user_name", username))
		return nil, fmt.Errorf("%w: username/password is incorrect", domain.ErrUnauthorized)
	}

	s.logger.Info("User logged in", zap.String("user_name", username))
	return userFromRecord(username, rec), nil
}

// Register adds a new user
func (s *Service) Register(ctx context.Context, input RegisterInput) error {
	return s.registry.Register(ctx, input)
}

func (s *Service) issuer(ctx context.Context) (*TokenIssuer, CookieConfig, error) {
	cfg, err := s.registry.Load(ctx)
	if err != nil {
		return nil, CookieConfig{}, err
	}
	expiry := time.Duration(cfg.Cookie.ExpiryDays * float64(24*time.Hour))
	return NewTokenIssuer(cfg.Cookie.Key, expiry), cfg.Cookie, nil
}

// SetSessionCookie writes the signed session cookie for user
func (s *Service) SetSessionCookie(ctx context.Context, w http.ResponseWriter, user *UserContext) error {
	issuer, cookie, err := s.issuer(ctx)
	if err != nil {
		return err
	}
	token, expiresAt, err := issuer.Issue(user, s.now())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie removes the session cookie
func (s *Service) ClearSessionCookie(ctx context.Context, w http.ResponseWriter) {
	name := "labelling_session"
	if cfg, err := s.registry.Load(ctx); err == nil {
		name = cfg.Cookie.Name
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserFromRequest validates the session cookie of r and resolves the user
// against the registry, so removed users and revoked roles take effect
// without waiting for the cookie to expire
func (s *Service) UserFromRequest(r *http.Request) (*UserContext, error) {
	issuer, cookie, err := s.issuer(r.Context())
	if err != nil {
		return nil, err
	}
	c, err := r.Cookie(cookie.Name)
	if err != nil || c.Value == "" {
		return nil, ErrInvalidToken
	}
	username, err := issuer.Validate(c.Value)
	if err != nil {
		return nil, err
	}
	rec, ok, err := s.registry.Lookup(r.Context(), username)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown user %s", ErrInvalidToken, username)
	}
	return userFromRecord(username, rec), nil
}

func userFromRecord(username string, rec UserRecord) *UserContext {
	return &UserContext{
		Username:      username,
		DisplayName:   rec.Name,
		Email:         rec.Email,
		DataScientist: rec.DataScientist,
	}
}
