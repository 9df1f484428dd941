package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/mapper"
	"github.com/straye-as/labelling-app/internal/service"
	"github.com/straye-as/labelling-app/internal/web"
	"go.uber.org/zap"
)

// MsgRegistered is flashed on the login page after a registration
const MsgRegistered = "User registered successfully"

type AuthHandler struct {
	auth              *auth.Service
	renderer          *web.Renderer
	allowRegistration bool
	logger            *zap.Logger
}

func NewAuthHandler(authService *auth.Service, renderer *web.Renderer, allowRegistration bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:              authService,
		renderer:          renderer,
		allowRegistration: allowRegistration,
		logger:            logger,
	}
}

// LoginPage renders the login form
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	page := newPage(r, "Login", &web.AuthData{
		Next:              safeNext(r.URL.Query().Get("next")),
		AllowRegistration: h.allowRegistration,
	})
	if r.URL.Query().Get("registered") != "" {
		page.Flashes = []service.Flash{{Level: service.FlashSuccess, Message: MsgRegistered}}
	}
	h.renderer.Render(w, http.StatusOK, web.PageLogin, page)
}

// Login checks the credentials and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	next := safeNext(r.PostForm.Get("next"))

	user, err := h.auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		status := http.StatusUnauthorized
		msg := "Username/password is incorrect"
		switch {
		case errors.Is(err, auth.ErrTooManyAttempts):
			status = http.StatusTooManyRequests
			msg = "Too many login attempts, try again later"
		case !errors.Is(err, domain.ErrUnauthorized):
			h.logger.Error("Login failed", zap.String("user_name", username), zap.Error(err))
			status = http.StatusInternalServerError
			msg = "Login is unavailable, try again later"
		}
		h.renderer.Render(w, status, web.PageLogin, newPage(r, "Login", &web.AuthData{
			Next:              next,
			Username:          username,
			Error:             msg,
			AllowRegistration: h.allowRegistration,
		}))
		return
	}

	if err := h.auth.SetSessionCookie(r.Context(), w, user); err != nil {
		h.logger.Error("Failed to issue session cookie", zap.String("user_name", username), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearSessionCookie(r.Context(), w)
	http.Redirect(w, r, "/label", http.StatusSeeOther)
}

// RegisterPage renders the registration form
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if !h.allowRegistration {
		http.NotFound(w, r)
		return
	}
	h.renderer.Render(w, http.StatusOK, web.PageRegister, newPage(r, "Register", &web.AuthData{PasswordCriteria: auth.PasswordCriteria}))
}

// Register adds a user to the registry
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allowRegistration {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}

	input := auth.RegisterInput{
		Email:          r.PostForm.Get("email"),
		Username:       r.PostForm.Get("username"),
		Name:           r.PostForm.Get("name"),
		Password:       r.PostForm.Get("password"),
		RepeatPassword: r.PostForm.Get("repeatPassword"),
	}

	err := h.auth.Register(r.Context(), input)
	if err == nil {
		http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
		return
	}

	data := &web.AuthData{
		Username:         input.Username,
		Email:            input.Email,
		Name:             input.Name,
		PasswordCriteria: auth.PasswordCriteria,
	}
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		data.FieldErrors = fieldErrors(err)
		data.Error = "Please correct the highlighted fields"
	case http.StatusConflict:
		data.Error = "Username or email is already registered"
	default:
		h.logger.Error("Registration failed", zap.String("user_name", input.Username), zap.Error(err))
		data.Error = "Registration is unavailable, try again later"
	}
	h.renderer.Render(w, status, web.PageRegister, newPage(r, "Register", data))
}

// Me godoc
// @Summary Get current user
// @Description Get information about the logged-in user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "login required")
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToUserDTO(user))
}

// safeNext keeps redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/label"
	}
	return next
}
