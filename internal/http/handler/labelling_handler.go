package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/domain"
	"github.com/straye-as/labelling-app/internal/service"
	"github.com/straye-as/labelling-app/internal/web"
	"go.uber.org/zap"
)

// SessionCookieName carries the labelling session id of a browser
const SessionCookieName = "labelling_sid"

// LabellingHandler serves the labelling page and its actions. Every action
// redirects back to /label; messages travel as session flashes.
type LabellingHandler struct {
	service      *service.LabellingService
	renderer     *web.Renderer
	secureCookie bool
	logger       *zap.Logger
}

func NewLabellingHandler(labellingService *service.LabellingService, renderer *web.Renderer, secureCookie bool, logger *zap.Logger) *LabellingHandler {
	return &LabellingHandler{
		service:      labellingService,
		renderer:     renderer,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// session returns the labelling session of the browser, issuing a new cookie
// when the old one is missing or expired. The session is returned locked.
func (h *LabellingHandler) session(w http.ResponseWriter, r *http.Request) *service.LabellingSession {
	var id string
	if c, err := r.Cookie(SessionCookieName); err == nil {
		id = c.Value
	}
	sess := h.service.Sessions().Get(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	sess.Lock()
	return sess
}

func backToLabel(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/label", http.StatusSeeOther)
}

// Page renders the labelling page
func (h *LabellingHandler) Page(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer sess.Unlock()
	h.render(w, r, sess, http.StatusOK, nil)
}

func (h *LabellingHandler) render(w http.ResponseWriter, r *http.Request, sess *service.LabellingSession, status int, pending *service.FormState) {
	view, err := h.service.CurrentView(r.Context(), sess, auth.UsernameFromContext(r.Context()), pending)
	if err != nil {
		h.logger.Error("Failed to build labelling view", zap.String("session_id", sess.ID), zap.Error(err))
		h.renderer.Render(w, http.StatusInternalServerError, web.PageError, newPage(r, "Error", "The labelling data could not be loaded. Try again later."))
		return
	}
	page := newPage(r, "Labelling", view)
	page.Flashes = view.Flashes
	h.renderer.Render(w, status, web.PageLabel, page)
}

// SelectFile loads the chosen input file
func (h *LabellingHandler) SelectFile(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer sess.Unlock()

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	name := r.PostForm.Get("file")
	if err := h.service.SelectFile(r.Context(), sess, name); err != nil {
		h.logger.Warn("Input file rejected", zap.String("file_name", name), zap.Error(err))
		sess.Flash(service.FlashError, fileErrorMessage(err))
	}
	backToLabel(w, r)
}

func fileErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingColumn), errors.Is(err, domain.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return "The selected file no longer exists."
	default:
		return "The selected file could not be loaded."
	}
}

// Navigate moves to the previous, next or a given sample
func (h *LabellingHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer sess.Unlock()

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	action := r.PostForm.Get("action")
	target := 0
	if action == service.NavigateGoto {
		n, err := strconv.Atoi(r.PostForm.Get("index"))
		if err != nil {
			n = -1
		}
		target = n
	}
	if err := h.service.Navigate(sess, action, target); err != nil && !errors.Is(err, domain.ErrNoDataset) {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	backToLabel(w, r)
}

// Options toggles the context and metrics panels
func (h *LabellingHandler) Options(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer sess.Unlock()

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	h.service.SetOptions(sess, r.PostForm.Get("show_context") != "", r.PostForm.Get("show_metrics") != "")
	backToLabel(w, r)
}

// SavedResults answers the "load saved results" prompt
func (h *LabellingHandler) SavedResults(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer sess.Unlock()

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	userName := auth.UsernameFromContext(r.Context())
	switch r.PostForm.Get("decision") {
	case "load":
		if err := h.service.LoadSavedResults(r.Context(), sess, userName); err != nil {
			h.logger.Warn("Failed to load saved results", zap.String("user_name", userName), zap.Error(err))
		}
	case "discard":
		h.service.DiscardSavedResults(sess, userName)
	default:
		respondWithError(w, http.StatusBadRequest, "decision must be load or discard")
		return
	}
	backToLabel(w, r)
}

// SubmitForm applies one labelling form to the current sample. Rejected
// input re-renders the page with the entered values and field errors.
func (h *LabellingHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer sess.Unlock()

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form")
		return
	}
	formID := chi.URLParam(r, "formID")

	_, err := h.service.Submit(r.Context(), sess, auth.UsernameFromContext(r.Context()), formID, r.PostForm)
	switch {
	case err == nil, errors.Is(err, domain.ErrNoDataset):
		backToLabel(w, r)
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		h.render(w, r, sess, http.StatusUnprocessableEntity, &service.FormState{FormID: formID, Values: r.PostForm, Err: err})
	default:
		h.logger.Error("Form submission failed", zap.String("form_id", formID), zap.Error(err))
		sess.Flash(service.FlashError, "The form could not be applied.")
		backToLabel(w, r)
	}
}

// Download sends the session results as JSON or CSV
func (h *LabellingHandler) Download(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	defer sess.Unlock()

	name, contentType, data, err := h.service.Export(sess, auth.UsernameFromContext(r.Context()), r.URL.Query().Get("format"))
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
