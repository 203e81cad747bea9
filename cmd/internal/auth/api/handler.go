package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"streamhub/cmd/internal/auth/session"
)

// Handler wires the HTTP account endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Service
	uploader MediaUploader
	observer AuthObserver
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithMediaUploader overrides the default local-filesystem uploader.
func WithMediaUploader(u MediaUploader) HandlerOption {
	return func(h *Handler) {
		if h == nil || u == nil {
			return
		}
		h.uploader = u
	}
}

// WithAuthObserver overrides the default no-op auth observer.
func WithAuthObserver(o AuthObserver) HandlerOption {
	return func(h *Handler) {
		if h == nil || o == nil {
			return
		}
		h.observer = o
	}
}

// NewHandler constructs the HTTP handler for the account endpoints.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		uploader: LocalUploader{Dir: "media", BaseURL: "/media"},
		observer: NoopAuthObserver{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires the account routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/v1/accounts/register", h.handleRegister)
	mux.HandleFunc("/api/v1/accounts/login", h.handleLogin)
	mux.HandleFunc("/api/v1/accounts/refresh", h.handleRefresh)
	mux.Handle("/api/v1/accounts/logout", h.Guard(http.HandlerFunc(h.handleLogout)))
	mux.Handle("/api/v1/accounts/change-password", h.Guard(http.HandlerFunc(h.handleChangePassword)))
	mux.Handle("/api/v1/accounts/current", h.Guard(http.HandlerFunc(h.handleCurrent)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		h.observer.ObserveAuth("register", "validation")
		writeFailure(w, http.StatusBadRequest, "multipart form required", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in := session.RegisterInput{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}

	ctx := r.Context()

	var uploaded []string

	avatarURL, err := h.uploadFormFile(r, "avatar")
	if err != nil {
		h.observer.ObserveAuth("register", "validation")
		writeFailure(w, http.StatusBadRequest, "avatar upload failed", []string{"avatar"})
		return
	}
	in.AvatarURL = avatarURL
	uploaded = append(uploaded, avatarURL)

	// Cover image is optional; a missing file is not an error.
	if hasFormFile(r, "coverImage") {
		coverURL, err := h.uploadFormFile(r, "coverImage")
		if err != nil {
			h.removeUploads(ctx, uploaded)
			h.observer.ObserveAuth("register", "validation")
			writeFailure(w, http.StatusBadRequest, "cover image upload failed", []string{"coverImage"})
			return
		}
		in.CoverImageURL = coverURL
		uploaded = append(uploaded, coverURL)
	}

	acct, err := h.sessions.Register(ctx, time.Now().UTC(), in)
	if err != nil {
		// The files landed but the account did not; take them back out.
		h.removeUploads(ctx, uploaded)
		h.observer.ObserveAuth("register", outcomeOf(err))
		h.writeTaxonomyError(w, err)
		return
	}

	h.observer.ObserveAuth("register", "ok")
	writeSuccess(w, http.StatusCreated, toAccountResponse(acct), "account registered")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.observer.ObserveAuth("login", "validation")
		writeFailure(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	sess, err := h.sessions.Login(r.Context(), time.Now().UTC(), session.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.observer.ObserveAuth("login", outcomeOf(err))
		h.writeTaxonomyError(w, err)
		return
	}

	h.observer.ObserveAuth("login", "ok")
	h.setSessionCookies(w, sess.AccessToken, sess.AccessExp, sess.RefreshToken, sess.RefreshExp)
	writeSuccess(w, http.StatusOK, loginResponse{
		Account:      toAccountResponse(sess.Account),
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}, "logged in")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Cookie first; JSON body is the fallback for non-browser clients.
	refreshToken := refreshTokenFromCookie(r)
	if refreshToken == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			h.observer.ObserveAuth("refresh", "validation")
			writeFailure(w, http.StatusBadRequest, "invalid request body", nil)
			return
		}
		refreshToken = strings.TrimSpace(req.RefreshToken)
	}
	if refreshToken == "" {
		h.observer.ObserveAuth("refresh", "unauthorized")
		writeFailure(w, http.StatusUnauthorized, "refresh token required", nil)
		return
	}

	sess, err := h.sessions.Refresh(r.Context(), time.Now().UTC(), refreshToken)
	if err != nil {
		h.observer.ObserveAuth("refresh", outcomeOf(err))
		h.writeTaxonomyError(w, err)
		return
	}

	h.observer.ObserveAuth("refresh", "ok")
	h.setSessionCookies(w, sess.AccessToken, sess.AccessExp, sess.RefreshToken, sess.RefreshExp)
	writeSuccess(w, http.StatusOK, refreshResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	}, "session refreshed")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	acct, ok := AccountFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	if err := h.sessions.Logout(r.Context(), time.Now().UTC(), acct.ID); err != nil {
		h.observer.ObserveAuth("logout", outcomeOf(err))
		h.writeTaxonomyError(w, err)
		return
	}

	h.observer.ObserveAuth("logout", "ok")
	h.clearSessionCookies(w)
	writeSuccess(w, http.StatusOK, nil, "logged out")
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	acct, ok := AccountFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.observer.ObserveAuth("change_password", "validation")
		writeFailure(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	err := h.sessions.ChangePassword(r.Context(), time.Now().UTC(), acct.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		h.observer.ObserveAuth("change_password", outcomeOf(err))
		// A wrong old password is a client mistake on this endpoint, not a
		// session problem.
		if errors.Is(err, session.ErrUnauthorized) {
			writeFailure(w, http.StatusBadRequest, "invalid old password", []string{"oldPassword"})
			return
		}
		h.writeTaxonomyError(w, err)
		return
	}

	h.observer.ObserveAuth("change_password", "ok")
	writeSuccess(w, http.StatusOK, nil, "password changed")
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	acct, ok := AccountFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	writeSuccess(w, http.StatusOK, toAccountResponse(acct), "current account")
}

// ---- helpers ----

// writeTaxonomyError maps the session error taxonomy onto the envelope.
func (h *Handler) writeTaxonomyError(w http.ResponseWriter, err error) {
	var verr session.ValidationError
	if errors.As(err, &verr) {
		writeFailure(w, http.StatusBadRequest, "invalid input", verr.Fields)
		return
	}
	var cerr session.ConflictError
	if errors.As(err, &cerr) {
		writeFailure(w, http.StatusConflict, cerr.Error(), []string{cerr.Field})
		return
	}

	switch {
	case errors.Is(err, session.ErrValidation):
		writeFailure(w, http.StatusBadRequest, "invalid input", nil)
	case errors.Is(err, session.ErrConflict):
		writeFailure(w, http.StatusConflict, "already in use", nil)
	case errors.Is(err, session.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "account not found", nil)
	case errors.Is(err, session.ErrUnauthorized):
		writeFailure(w, http.StatusUnauthorized, "unauthorized", nil)
	default:
		h.log.Error("auth.request.fail", "err", err)
		writeFailure(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, session.ErrValidation):
		return "validation"
	case errors.Is(err, session.ErrConflict):
		return "conflict"
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	case errors.Is(err, session.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

// removeUploads best-effort deletes files uploaded during a registration
// that then failed. Uploaders without removal support keep the files.
func (h *Handler) removeUploads(ctx context.Context, urls []string) {
	rm, ok := h.uploader.(MediaRemover)
	if !ok {
		return
	}
	for _, u := range urls {
		if err := rm.Remove(ctx, u); err != nil {
			h.log.Warn("media.cleanup.fail", "url", u, "err", err)
		}
	}
}

func hasFormFile(r *http.Request, field string) bool {
	if r.MultipartForm == nil {
		return false
	}
	return len(r.MultipartForm.File[field]) > 0
}

// uploadFormFile stages the named multipart file to disk and hands it to
// the uploader. The staged file is removed afterwards.
func (h *Handler) uploadFormFile(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", errors.New("missing file: " + field)
	}
	fh := r.MultipartForm.File[field][0]

	staged, err := stageUpload(fh, h.cfg.UploadDir, h.cfg.MaxUploadBytes)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(staged) }()

	return h.uploader.Upload(r.Context(), staged)
}
