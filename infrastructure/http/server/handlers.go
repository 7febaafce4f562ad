package server

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"lan-chat/domain"
	"lan-chat/errors"
	"lan-chat/observability"
	"lan-chat/services"
)

const sessionCookieName = "session"

// maxUploadBytes bounds a single upload request body.
const maxUploadBytes = 32 << 20

// allowedUploadExts mirrors the room's sharing policy: archives, images,
// text, and PDFs only.
var allowedUploadExts = map[string]struct{}{
	".txt":  {},
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".zip":  {},
	".rar":  {},
}

// Handler serves the REST surface: login, history, search, uploads, and
// health. Realtime traffic goes through WsHandler instead.
type Handler struct {
	log        *slog.Logger
	auth       services.IAuthService
	chat       services.IChatService
	monitoring *observability.MonitoringManager

	uploadDir    string
	tokenTTL     time.Duration
	historyLimit int
}

func NewHandler(log *slog.Logger, auth services.IAuthService, chat services.IChatService, monitoring *observability.MonitoringManager, uploadDir string, tokenTTL time.Duration, historyLimit int) *Handler {
	return &Handler{
		log:          log,
		auth:         auth,
		chat:         chat,
		monitoring:   monitoring,
		uploadDir:    uploadDir,
		tokenTTL:     tokenTTL,
		historyLimit: historyLimit,
	}
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

type historyItem struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type searchItem struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Login authenticates against the shared room password. The very first
// successful login defines that password. The issued token is returned in
// the body and mirrored into a cookie for browser clients.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(h.log, w, http.StatusBadRequest, "malformed login body")
		return
	}

	token, err := h.auth.Login(payload.Username, payload.Password)
	if err != nil {
		h.log.Info("Login rejected", "username", payload.Username, "err", err)
		respondError(h.log, w, errors.HTTPStatus(err), err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    string(token),
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(h.log, w, http.StatusOK, tokenPayload{Token: string(token)})
}

// Logout revokes the current session token and clears the cookie. Always
// succeeds: a missing or dead token has nothing left to revoke.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		h.auth.Invalidate(services.Token(token))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	respondJSON(h.log, w, http.StatusOK, map[string]string{"status": "logged out"})
}

// History returns the most recent messages in ascending id order.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}

	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	messages, err := h.chat.History(limit)
	if err != nil {
		h.log.Error("History read failed", "err", err)
		respondError(h.log, w, errors.HTTPStatus(err), "failed to load history")
		return
	}

	items := make([]historyItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, historyItem{
			ID:        uint64(m.ID),
			Username:  m.Author,
			Message:   m.Content,
			Timestamp: m.CreatedAt.Format("15:04:05"),
		})
	}
	respondJSON(h.log, w, http.StatusOK, items)
}

// SearchMessages runs a full-text query over the message log.
func (h *Handler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(h.log, w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	hits, err := h.chat.Search(r.Context(), query, limit)
	if err != nil {
		h.log.Error("Search failed", "query", query, "err", err)
		respondError(h.log, w, errors.HTTPStatus(err), "search failed")
		return
	}

	items := make([]searchItem, 0, len(hits))
	for _, hit := range hits {
		items = append(items, searchItem{
			ID:       uint64(hit.ID),
			Username: hit.Author,
			Message:  hit.Content,
		})
	}
	respondJSON(h.log, w, http.StatusOK, items)
}

// Upload accepts a multipart file, stores it under the upload directory, and
// announces it to the room. The extension allow-list is enforced twice: on
// the declared filename and on the sniffed content type.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	username, ok := h.identity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(h.log, w, http.StatusBadRequest, "malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(h.log, w, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if err := checkUploadType(file, filename); err != nil {
		h.log.Info("Upload rejected", "username", username, "filename", filename, "err", err)
		respondError(h.log, w, errors.HTTPStatus(err), err.Error())
		return
	}

	dst, err := os.Create(filepath.Join(h.uploadDir, filename))
	if err != nil {
		h.log.Error("Upload storage failed", "filename", filename, "err", err)
		respondError(h.log, w, http.StatusInternalServerError, "failed to store file")
		return
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, file); err != nil {
		h.log.Error("Upload write failed", "filename", filename, "err", err)
		respondError(h.log, w, http.StatusInternalServerError, "failed to store file")
		return
	}

	if err := h.chat.AnnounceFile(r.Context(), domain.NewConnectionID(), username, filename); err != nil {
		h.log.Error("File announcement failed", "filename", filename, "err", err)
	}

	h.log.Info("File uploaded", "username", username, "filename", filename)
	respondJSON(h.log, w, http.StatusCreated, map[string]string{"filename": filename})
}

// checkUploadType gates both the declared extension and the sniffed content.
// A payload whose sniffed type maps to a disallowed extension is rejected
// even when its name looks harmless.
func checkUploadType(file io.ReadSeeker, filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedUploadExts[ext]; !ok {
		return fmt.Errorf("%w: %s", errors.ErrFileTypeNotAllowed, ext)
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("%w: unreadable content", errors.ErrFileTypeNotAllowed)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: unreadable content", errors.ErrFileTypeNotAllowed)
	}

	if sniffed := mtype.Extension(); sniffed != "" {
		if _, ok := allowedUploadExts[sniffed]; !ok {
			return fmt.Errorf("%w: content looks like %s", errors.ErrFileTypeNotAllowed, mtype.String())
		}
	}
	return nil
}

// Download serves a previously uploaded file as an attachment. The name is
// flattened with Base so the upload directory cannot be escaped.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}

	name := filepath.Base(chi.URLParam(r, "name"))
	if name == "." || name == "/" {
		respondError(h.log, w, http.StatusBadRequest, "invalid file name")
		return
	}

	path := filepath.Join(h.uploadDir, name)
	if _, err := os.Stat(path); err != nil {
		respondError(h.log, w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// ScreenShare is a declared but unimplemented capability of the room.
func (h *Handler) ScreenShare(w http.ResponseWriter, r *http.Request) {
	respondError(h.log, w, http.StatusNotImplemented, "screen sharing is not available")
}

// RemoteControl is a declared but unimplemented capability of the room.
func (h *Handler) RemoteControl(w http.ResponseWriter, r *http.Request) {
	respondError(h.log, w, http.StatusNotImplemented, "remote control is not available")
}

// Health reports the live counters snapshot.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(h.log, w, http.StatusOK, h.monitoring.GetLatest())
}

// identity resolves the request's session token, writing the 401 itself on
// failure so callers can return early.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	username, err := h.auth.Identity(services.Token(sessionToken(r)))
	if err != nil {
		if !goerrors.Is(err, errors.ErrSessionExpired) {
			h.log.Debug("Identity resolution failed", "err", err)
		}
		respondError(h.log, w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return username, true
}
