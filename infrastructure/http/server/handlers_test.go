package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lan-chat/contract"
	"lan-chat/domain"
	"lan-chat/errors"
	"lan-chat/observability"
	"lan-chat/repositories"
	"lan-chat/services"
)

type fakeAuth struct {
	mu          sync.Mutex
	sessions    map[services.Token]string
	loginErr    error
	invalidated []services.Token
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{sessions: map[services.Token]string{"valid-token": "alice"}}
}

func (f *fakeAuth) Login(username, password string) (services.Token, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	token := services.Token("token-for-" + username)
	f.mu.Lock()
	f.sessions[token] = username
	f.mu.Unlock()
	return token, nil
}

func (f *fakeAuth) Identity(token services.Token) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.sessions[token]
	if !ok {
		return "", errors.ErrSessionExpired
	}
	return username, nil
}

func (f *fakeAuth) Invalidate(token services.Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	f.invalidated = append(f.invalidated, token)
}

type announcedFile struct {
	uploader string
	filename string
}

type fakeChat struct {
	mu        sync.Mutex
	history   []domain.Message
	hits      []repositories.SearchHit
	announced []announcedFile
}

func (f *fakeChat) Join(ctx context.Context, connID domain.ConnectionID, name string, sink contract.EventSink) error {
	return nil
}

func (f *fakeChat) Leave(ctx context.Context, connID domain.ConnectionID) error { return nil }

func (f *fakeChat) Post(ctx context.Context, connID domain.ConnectionID, author, content string) error {
	return nil
}

func (f *fakeChat) AnnounceFile(ctx context.Context, connID domain.ConnectionID, uploader, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, announcedFile{uploader: uploader, filename: filename})
	return nil
}

func (f *fakeChat) History(limit int) ([]domain.Message, error) {
	if limit > 0 && len(f.history) > limit {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

func (f *fakeChat) Search(ctx context.Context, query string, limit int) ([]repositories.SearchHit, error) {
	return f.hits, nil
}

func setupServer(t *testing.T) (http.Handler, *fakeAuth, *fakeChat, string) {
	t.Helper()
	auth := newFakeAuth()
	chat := &fakeChat{}
	uploadDir := t.TempDir()

	handler := NewHandler(slog.Default(), auth, chat, observability.NewMonitoringManager(),
		uploadDir, time.Hour, 50)
	ws := NewWsHandler(slog.Default(), auth, chat, 16)
	return NewRouter(handler, ws), auth, chat, uploadDir
}

func authed(r *http.Request) *http.Request {
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-token"})
	return r
}

func TestLoginHandler(t *testing.T) {
	t.Run("successful login returns token and cookie", func(t *testing.T) {
		req := require.New(t)
		router, _, _, _ := setupServer(t)

		payload, _ := json.Marshal(map[string]string{"username": "alice", "password": "pw"})
		r := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusOK, w.Code)

		var body tokenPayload
		req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
		req.Equal("token-for-alice", body.Token)

		cookies := w.Result().Cookies()
		req.Len(cookies, 1)
		req.Equal(sessionCookieName, cookies[0].Name)
		req.Equal("token-for-alice", cookies[0].Value)
		req.True(cookies[0].HttpOnly)
	})

	t.Run("rejected login maps the sentinel to its status", func(t *testing.T) {
		req := require.New(t)
		router, auth, _, _ := setupServer(t)
		auth.loginErr = errors.ErrInvalidCredentials

		payload, _ := json.Marshal(map[string]string{"username": "alice", "password": "bad"})
		r := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(payload))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := require.New(t)
		router, _, _, _ := setupServer(t)

		r := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusBadRequest, w.Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	req := require.New(t)
	router, auth, _, _ := setupServer(t)

	r := authed(httptest.NewRequest(http.MethodPost, "/api/logout", nil))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	req.Contains(auth.invalidated, services.Token("valid-token"))

	cookies := w.Result().Cookies()
	req.Len(cookies, 1)
	req.Negative(cookies[0].MaxAge)
}

func TestHistoryHandler(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		req := require.New(t)
		router, _, _, _ := setupServer(t)

		r := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusUnauthorized, w.Code)
	})

	t.Run("returns recent messages", func(t *testing.T) {
		req := require.New(t)
		router, _, chat, _ := setupServer(t)
		at := time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC)
		chat.history = []domain.Message{
			{ID: 1, Author: "alice", Content: "hello", CreatedAt: at},
			{ID: 2, Author: "bob", Content: "hi", CreatedAt: at.Add(time.Minute)},
		}

		r := authed(httptest.NewRequest(http.MethodGet, "/api/messages", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusOK, w.Code)

		var items []historyItem
		req.NoError(json.Unmarshal(w.Body.Bytes(), &items))
		req.Len(items, 2)
		req.Equal(historyItem{ID: 1, Username: "alice", Message: "hello", Timestamp: "14:30:05"}, items[0])
	})
}

func TestSearchHandler(t *testing.T) {
	t.Run("q is required", func(t *testing.T) {
		req := require.New(t)
		router, _, _, _ := setupServer(t)

		r := authed(httptest.NewRequest(http.MethodGet, "/api/messages/search", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusBadRequest, w.Code)
	})

	t.Run("returns hits", func(t *testing.T) {
		req := require.New(t)
		router, _, chat, _ := setupServer(t)
		chat.hits = []repositories.SearchHit{{ID: 7, Author: "alice", Content: "deployment failed"}}

		r := authed(httptest.NewRequest(http.MethodGet, "/api/messages/search?q=deployment", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusOK, w.Code)

		var items []searchItem
		req.NoError(json.Unmarshal(w.Body.Bytes(), &items))
		req.Len(items, 1)
		req.Equal(uint64(7), items[0].ID)
	})
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadHandler(t *testing.T) {
	t.Run("stores the file and announces it", func(t *testing.T) {
		req := require.New(t)
		router, _, chat, uploadDir := setupServer(t)

		body, contentType := multipartBody(t, "notes.txt", []byte("plain text notes"))
		r := authed(httptest.NewRequest(http.MethodPost, "/upload", body))
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusCreated, w.Code)

		stored, err := os.ReadFile(filepath.Join(uploadDir, "notes.txt"))
		req.NoError(err)
		req.Equal("plain text notes", string(stored))

		req.Len(chat.announced, 1)
		req.Equal(announcedFile{uploader: "alice", filename: "notes.txt"}, chat.announced[0])
	})

	t.Run("rejects disallowed extension", func(t *testing.T) {
		req := require.New(t)
		router, _, chat, _ := setupServer(t)

		body, contentType := multipartBody(t, "payload.exe", []byte("MZ..."))
		r := authed(httptest.NewRequest(http.MethodPost, "/upload", body))
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusUnsupportedMediaType, w.Code)
		req.Empty(chat.announced)
	})

	t.Run("rejects content whose sniffed type is disallowed", func(t *testing.T) {
		req := require.New(t)
		router, _, chat, _ := setupServer(t)

		// HTML smuggled under a harmless name.
		body, contentType := multipartBody(t, "page.txt", []byte("<!DOCTYPE html><html><body>x</body></html>"))
		r := authed(httptest.NewRequest(http.MethodPost, "/upload", body))
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusUnsupportedMediaType, w.Code)
		req.Empty(chat.announced)
	})

	t.Run("requires a session", func(t *testing.T) {
		req := require.New(t)
		router, _, _, _ := setupServer(t)

		body, contentType := multipartBody(t, "notes.txt", []byte("text"))
		r := httptest.NewRequest(http.MethodPost, "/upload", body)
		r.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusUnauthorized, w.Code)
	})
}

func TestDownloadHandler(t *testing.T) {
	t.Run("serves an uploaded file as attachment", func(t *testing.T) {
		req := require.New(t)
		router, _, _, uploadDir := setupServer(t)
		req.NoError(os.WriteFile(filepath.Join(uploadDir, "report.txt"), []byte("contents"), 0o644))

		r := authed(httptest.NewRequest(http.MethodGet, "/files/report.txt", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusOK, w.Code)
		req.Equal("contents", w.Body.String())
		req.Equal(fmt.Sprintf("attachment; filename=%q", "report.txt"), w.Header().Get("Content-Disposition"))
	})

	t.Run("unknown file", func(t *testing.T) {
		req := require.New(t)
		router, _, _, _ := setupServer(t)

		r := authed(httptest.NewRequest(http.MethodGet, "/files/missing.txt", nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		req.Equal(http.StatusNotFound, w.Code)
	})
}

func TestCapabilityStubs(t *testing.T) {
	req := require.New(t)
	router, _, _, _ := setupServer(t)

	for _, path := range []string{"/screenshare", "/remotecontrol"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		req.Equal(http.StatusNotImplemented, w.Code, path)
	}
}

func TestHealthHandler(t *testing.T) {
	req := require.New(t)
	router, _, _, _ := setupServer(t)

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)

	var stats observability.MonitoringStats
	req.NoError(json.Unmarshal(w.Body.Bytes(), &stats))
}
