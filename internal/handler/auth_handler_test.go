package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/chatman/internal/middleware"
	"github.com/hitoshi/chatman/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn         func(ctx context.Context, name, email, password string) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, name, email, password string) (*model.User, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, name, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- サインアップのテスト ---

func TestSignup_Success_Returns201(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			return &model.User{ID: "user-1", Name: name, Email: email, PasswordHash: "hashed"}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"name":"Alice","email":"alice@example.com","password":"secret"}`))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "user-1" || resp.Email != "alice@example.com" {
		t.Errorf("unexpected response: %+v", resp)
	}
	// パスワードハッシュがレスポンスに含まれていないこと
	if strings.Contains(w.Body.String(), "hashed") {
		t.Error("response must not contain password hash")
	}
}

func TestSignup_MissingFields_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"name":"","email":"alice@example.com","password":"secret"}`))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSignup_DuplicateEmail_Returns409(t *testing.T) {
	service := &mockAuthService{
		signupFn: func(ctx context.Context, name, email, password string) (*model.User, error) {
			return nil, model.NewUserExistsError()
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"name":"Alice","email":"alice@example.com","password":"secret"}`))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeUserExists {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeUserExists)
	}
}

// --- ログインのテスト ---

func TestLogin_Success_SetsSessionCookie(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return &model.Session{ID: "session-abc", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-1", Name: "Alice", Email: "alice@example.com"}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"secret"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	cookies := w.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == middleware.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("session cookie not set")
	}
	if sessionCookie.Value != "session-abc" {
		t.Errorf("cookie value = %q, want %q", sessionCookie.Value, "session-abc")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HTTP only")
	}
}

func TestLogin_UnknownEmail_Returns404(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"secret"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeUserNotFound {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeUserNotFound)
	}
}

func TestLogin_WrongPassword_Returns400(t *testing.T) {
	service := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- ログアウトのテスト ---

func TestLogout_ClearsSessionCookie(t *testing.T) {
	var deletedSessionID string
	service := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deletedSessionID = sessionID
			return nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-abc"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedSessionID != "session-abc" {
		t.Errorf("deleted session = %q, want %q", deletedSessionID, "session-abc")
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge != -1 {
			t.Error("session cookie should be expired")
		}
	}
}

// --- 現在ユーザー取得のテスト ---

func TestMe_NoSession_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMe_ValidSession_ReturnsUser(t *testing.T) {
	service := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-1", Name: "Alice", Email: "alice@example.com"}, nil
		},
	}
	h := NewAuthHandler(service, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "session-abc"})
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", resp.ID, "user-1")
	}
}
