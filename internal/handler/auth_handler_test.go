package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/unifeed/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(provider model.Platform, state string) (string, error)
	handleCallbackFn func(ctx context.Context, provider model.Platform, code string) (*model.Session, error)
	validateFn       func(ctx context.Context, sessionToken string) (*model.User, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) GetLoginURL(provider model.Platform, state string) (string, error) {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(provider, state)
	}
	return "", nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, provider model.Platform, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, provider, code)
	}
	return nil, nil
}

func (m *mockAuthService) Validate(ctx context.Context, sessionToken string) (*model.User, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, sessionToken)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "http://localhost:3000",
		CookieDomain:  "",
		CookieSecure:  false,
		SessionMaxAge: 86400,
	}
}

// --- テスト ---

func TestAuthHandler_Login_RedirectsToOAuthURL(t *testing.T) {
	svc := &mockAuthService{
		getLoginURLFn: func(provider model.Platform, state string) (string, error) {
			if provider != model.PlatformYouTube {
				t.Errorf("provider = %q, want %q", provider, model.PlatformYouTube)
			}
			return "https://accounts.google.com/o/oauth2/auth?state=" + state, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/login", nil)
	req = withChiURLParam(req, "provider", "youtube")
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	location := resp.Header.Get("Location")
	if !containsStr(location, "accounts.google.com") {
		t.Errorf("Location = %q, should contain oauth URL", location)
	}

	// stateクッキーが設定されていること
	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("expected oauth_state cookie to be set")
	}
	if !stateCookie.HttpOnly {
		t.Error("oauth_state cookie should be HttpOnly")
	}
	if !containsStr(location, stateCookie.Value) {
		t.Error("redirect URL should carry the state from the cookie")
	}
}

func TestAuthHandler_Login_UnknownProvider(t *testing.T) {
	svc := &mockAuthService{
		getLoginURLFn: func(provider model.Platform, state string) (string, error) {
			return "", model.NewUnknownProviderError(string(provider))
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/vimeo/login", nil)
	req = withChiURLParam(req, "provider", "vimeo")
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeUnknownProvider {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeUnknownProvider)
	}
}

func TestAuthHandler_Callback_Success_SetsCookieAndRedirects(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, provider model.Platform, code string) (*model.Session, error) {
			if code != "auth-code-xyz" {
				t.Errorf("code = %q, want %q", code, "auth-code-xyz")
			}
			return &model.Session{
				ID:        "session-id-abc",
				UserID:    "user-id-123",
				ExpiresAt: time.Now().Add(24 * time.Hour),
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=auth-code-xyz&state=state-123", nil)
	req = withChiURLParam(req, "provider", "youtube")
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-123"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if got := resp.Header.Get("Location"); got != "http://localhost:3000" {
		t.Errorf("Location = %q, want %q", got, "http://localhost:3000")
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected session cookie to be set")
	}
	if sessionCookie.Value != "session-id-abc" {
		t.Errorf("session cookie = %q, want %q", sessionCookie.Value, "session-id-abc")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
}

func TestAuthHandler_Callback_StateMismatch(t *testing.T) {
	called := false
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, provider model.Platform, code string) (*model.Session, error) {
			called = true
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=abc&state=attacker-state", nil)
	req = withChiURLParam(req, "provider", "youtube")
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "legit-state"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("HandleCallback should not be called on state mismatch")
	}
}

func TestAuthHandler_Callback_MissingStateCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=abc&state=state-123", nil)
	req = withChiURLParam(req, "provider", "youtube")
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Callback_MissingCode(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?state=state-123", nil)
	req = withChiURLParam(req, "provider", "youtube")
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-123"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Callback_ServiceError(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, provider model.Platform, code string) (*model.Session, error) {
			return nil, errors.New("token exchange failed")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=abc&state=state-123", nil)
	req = withChiURLParam(req, "provider", "youtube")
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-123"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestAuthHandler_Logout_DeletesSessionAndClearsCookie(t *testing.T) {
	var deletedSession string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deletedSession = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-to-delete"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if deletedSession != "session-to-delete" {
		t.Errorf("deleted session = %q, want %q", deletedSession, "session-to-delete")
	}

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			cleared = c
		}
	}
	if cleared == nil {
		t.Fatal("expected session cookie to be cleared")
	}
	if cleared.MaxAge != -1 {
		t.Errorf("cookie MaxAge = %d, want -1", cleared.MaxAge)
	}
}

func TestAuthHandler_Logout_ServiceFailureStillClearsCookie(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			return errors.New("db down")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	found := false
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" && c.MaxAge == -1 {
			found = true
		}
	}
	if !found {
		t.Error("session cookie should be cleared even when logout fails")
	}
}

func TestAuthHandler_Me_ReturnsCurrentUser(t *testing.T) {
	svc := &mockAuthService{
		validateFn: func(ctx context.Context, sessionToken string) (*model.User, error) {
			if sessionToken != "valid-session" {
				t.Errorf("sessionToken = %q, want %q", sessionToken, "valid-session")
			}
			return &model.User{
				ID:          "user-1",
				Email:       "taro@example.com",
				DisplayName: "Taro",
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["id"] != "user-1" {
		t.Errorf("id = %q, want %q", body["id"], "user-1")
	}
	if body["email"] != "taro@example.com" {
		t.Errorf("email = %q, want %q", body["email"], "taro@example.com")
	}
	if body["displayName"] != "Taro" {
		t.Errorf("displayName = %q, want %q", body["displayName"], "Taro")
	}
}

func TestAuthHandler_Me_NoCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeInvalidSession {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidSession)
	}
}

func TestAuthHandler_Me_InvalidSession(t *testing.T) {
	svc := &mockAuthService{
		validateFn: func(ctx context.Context, sessionToken string) (*model.User, error) {
			return nil, model.NewInvalidSessionError()
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// containsStr は文字列sにsubstrが含まれるかチェックするヘルパー。
func containsStr(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
