package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/unifeed/internal/middleware"
	"github.com/hitoshi/unifeed/internal/model"
)

// --- モック定義 ---

type mockSessionValidator struct {
	validateFn func(ctx context.Context, sessionToken string) (*model.User, error)
}

func (m *mockSessionValidator) Validate(ctx context.Context, sessionToken string) (*model.User, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, sessionToken)
	}
	return nil, model.NewInvalidSessionError()
}

type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

// newTestRouter はテスト用の依存関係でルーターを構築するヘルパー。
func newTestRouter(t *testing.T, validator *mockSessionValidator, feedSvc FeedServiceInterface, checker HealthChecker) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	if feedSvc == nil {
		feedSvc = &mockFeedService{}
	}

	return NewRouter(&RouterDeps{
		SessionValidator:  validator,
		SessionConfig:     middleware.SessionConfig{},
		CSRFConfig:        middleware.CSRFConfig{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,

		AuthService: &mockAuthService{},
		AuthConfig:  testAuthConfig(),

		FeedService: feedSvc,
		UserService: &mockUserService{},

		HealthChecker: checker,
		Gatherer:      prometheus.NewRegistry(),
	})
}

// --- テスト ---

func TestRouter_Health_OK(t *testing.T) {
	router := newTestRouter(t, &mockSessionValidator{}, nil, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_Health_DatabaseDown(t *testing.T) {
	checker := &mockHealthChecker{pingErr: errors.New("connection refused")}
	router := newTestRouter(t, &mockSessionValidator{}, nil, checker)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRouter_SampleFeed_PublicAccess(t *testing.T) {
	router := newTestRouter(t, &mockSessionValidator{}, nil, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/feeds/sample", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_Metrics_Exposed(t *testing.T) {
	router := newTestRouter(t, &mockSessionValidator{}, nil, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_APIFeeds_RequiresSession(t *testing.T) {
	router := newTestRouter(t, &mockSessionValidator{}, nil, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeInvalidSession {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidSession)
	}
}

func TestRouter_APIFeeds_WithValidSession(t *testing.T) {
	validator := &mockSessionValidator{
		validateFn: func(ctx context.Context, sessionToken string) (*model.User, error) {
			if sessionToken != "valid-session" {
				return nil, model.NewInvalidSessionError()
			}
			return testUser(), nil
		},
	}
	feedSvc := &mockFeedService{
		unifiedFeedFn: func(ctx context.Context, user *model.User) (*model.AggregatedFeed, error) {
			return &model.AggregatedFeed{
				User:        &model.UserSummary{ID: user.ID},
				PerPlatform: map[model.Platform]*model.PlatformFeed{},
				Items:       []model.FeedItem{},
			}, nil
		},
	}
	router := newTestRouter(t, validator, feedSvc, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_AuthLogin_Redirects(t *testing.T) {
	router := newTestRouter(t, &mockSessionValidator{}, nil, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
}

func TestRouter_Disconnect_RequiresCSRFToken(t *testing.T) {
	validator := &mockSessionValidator{
		validateFn: func(ctx context.Context, sessionToken string) (*model.User, error) {
			return testUser(), nil
		},
	}
	router := newTestRouter(t, validator, nil, &mockHealthChecker{})

	// セッションは有効だがCSRFトークンなし
	req := httptest.NewRequest(http.MethodPost, "/api/users/me/disconnect/youtube", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestRouter_Disconnect_WithCSRFToken(t *testing.T) {
	validator := &mockSessionValidator{
		validateFn: func(ctx context.Context, sessionToken string) (*model.User, error) {
			return testUser(), nil
		},
	}
	router := newTestRouter(t, validator, nil, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/me/disconnect/youtube", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	req.AddCookie(&http.Cookie{Name: "unifeed_csrf", Value: "token-abc"})
	req.Header.Set("X-CSRF-Token", "token-abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_CSRFTokenEndpoint(t *testing.T) {
	router := newTestRouter(t, &mockSessionValidator{}, nil, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
