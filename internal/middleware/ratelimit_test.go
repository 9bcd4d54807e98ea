package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/unifeed/internal/model"
)

func rateLimitTestConfig(burst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(2),
		GeneralBurst:    burst,
		CleanupInterval: time.Minute,
	}
}

func requestWithUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	ctx := ContextWithUser(req.Context(), &model.User{ID: userID})
	return req.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// バースト内のリクエストは通過すること
func TestRateLimiter_WithinBurst_Allows(t *testing.T) {
	rl := NewRateLimiter(rateLimitTestConfig(5))
	defer rl.Stop()

	mw := rl.GeneralMiddleware()

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, requestWithUser("user-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}
}

// バースト超過で429とRetry-Afterが返ること
func TestRateLimiter_ExceedsBurst_Returns429(t *testing.T) {
	rl := NewRateLimiter(rateLimitTestConfig(2))
	defer rl.Stop()

	mw := rl.GeneralMiddleware()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, requestWithUser("user-1"))
	}

	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, requestWithUser("user-1"))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// ユーザーごとに独立したリミッターであること
func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := NewRateLimiter(rateLimitTestConfig(1))
	defer rl.Stop()

	mw := rl.GeneralMiddleware()

	// user-1のバーストを使い切る
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, requestWithUser("user-1"))
	rec = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, requestWithUser("user-1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("user-1 second request: status = %d, want 429", rec.Code)
	}

	// user-2は影響を受けない
	rec = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, requestWithUser("user-2"))
	if rec.Code != http.StatusOK {
		t.Errorf("user-2 status = %d, want %d", rec.Code, http.StatusOK)
	}

	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount() = %d, want 2", rl.LimiterCount())
	}
}

// 認証コンテキストがないリクエストは401となること
func TestRateLimiter_NoUserContext_Returns401(t *testing.T) {
	rl := NewRateLimiter(rateLimitTestConfig(5))
	defer rl.Stop()

	mw := rl.GeneralMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/api/feeds", nil)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
