package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/mathlovers/internal/model"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    2,
		AuthRate:        1,
		AuthBurst:       1,
		CleanupInterval: time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(userID, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	req.RemoteAddr = remoteAddr
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewRateLimiterConfig_ConvertsPerMinute(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 10)
	if cfg.GeneralRate != 2 || cfg.GeneralBurst != 120 {
		t.Errorf("general = (%v, %d), want (2, 120)", cfg.GeneralRate, cfg.GeneralBurst)
	}
	if cfg.AuthBurst != 10 {
		t.Errorf("auth burst = %d, want 10", cfg.AuthBurst)
	}
	if DefaultRateLimiterConfig() != cfg {
		t.Error("default config should be 120/10 per minute")
	}
}

func TestRateLimiter_General_BurstThen429(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	h := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		if w := serve(h, requestAs("user-1", "10.0.0.1:1234")); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := serve(h, requestAs("user-1", "10.0.0.1:1234"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
}

func TestRateLimiter_General_KeysByUserWhenAuthenticated(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	h := rl.GeneralMiddleware()(okHandler())

	// 同一IPでもユーザーが異なれば独立して制限される
	for i := 0; i < 2; i++ {
		serve(h, requestAs("user-a", "10.0.0.1:1"))
	}
	if w := serve(h, requestAs("user-b", "10.0.0.1:2")); w.Code != http.StatusOK {
		t.Errorf("user-b status = %d, want 200", w.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("limiter count = %d, want 2", rl.GeneralLimiterCount())
	}
}

func TestRateLimiter_General_KeysByIPWhenAnonymous(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	h := rl.GeneralMiddleware()(okHandler())

	// 同一IPはポートが異なっても同じキーになる
	serve(h, requestAs("", "192.0.2.1:1000"))
	serve(h, requestAs("", "192.0.2.1:2000"))
	if w := serve(h, requestAs("", "192.0.2.1:3000")); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w := serve(h, requestAs("", "192.0.2.2:1000")); w.Code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", w.Code)
	}
}

func TestRateLimiter_Auth_IndependentAndKeyedByIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	general := rl.GeneralMiddleware()(okHandler())
	authMW := rl.AuthMiddleware()(okHandler())

	if w := serve(authMW, requestAs("user-1", "10.0.0.9:1")); w.Code != http.StatusOK {
		t.Fatalf("first auth request status = %d", w.Code)
	}
	// ユーザーが変わっても同一IPなら認証系の制限に掛かる
	if w := serve(authMW, requestAs("user-2", "10.0.0.9:1")); w.Code != http.StatusTooManyRequests {
		t.Errorf("second auth request status = %d, want 429", w.Code)
	}
	if w := serve(general, requestAs("user-1", "10.0.0.9:1")); w.Code != http.StatusOK {
		t.Errorf("general should be unaffected, status = %d", w.Code)
	}
	if rl.AuthLimiterCount() != 1 {
		t.Errorf("auth limiter count = %d, want 1", rl.AuthLimiterCount())
	}
}

func TestRateLimiter_Cleanup_EvictsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	h := rl.GeneralMiddleware()(okHandler())
	serve(h, requestAs("idle", "10.0.0.1:1"))

	now = now.Add(time.Minute)
	serve(h, requestAs("active", "10.0.0.1:1"))

	now = now.Add(90 * time.Second)
	rl.cleanup()

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Errorf("limiter count after cleanup = %d, want 1", got)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}
