package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "keys are limited independently")

	// первый запрос выпадает из окна
	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
}

func TestRateLimiterCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(5, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	now = now.Add(2 * time.Minute)
	rl.Allow("b")
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.requests, "a")
	assert.Len(t, rl.requests["b"], 1)
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(1, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	rl.Stop()
	rl.Stop()
}

func TestRateLimitMiddleware(t *testing.T) {
	defer goleak.VerifyNone(t)

	apiLimiter := NewRateLimiter(2, time.Minute)
	defer apiLimiter.Stop()
	hookLimiter := NewRateLimiter(1, time.Minute)
	defer hookLimiter.Stop()

	log := zaptest.NewLogger(t)
	r := NewRouter(Options{
		FactChecks:     NewFactCheckHandler(&mockVerifier{}, false, log),
		Webhooks:       NewWebhookHandler(&mockInbound{}, nil, log),
		APILimiter:     apiLimiter,
		WebhookLimiter: hookLimiter,
		Logger:         log,
	})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api", "").Code)
	}
	w := do(r, http.MethodGet, "/api", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Too Many Requests", body["error"])
	assert.Equal(t, "Rate limit exceeded. Please try again later.", body["message"])

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/webhooks", "").Code)
	w = do(r, http.MethodPost, "/webhooks/telegram", `{"update_id":1}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Webhook rate limit exceeded.", decode(t, w)["message"])

	// health не ограничивается
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
}

func TestRateLimitMiddlewareStandalone(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	r := gin.New()
	r.GET("/x", RateLimitMiddleware(rl, "slow down"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/x", "").Code)
	w := do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "slow down", decode(t, w)["message"])
}
