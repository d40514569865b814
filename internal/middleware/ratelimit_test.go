package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gdrocha-io/togglr-backend/internal/model"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func init() {
	logger.InitLogger("test")
}

func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:0", // Invalid port
		DialTimeout: 10 * time.Millisecond,
		ReadTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRateLimitMiddleware_RedisFailure_FailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(unreachableRedis(), 10))
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)

	// Should fail open (Status 200) despite Redis being down
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 (Fail Open), got %d", w.Code)
	}
	if val := w.Header().Get("X-RateLimit-Limit"); val != "10" {
		t.Errorf("Expected X-RateLimit-Limit header '10', got '%s'", val)
	}
}

func TestRateLimitMiddleware_LocalFallbackEnforcesBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(unreachableRedis(), 1))
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLimitKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		actor *service.Actor
		want  string
	}{
		{name: "anonymous uses ip", want: "ip:192.0.2.1"},
		{name: "user uses name", actor: &service.Actor{Name: "alice", Kind: model.ActorUser}, want: "actor:alice"},
		{name: "client uses id", actor: &service.Actor{Name: "svc", Kind: model.ActorClient}, want: "actor:svc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			if tt.actor != nil {
				req = req.WithContext(service.WithActor(req.Context(), *tt.actor))
			}
			c.Request = req

			assert.Equal(t, tt.want, limitKey(c))
		})
	}
}
