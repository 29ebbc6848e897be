package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ServiceName    = "walansi-kontonbile"
	ServiceVersion = "1.0.0"

	shutdownTimeout = 30 * time.Second
)

type Options struct {
	FactChecks     *FactCheckHandler
	Webhooks       *WebhookHandler
	JWTSecret      string
	APILimiter     *RateLimiter
	WebhookLimiter *RateLimiter
	Logger         *zap.Logger
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/health", health)

	api := r.Group("/api")
	if opts.APILimiter != nil {
		api.Use(RateLimitMiddleware(opts.APILimiter, "Rate limit exceeded. Please try again later."))
	}
	{
		api.GET("", apiInfo)

		fc := api.Group("/fact-check", OptionalJWT([]byte(opts.JWTSecret)))
		fc.POST("", opts.FactChecks.Verify)
		fc.GET("/search", opts.FactChecks.Search)
		fc.GET("/:id", opts.FactChecks.Get)
	}

	hooks := r.Group("/webhooks")
	if opts.WebhookLimiter != nil {
		hooks.Use(RateLimitMiddleware(opts.WebhookLimiter, "Webhook rate limit exceeded."))
	}
	{
		hooks.GET("", webhooksInfo)
		hooks.POST("/telegram", opts.Webhooks.Telegram)
		hooks.GET("/whatsapp", opts.Webhooks.VerifyWhatsApp)
		hooks.POST("/whatsapp", opts.Webhooks.WhatsApp)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("remote_addr", c.ClientIP()))
	}
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   ServiceName,
		"version":   ServiceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func apiInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"version": ServiceVersion,
		"endpoints": gin.H{
			"factCheck": "POST /api/fact-check",
			"getById":   "GET /api/fact-check/:id",
			"search":    "GET /api/fact-check/search?q=",
		},
	})
}

func webhooksInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook endpoints",
		"endpoints": gin.H{
			"telegram": "POST /webhooks/telegram",
			"whatsapp": "GET|POST /webhooks/whatsapp",
		},
	})
}

// Serve запускает HTTP-сервер и корректно останавливает его при отмене ctx.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	log.Info("server exited")
	return nil
}
