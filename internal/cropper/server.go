package cropper

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andresmejia3/facecrop/internal/types"
)

const requestLoggerKey = "requestLogger"

// NewRouter wires the trigger endpoint and a health check.
func NewRouter(svc *Service, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/", handleBatch(svc))

	return r
}

// handleBatch always answers 200 once the batch loop has run, whatever the
// per-message outcomes. Only an envelope without a messages array is rejected.
func handleBatch(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := c.MustGet(requestLoggerKey).(*slog.Logger)

		var env types.TriggerEnvelope
		if err := c.ShouldBindJSON(&env); err != nil {
			log.Warn("rejected trigger envelope", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger payload"})
			return
		}

		svc.WithLogger(log).ProcessEnvelope(c.Request.Context(), env)
		c.Status(http.StatusOK)
	}
}

// requestLogger tags every log line of one request with a request id.
func requestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		log := base.With("request_id", reqID)
		c.Set(requestLoggerKey, log)
		c.Header("X-Request-Id", reqID)

		start := time.Now()
		c.Next()

		log.Debug("request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
