package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	// ContextKeyRequestID holds the request id in Gin context.
	ContextKeyRequestID = "requestID"
	// ContextKeyExposeDetail marks whether error responses may carry detail.
	ContextKeyExposeDetail = "exposeDetail"
)

// ErrorDetailMiddleware records whether handlers may add the underlying
// error to 5xx responses. It is off in production.
func ErrorDetailMiddleware(expose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyExposeDetail, expose)
		c.Next()
	}
}

// SecurityHeadersMiddleware sets the usual hardening headers. HSTS is only
// sent in production where TLS terminates in front of the API.
func SecurityHeadersMiddleware(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		if production {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		c.Next()
	}
}

// RequestLoggerMiddleware tags each request with an id and logs its outcome.
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// RecoveryMiddleware turns a panic into a JSON 500. Outside production the
// panic value and stack are included in the response.
func RecoveryMiddleware(exposeDetail bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		stack := string(debug.Stack())
		slog.ErrorContext(c.Request.Context(), "Panic while serving request",
			"request_id", c.GetString(ContextKeyRequestID), "panic", recovered, "stack", stack)

		body := gin.H{"error": "An unexpected error occurred"}
		if exposeDetail {
			body["detail"] = fmt.Sprint(recovered)
			body["stack"] = stack
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
