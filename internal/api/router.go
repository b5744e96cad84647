package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"propflow/api/internal/api/handlers"
	"propflow/api/internal/api/middleware"
	"propflow/api/internal/cache"
	"propflow/api/internal/config"
	"propflow/api/internal/email"
	"propflow/api/internal/models"
	"propflow/api/internal/services"
)

// Services are the domain services behind the REST surface.
type Services struct {
	Listings  services.IListingService
	Enquiries services.IEnquiryService
	Agents    services.IAgentService
	Auth      services.IAuthService
	Analytics services.IAnalyticsService
	Chat      services.IChatService
	Uploads   services.IUploadService
}

// Limits are the request limiters shared across engines.
type Limits struct {
	Window cache.WindowCounter
	Chat   *middleware.TokenBucketLimiter
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc Services, limits Limits) *gin.Engine {
	production := cfg.IsProduction()

	r := gin.New()
	r.Use(middleware.RequestLoggerMiddleware())
	r.Use(middleware.RecoveryMiddleware(!production))
	r.Use(middleware.ErrorDetailMiddleware(!production))
	r.Use(middleware.SecurityHeadersMiddleware(production))
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL))

	listingHandler := handlers.NewListingHandler(svc.Listings)
	enquiryHandler := handlers.NewEnquiryHandler(svc.Enquiries)
	agentHandler := handlers.NewAgentHandler(svc.Agents)
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Agents)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	chatHandler := handlers.NewChatHandler(svc.Chat)
	uploadHandler := handlers.NewUploadHandler(svc.Uploads)

	requireAuth := middleware.AuthMiddleware(svc.Auth)
	optionalAuth := middleware.OptionalAuthMiddleware(svc.Auth)
	backOffice := middleware.RoleMiddleware(models.RoleAdmin, models.RoleAgent)
	adminOnly := middleware.RoleMiddleware(models.RoleAdmin)

	r.GET("/health", handlers.NewHealthHandler(cfg.AppEnv, cfg.Version).Health)

	apiGroup := r.Group("/api")
	if limits.Window != nil {
		apiGroup.Use(middleware.WindowLimitMiddleware(limits.Window, cfg.RateLimitWindow, cfg.RateLimitMax))
	}

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/register", requireAuth, adminOnly, authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", optionalAuth, authHandler.Logout)
		authGroup.GET("/me", requireAuth, authHandler.Me)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}

	listings := apiGroup.Group("/listings")
	{
		listings.GET("", optionalAuth, listingHandler.SearchListings)
		listings.GET("/admin/all", requireAuth, backOffice, listingHandler.BrowseListings)
		listings.GET("/:id", optionalAuth, listingHandler.GetListing)
		listings.POST("", requireAuth, backOffice, listingHandler.CreateListing)
		listings.PUT("/:id", requireAuth, backOffice, listingHandler.UpdateListing)
		listings.PATCH("/:id/status", requireAuth, backOffice, listingHandler.UpdateListingStatus)
		listings.PATCH("/:id/assign", requireAuth, adminOnly, listingHandler.AssignListing)
		listings.DELETE("/:id", requireAuth, adminOnly, listingHandler.DeleteListing)
	}

	enquiries := apiGroup.Group("/enquiries")
	{
		enquiries.POST("", optionalAuth, enquiryHandler.SubmitEnquiry)
		enquiries.GET("", requireAuth, backOffice, enquiryHandler.ListEnquiries)
		enquiries.PATCH("/:id/status", requireAuth, backOffice, enquiryHandler.UpdateEnquiryStatus)
	}

	agents := apiGroup.Group("/agents", requireAuth, adminOnly)
	{
		agents.GET("", agentHandler.ListAgents)
		agents.PATCH("/:id/status", agentHandler.UpdateAgentStatus)
	}

	analytics := apiGroup.Group("/analytics", requireAuth, backOffice)
	{
		analytics.GET("/dashboard", analyticsHandler.Dashboard)
		analytics.GET("/top-listings", analyticsHandler.TopListings)
	}

	chatChain := []gin.HandlerFunc{optionalAuth}
	if limits.Chat != nil {
		chatChain = append([]gin.HandlerFunc{limits.Chat.Limit()}, chatChain...)
	}
	apiGroup.POST("/chat", append(chatChain, chatHandler.Chat)...)

	apiGroup.POST("/uploads/presign", requireAuth, backOffice, uploadHandler.Presign)

	r.NoRoute(handlers.NotFound)
	return r
}

// SetupServiceRouter configures the internal service engine used by
// operators and end-to-end tests.
func SetupServiceRouter(rdb redis.Cmdable, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLoggerMiddleware(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			slog.Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				slog.Warn("Shutdown channel already signaled")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail reads back a message captured by the Redis email sender.
// Arguments are [kind, email].
func getTestEmail(c *gin.Context, rdb redis.Cmdable, raw json.RawMessage) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
		return
	}
	if rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis not configured"})
		return
	}
	key := fmt.Sprintf(email.MockEmailKeyFormat, strings.ToLower(args[1]), args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var stored string
	found := false
	for i := 0; i < 10; i++ {
		val, err := rdb.GetDel(ctx, key).Result()
		if err == nil {
			stored, found = val, true
			break
		}
		if !errors.Is(err, redis.Nil) {
			slog.Error("Service API: failed to read test email", "key", key, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", key)})
		return
	}

	var data email.MockEmail
	if err := json.Unmarshal([]byte(stored), &data); err != nil {
		slog.Error("Service API: failed to decode test email", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
