package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"propflow/api/internal/api"
	"propflow/api/internal/api/handlers"
	"propflow/api/internal/api/middleware"
	"propflow/api/internal/auth"
	"propflow/api/internal/authz"
	"propflow/api/internal/cache"
	"propflow/api/internal/chat"
	"propflow/api/internal/config"
	"propflow/api/internal/db"
	"propflow/api/internal/email"
	"propflow/api/internal/logging"
	"propflow/api/internal/services"
	"propflow/api/internal/storage"
	"propflow/api/internal/store"
	"propflow/api/internal/store/mongostore"
	"propflow/api/internal/store/pgstore"
	"propflow/api/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	ctx := context.Background()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open datastore", "datastore", cfg.Datastore, "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	redisClient, err := cache.Connect(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(redisClient); err != nil {
			slog.Error("Error disconnecting from Redis", "error", err)
		}
	}()

	emailSender := buildEmailSender(cfg, redisClient)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	taskProcessor := tasks.NewTaskProcessor(tasks.ProcessorConfig{
		AppName:     cfg.AppName,
		FromAddress: cfg.SmtpFromAddress,
		FrontendURL: cfg.FrontendURL,
	}, emailSender)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Service API listening", "port", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Service API ListenAndServe error", "error", err)
			os.Exit(1)
		}
	}()

	var (
		mainApiSrv        *http.Server
		backgroundTaskSrv *asynq.Server
		dispatcher        *tasks.AsyncDispatcher
		chatLimiter       *middleware.TokenBucketLimiter
	)

	slog.Info("Starting application", "mode", cfg.RunMode, "env", cfg.AppEnv, "version", cfg.Version)

	apiMode := func() {
		if err := handlers.RegisterValidators(); err != nil {
			slog.Error("Failed to register validators", "error", err)
			os.Exit(1)
		}

		dispatcher = tasks.NewAsyncDispatcher(tasks.DefaultDispatchTimeout)
		chatLimiter = middleware.NewChatRateLimiter(cfg.ChatRateLimitPerMinute, cfg.ChatRateLimitBucketSize)
		svc := buildServices(ctx, cfg, stores, redisClient, tasks.NewQueue(taskClient), dispatcher)

		mainApiSrv = &http.Server{
			Addr: ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, svc, api.Limits{
				Window: cache.NewRedisWindow(redisClient, "ratelimit"),
				Chat:   chatLimiter,
			}),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("Main API listening", "port", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Main API ListenAndServe error", "error", err)
				os.Exit(1)
			}
		}()
	}

	bgMode := func() {
		var mux *asynq.ServeMux
		backgroundTaskSrv, mux = tasks.SetupServer(redisClient, taskProcessor)
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("Background task server starting")
			if err := backgroundTaskSrv.Run(mux); err != nil {
				slog.Error("Background task server error", "error", err)
				os.Exit(1)
			}
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		slog.Error("Invalid run mode", "mode", cfg.RunMode)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received signal, shutting down gracefully", "signal", sig.String())
	case <-shutdownChan:
		slog.Info("Shutdown requested via Service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		slog.Error("Service API server shutdown error", "error", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			slog.Error("Main API server shutdown error", "error", err)
		}
	}
	if dispatcher != nil {
		if err := dispatcher.Wait(ctxShutdown); err != nil {
			slog.Warn("Background work still running at shutdown", "error", err)
		}
	}
	if chatLimiter != nil {
		chatLimiter.Close()
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	slog.Info("Server gracefully stopped")
}

// openStores connects the configured datastore and prepares its schema.
func openStores(ctx context.Context, cfg *config.Config) (store.Stores, error) {
	switch cfg.Datastore {
	case config.DatastoreMongo:
		conn, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDbName)
		if err != nil {
			return store.Stores{}, err
		}
		if err := mongostore.EnsureIndexes(ctx, conn.Database); err != nil {
			_ = conn.Close()
			return store.Stores{}, err
		}
		return mongostore.New(conn), nil
	default:
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return store.Stores{}, err
		}
		if cfg.DBAutoMigrate {
			if err := pgstore.Migrate(ctx, pool); err != nil {
				pool.Close()
				return store.Stores{}, err
			}
			slog.Info("Database schema applied")
		}
		return pgstore.New(pool), nil
	}
}

// buildEmailSender picks the primary sender and optionally tees every message
// to a log file.
func buildEmailSender(cfg *config.Config, rdb *redis.Client) email.Sender {
	var primary email.Sender
	if cfg.MockServices {
		slog.Info("MOCK_SERVICES enabled: using Redis email sender")
		primary = email.NewRedisSender(rdb, cfg.SmtpFromAddress)
	} else {
		primary = email.NewSMTPSender(cfg)
	}

	composite := email.NewCompositeEmailSender(primary)
	if cfg.LogEmails != "" {
		fileSender, err := email.NewFileEmailSender(cfg.LogEmails, cfg.SmtpFromAddress)
		if err != nil {
			slog.Warn("Failed to initialize file email sender, proceeding without it", "path", cfg.LogEmails, "error", err)
		} else {
			composite.AddSender(fileSender)
			slog.Info("File email logger enabled", "path", cfg.LogEmails)
		}
	}
	return composite
}

func buildServices(ctx context.Context, cfg *config.Config, stores store.Stores, rdb *redis.Client, notifier services.Notifier, dispatch tasks.Dispatcher) api.Services {
	scoper := authz.NewScoper(stores.ListingOwners, stores.EnquiryOwners)
	provider := auth.NewLocalProvider(auth.LocalConfig{
		JwtSecret:  cfg.JwtSecret,
		AccessTTL:  cfg.JwtTTL,
		RefreshTTL: cfg.RefreshTTL,
		ResetTTL:   cfg.ResetPasswordTTL,
	}, stores.Credentials, auth.NewRedisKV(rdb))

	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, chat requests will fail")
	}
	completer := chat.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.ChatModel, cfg.ChatMaxTokens)

	s3Storage, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		slog.Warn("S3 storage unavailable, upload presigning disabled", "error", err)
	}

	return api.Services{
		Listings:  services.NewListingService(stores.Listings, stores.Users, scoper, dispatch),
		Enquiries: services.NewEnquiryService(stores.Enquiries, stores.Listings, stores.Users, scoper, dispatch, notifier),
		Agents:    services.NewAgentService(stores.Users, stores.Listings, stores.Enquiries, provider, scoper, dispatch, notifier),
		Auth:      services.NewAuthService(provider, stores.Users, scoper, dispatch, notifier),
		Analytics: services.NewAnalyticsService(stores.Listings, stores.Enquiries, stores.Users, scoper, cfg.AnalyticsLocation),
		Chat:      services.NewChatService(completer, stores.Listings, stores.ChatLogs, scoper, dispatch, cfg.AppName),
		Uploads:   services.NewUploadService(s3Storage, scoper, cfg.UploadURLTTL),
	}
}
