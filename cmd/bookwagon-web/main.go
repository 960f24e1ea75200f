package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/config"
	"github.com/programmerrakibul/book-wagon-client/internal/database"
	"github.com/programmerrakibul/book-wagon-client/internal/handlers"
	"github.com/programmerrakibul/book-wagon-client/internal/identity"
	authmw "github.com/programmerrakibul/book-wagon-client/internal/middleware"
	"github.com/programmerrakibul/book-wagon-client/internal/services"
	"github.com/programmerrakibul/book-wagon-client/internal/session"
	"github.com/programmerrakibul/book-wagon-client/internal/sse"
	"github.com/programmerrakibul/book-wagon-client/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open client storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer closeBackend()

	hub := sse.NewHub()
	go hub.Run(ctx)

	registry := session.NewRegistry(session.Deps{
		Identity:       identity.NewClient(cfg.Identity),
		Backend:        backend,
		Events:         hub,
		Logger:         logger,
		APIBaseURL:     cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RoleTimeout:    cfg.RoleTimeout,
		RoleCacheSize:  cfg.RoleCacheSize,
		LoginPath:      cfg.LoginPath,
		RequestURI:     cfg.Google.RedirectURL,
	}, cfg.SessionTTL)
	defer registry.Close()

	go registry.Run(ctx, time.Minute)

	sessionTokens := services.NewSessionTokenService(cfg.SessionSecret, cfg.SessionTTL)
	userService := services.NewUserService()
	bookService := services.NewBookService()
	orderService := services.NewOrderService()
	wishlistService := services.NewWishlistService()
	paymentService := services.NewPaymentService()

	authHandler := handlers.NewAuthHandler(cfg, userService, logger)
	go authHandler.RunCleanup(ctx, time.Minute)
	sessionHandler := handlers.NewSessionHandler(hub)
	bookHandler := handlers.NewBookHandler(bookService, cfg.LoginPath)
	orderHandler := handlers.NewOrderHandler(orderService, paymentService, cfg.LoginPath)
	wishlistHandler := handlers.NewWishlistHandler(wishlistService, cfg.LoginPath)
	adminHandler := handlers.NewAdminHandler(userService, cfg.LoginPath)
	pageHandler := handlers.NewPageHandler()

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())
	app.Use(authmw.Session(registry, sessionTokens, cfg.IsProduction(), logger))

	pageGuard := authmw.GuardConfig{LoginPath: cfg.LoginPath, Wait: cfg.GuardWait}
	apiGuard := authmw.GuardConfig{LoginPath: cfg.LoginPath, Wait: cfg.GuardWait, JSON: true}

	// Pages
	app.Get(cfg.LoginPath, authHandler.LoginPage)

	myPages := app.Group("/my")
	myPages.Use(authmw.PrivateRoute(pageGuard))
	myPages.Get("/dashboard", pageHandler.Dashboard)

	librarianPages := app.Group("/librarian")
	librarianPages.Use(authmw.LibrarianRoute(pageGuard))
	librarianPages.Get("/dashboard", pageHandler.Librarian)

	adminPages := app.Group("/admin")
	adminPages.Use(authmw.AdminRoute(pageGuard))
	adminPages.Get("/dashboard", pageHandler.Admin)

	// API
	api := app.Group("/api/v1")

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	api.Get("/session", sessionHandler.Get)
	api.Get("/session/events", sessionHandler.Events)

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/:provider/consent", authHandler.GetConsentURL)
	auth.Get("/:provider/callback", authHandler.Callback)

	api.Get("/books", bookHandler.List)
	api.Get("/books/:id", bookHandler.Get)

	private := api.Group("")
	private.Use(authmw.PrivateRoute(apiGuard))

	private.Get("/users/me", authHandler.GetMe)
	private.Patch("/users/me", authHandler.UpdateMe)

	private.Post("/orders", orderHandler.Place)
	private.Get("/orders/my", orderHandler.Mine)
	private.Patch("/orders/:id/cancel", orderHandler.Cancel)
	private.Post("/payments/checkout", orderHandler.Checkout)

	private.Get("/wishlist", wishlistHandler.List)
	private.Post("/wishlist", wishlistHandler.Add)
	private.Delete("/wishlist/:bookId", wishlistHandler.Remove)

	librarian := api.Group("/librarian")
	librarian.Use(authmw.LibrarianRoute(apiGuard))

	librarian.Get("/books", bookHandler.Mine)
	librarian.Post("/books", bookHandler.Create)
	librarian.Patch("/books/:id", bookHandler.Update)
	librarian.Get("/orders", orderHandler.Incoming)
	librarian.Patch("/orders/:id/status", orderHandler.UpdateStatus)

	admin := api.Group("/admin")
	admin.Use(authmw.AdminRoute(apiGuard))

	admin.Get("/users", adminHandler.ListUsers)
	admin.Patch("/users/:email/role", adminHandler.SetRole)
	admin.Get("/books", bookHandler.All)
	admin.Patch("/books/:id/publish", bookHandler.Publish)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info("server starting", zap.String("addr", addr), zap.String("storage", cfg.StorageDriver))
		if err := app.Run(addr); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server", zap.Int("open_sessions", registry.Len()))
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// openStorage builds the client-storage backend named by STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Backend, func(), error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return storage.NewPostgresBackend(db), db.Close, nil

	case config.StorageRedis:
		client, err := storage.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return storage.NewRedisBackend(client, cfg.SessionTTL), func() { _ = client.Close() }, nil

	case config.StorageMemory, "":
		return storage.NewMemoryBackend(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
