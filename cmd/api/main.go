package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/go-shop-api/internal/auth"
	"github.com/safar/go-shop-api/internal/catalog"
	"github.com/safar/go-shop-api/internal/config"
	"github.com/safar/go-shop-api/internal/database"
	"github.com/safar/go-shop-api/internal/events"
	"github.com/safar/go-shop-api/internal/handlers"
	"github.com/safar/go-shop-api/internal/notify"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	logger, err := newLogger(cfg.Server.Env)
	if err != nil {
		panic("build logger: " + err.Error())
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database connected")

	// The catalog cache is an accelerator. When Redis is unreachable the
	// service runs uncached rather than refusing to start.
	cache, err := catalog.New(cfg.Redis.URL, cfg.Redis.CacheTTL, logger)
	if err != nil {
		logger.Warn("catalog cache disabled", zap.Error(err))
		cache = nil
	} else {
		defer cache.Close()
	}

	bus := events.NewBus()
	defer bus.Close()

	mailer := notify.NewSMTPSender(cfg.SMTP)
	texter := notify.NewWhatsAppSender(cfg.WhatsApp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := notify.NewDispatcher(db, mailer, texter, cfg.Shop.AdminEmails, logger)
	if err := dispatcher.Run(ctx, bus); err != nil {
		logger.Fatal("start notification dispatcher", zap.Error(err))
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	guard := auth.NewGuard(tokens, cfg.Auth.SessionCookie)
	h := handlers.New(db, logger, cache, bus, tokens, mailer, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newRouter(h, guard),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newRouter(h *handlers.Handler, guard *auth.Guard) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(guard.Principal)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Credential endpoints, rate limited per IP.
	r.Group(func(r chi.Router) {
		r.Use(h.RateLimitAuth)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/forgot-password", h.ForgotPassword)
		r.Post("/auth/reset-password", h.ResetPassword)
	})
	r.Post("/auth/logout", h.Logout)

	// Public storefront.
	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/reviews", h.ListProductReviews)
	r.Get("/categories", h.ListCategories)
	r.Get("/banners", h.ListBanners)

	// Checkout works with or without a session; guests supply contact data.
	r.Post("/orders", h.CreateOrder)

	// Authenticated customer surface.
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireUser)
		r.Get("/users/me", h.Me)
		r.Patch("/users/me", h.UpdateProfile)
		r.Get("/users/me/favorites", h.ListFavorites)
		r.Put("/users/me/favorites/{productID}", h.AddFavorite)
		r.Delete("/users/me/favorites/{productID}", h.RemoveFavorite)
		r.Post("/reviews", h.CreateReview)
		r.Delete("/reviews/{id}", h.DeleteReview)
		r.Get("/orders", h.ListMyOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Post("/orders/{id}/cancel", h.CancelOrder)
	})

	// Admin surface.
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAdmin)
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
		r.Post("/products/{id}/stock", h.AdjustStock)
		r.Post("/categories", h.CreateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)
		r.Post("/banners", h.CreateBanner)
		r.Put("/banners/{id}", h.UpdateBanner)
		r.Delete("/banners/{id}", h.DeleteBanner)
		r.Get("/admin/orders", h.ListAllOrders)
		r.Post("/orders/{id}/advance", h.AdvanceOrder)
		r.Get("/admin/users", h.ListUsers)
		r.Patch("/admin/users/{id}/role", h.SetUserRole)
		r.Delete("/admin/users/{id}", h.DeleteUser)
		r.Get("/admin/notifications", h.ListNotifications)
	})

	return r
}
