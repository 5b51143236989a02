package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-ordering-api/config"
	"food-ordering-api/middleware"
	"food-ordering-api/payment"
	"food-ordering-api/routes"
	"food-ordering-api/tracking"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		config.Log.Error(ctx, "service_stopped", "service exited with an error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := config.Log

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	if err := config.InitDB(cfg); err != nil {
		return err
	}
	log.Info(ctx, "db_connected", "database ready", slog.String("driver", cfg.DBDriver))

	if created, err := config.SeedAdmin(config.DB, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	} else if created {
		log.Info(ctx, "admin_seeded", "admin account created", slog.String("email", cfg.AdminEmail))
	}

	processor, err := payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	switch {
	case errors.Is(err, payment.ErrNotConfigured):
		log.Warn(ctx, "payments_disabled", "STRIPE_SECRET_KEY is not set; payment endpoints will answer 503")
	case err != nil:
		return err
	default:
		config.Payments = processor
	}
	if !cfg.RequireVerifiedPayment {
		log.Warn(ctx, "payments_unverified", "orders may be created without a verified payment")
	}

	hub := tracking.NewHub(log)
	config.Tracker = hub

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log), middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Food Ordering API",
			"version": "1.0.0",
		})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Food Ordering API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "restaurant", "admin"},
		})
	})

	if err := routes.SetupRoutes(r); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		log.Info(gctx, "service_started", "listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info(shutdownCtx, "service_stopping", "shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
