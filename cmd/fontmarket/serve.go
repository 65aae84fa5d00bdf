package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	delivery "github.com/egannguyen/fontmarket/internal/delivery/http"
	"github.com/egannguyen/fontmarket/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the demo catalog before serving")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions, seed bool) error {
	cfg := opts.cfg
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if seed {
		if err := seedCatalog(ctx, store); err != nil {
			return err
		}
	}

	broker := openBroker(cfg)
	defer broker.Close()

	app, err := firebaseApp(ctx, cfg)
	if err != nil {
		return err
	}
	verifier, err := newVerifier(ctx, cfg, app)
	if err != nil {
		return err
	}
	files, err := newFileStore(ctx, cfg, app)
	if err != nil {
		return err
	}
	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	notifications := service.NewNotificationService(store)
	svc := delivery.Services{
		Users:         service.NewUserService(store),
		Catalog:       service.NewCatalogService(store, broker),
		Carts:         service.NewCartService(store),
		Chat:          service.NewChatService(store),
		Checkout:      service.NewCheckoutService(store, broker, cfg.Download.TTL),
		Downloads:     service.NewDownloadService(store, files),
		Wishlist:      service.NewWishlistService(store),
		Notifications: notifications,
		Sponsors:      service.NewSponsorService(store),
		TrialKeys:     service.NewTrialKeyService(store),
	}

	for topic, handler := range notifications.Handlers() {
		go broker.Consume(ctx, topic, cfg.Kafka.GroupID+"-notifications", handler)
	}
	slog.Info("🔄 Event consumers started", "driver", cfg.Messaging.Driver)

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	h := delivery.NewHandler(svc, verifier, limiter, cfg.Auth.CookieName)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           delivery.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("🚀 HTTP server starting", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return httpServer.Shutdown(shutdownCtx)
}
