package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nachiket-Roy/LMS-Backend/internal/catalog"
	"github.com/Nachiket-Roy/LMS-Backend/internal/fines"
	"github.com/Nachiket-Roy/LMS-Backend/internal/lending"
	"github.com/Nachiket-Roy/LMS-Backend/internal/members"
	"github.com/Nachiket-Roy/LMS-Backend/internal/notify"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/auth"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/db"
	"github.com/Nachiket-Roy/LMS-Backend/internal/platform/logging"
	"github.com/Nachiket-Roy/LMS-Backend/internal/reconciler"
)

func main() {
	logging.Setup()

	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("starting", "mode", cfg.Mode, "addr", cfg.Server.Addr)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	slog.Info("connected to database", "dbname", cfg.DB.DBName)

	// Stores.
	catalogStore := catalog.NewStore(conn)
	lendingStore := lending.NewStore(conn)
	fineStore := fines.NewStore(conn)
	notifyStore := notify.NewStore(conn)
	memberStore := members.NewStore(conn)
	sweepStore := reconciler.NewStore(conn)

	// Services.
	notifier := notify.NewService(notifyStore)
	fineEngine := fines.NewEngine(fineStore, notifier, cfg.Lending)
	catalogSvc := catalog.NewService(catalogStore)
	lendingSvc := lending.NewService(lendingStore, catalogStore, fineEngine, notifier, cfg.Lending)
	authSvc := auth.NewService(conn, []byte(cfg.Server.JWTSecret))
	rec := reconciler.New(sweepStore, memberStore, fineEngine, notifier, cfg.Lending)

	// Background sweeps, stopped with the server.
	schedCtx, stopSched := context.WithCancel(context.Background())
	defer stopSched()
	reconciler.NewScheduler(rec, cfg.Scheduler.FineSweepInterval, cfg.Scheduler.ExpirySweepInterval).Start(schedCtx)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth.RegisterRoutes(r.Group("/api/v1/auth"), authSvc)

	api := r.Group("/api/v1")
	api.Use(auth.RequireAuth([]byte(cfg.Server.JWTSecret)))
	catalog.RegisterRoutes(api, catalogSvc)
	lending.RegisterRoutes(api, lendingSvc)
	fines.RegisterRoutes(api, fineEngine)
	notify.RegisterRoutes(api, notifier)
	reconciler.RegisterRoutes(api, rec)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("shutting down")
	stopSched()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
