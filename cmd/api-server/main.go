package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"karmasri/internal/api"
	"karmasri/internal/auth"
	"karmasri/internal/docstore"
	"karmasri/internal/events"
	"karmasri/internal/grpcserver"
	"karmasri/internal/logging"
	"karmasri/internal/spark"
	"karmasri/pkg/database"
	"karmasri/pkg/utils"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := utils.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCfg := database.DefaultConfig(cfg.DBPath)
	db, err := database.OpenMigrated(dbCfg)
	if err != nil {
		logger.Fatal("open database", zap.String("path", dbCfg.Path), zap.Error(err))
	}
	defer db.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var blobs docstore.BlobStore = docstore.SQLiteBlobs{DB: db}
	if cfg.Documents.Backend == "gcs" {
		gcs, client, err := docstore.NewGCSBlobs(ctx, cfg.Documents)
		if err != nil {
			logger.Fatal("documents backend", zap.Error(err))
		}
		defer client.Close()
		blobs = gcs
	}

	hub := events.NewHub(logger)
	defer hub.Close()

	router := api.NewRouter(api.Deps{
		DB: db,
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Duration: cfg.Auth.JWTDuration,
		},
		Spark:    spark.NewClient(cfg.Spark.BaseURL, cfg.Spark.Timeout),
		Blobs:    blobs,
		MaxBytes: cfg.Documents.MaxBytes,
		Hub:      hub,
		Log:      logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := grpcserver.NewServer(db, 10*time.Second, logger)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("grpc listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		grpcSrv.Watch(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("gRPC health listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(grpcLis); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP API listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("db", dbCfg.Path),
			zap.String("documents", cfg.Documents.Backend),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down servers")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.Stop()

	wg.Wait()
	logger.Info("servers stopped")
}
