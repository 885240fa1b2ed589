package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/youruser/bannermaker/internal/api"
	"github.com/youruser/bannermaker/internal/config"
	"github.com/youruser/bannermaker/internal/export"
	imagepkg "github.com/youruser/bannermaker/internal/image"
	"github.com/youruser/bannermaker/internal/project"
	"github.com/youruser/bannermaker/internal/storage"
	"github.com/youruser/bannermaker/internal/util"
)

func main() {
	configPath := flag.String("config", os.Getenv("BANNER_CONFIG"), "path to an HCL config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := util.EnsureDir(cfg.DataDir); err != nil {
		return err
	}
	store, err := project.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	exports := export.NewService(store, files, log, imagepkg.WithWorkers(cfg.RenderWorkers))
	h := api.NewHandler(store, files, exports, log, cfg.MaxUploadBytes)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log))
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	h.RegisterRoutes(r)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr(), "storage", cfg.StorageBackend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageBackend == config.BackendMinio {
		return storage.NewMinio(ctx, cfg.MinioConfig())
	}
	return storage.NewLocal(cfg.UploadDir)
}
