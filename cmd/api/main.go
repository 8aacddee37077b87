package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/config"
	httpapi "github.com/GoSim-25-26J-441/ui2code-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/cleanup"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/logging"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/export"
	projectshttp "github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/http"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/service"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/storage/filestore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "production")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logging.New(cfg.App.LogLevel, cfg.App.Environment).With().
		Str("service", cfg.App.ServiceName).
		Str("version", cfg.App.Version).
		Logger()
	bootstrap.SetGinMode(cfg.App.Environment)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	store, err := filestore.New(cfg.Storage.Root, cfg.Storage.MaxUploadBytes, log)
	if err != nil {
		return err
	}
	repo, err := repository.NewProjectRepository(cfg.Storage.HistoryDir(), log)
	if err != nil {
		return err
	}
	packager := export.NewPackager(repo, store, log)
	repo.OnDelete(packager.Purge)

	client, err := bootstrap.NewCodeGenClient(ctx, cfg.CodeGen, log)
	if err != nil {
		return err
	}

	tr, redisClient := bootstrap.NewTracker(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	gen := service.NewGenerationService(
		repo,
		store,
		client,
		tr,
		service.NewRemoteImageFetcher(cfg.CodeGen.FetchTimeout, cfg.Storage.MaxUploadBytes),
		cfg.CodeGen.Timeout,
		log,
	)
	projects := service.NewProjectService(repo, packager, log)

	var scheduler *cleanup.Scheduler
	if cfg.Cleanup.Enabled {
		sweeper := cleanup.NewSweeper(repo, store, gen, cfg.Cleanup.Grace, log)
		scheduler, err = cleanup.NewScheduler(sweeper, cfg.Cleanup.Schedule, log)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Log:            log,
		Projects:       projectshttp.New(gen, projects, cfg.Storage.MaxUploadBytes, log),
		Probes: []httpapi.Probe{
			{Name: "storage", Check: store.Health},
			{Name: "repository", Check: repo.Health},
			{Name: "tracker", Check: tr.Ping},
		},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.CodeGen.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn().Msg("cleanup sweep still running at shutdown")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := gen.Drain(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("generations still running at shutdown")
	}
	log.Info().Msg("server stopped")
	return nil
}
