package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/GoSim-25-26J-441/ui2code-backend/config"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/cleanup"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/export"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/ui2code-backend/internal/storage/filestore"
)

type stores struct {
	files    *filestore.Store
	repo     *repository.ProjectRepository
	packager *export.Packager
}

func openStores(cfg *config.Config, log zerolog.Logger) (stores, error) {
	files, err := filestore.New(cfg.Storage.Root, cfg.Storage.MaxUploadBytes, log)
	if err != nil {
		return stores{}, err
	}
	repo, err := repository.NewProjectRepository(cfg.Storage.HistoryDir(), log)
	if err != nil {
		return stores{}, err
	}
	p := export.NewPackager(repo, files, log)
	repo.OnDelete(p.Purge)
	return stores{files: files, repo: repo, packager: p}, nil
}

// RunSweep performs one cleanup pass and prints the report. Uploads pinned by
// a running API process are not visible here; the grace period covers them.
func RunSweep(cfg *config.Config, log zerolog.Logger) error {
	s, err := openStores(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := cleanup.NewSweeper(s.repo, s.files, nil, cfg.Cleanup.Grace, log).Sweep(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// RunExport writes a project's archive to outFile, or to <name>.zip when omitted.
func RunExport(cfg *config.Config, log zerolog.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: worker export <projectID> [outFile]")
	}
	s, err := openStores(cfg, log)
	if err != nil {
		return err
	}

	a, err := s.packager.Export(context.Background(), args[0])
	if err != nil {
		return err
	}
	out := a.FileName
	if len(args) > 1 {
		out = args[1]
	}
	if err := filestore.WriteFileAtomic(out, a.Data, 0o644); err != nil {
		return err
	}
	log.Info().Str("project_id", args[0]).Str("file", out).Bool("cached", a.Cached).Msg("export written")
	return nil
}
