package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Keranthos/softeng-platform/internal/cli"
	"github.com/Keranthos/softeng-platform/internal/localizer"
	"github.com/Keranthos/softeng-platform/storage"
)

func main() {
	cfg, err := cli.Init("migrate-images")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	db, err := storage.New(ctx, cfg)
	if err != nil {
		cli.Fatal("failed to initialize database", err)
	}
	defer db.Close()

	slog.Info("starting image localization",
		"upload_root", cfg.Upload.Root,
		"max_size", cfg.Upload.MaxSize,
		"retries", cfg.Download.MaxRetries,
		"tables", len(localizer.DefaultTargets))

	migrator := localizer.NewMigrator(cfg, localizer.NewDownloader(cfg))
	summary, err := migrator.Run(ctx, db, localizer.DefaultTargets)
	localizer.WriteSummary(os.Stdout, summary, cfg.Upload.Root)
	if err != nil {
		cli.Fatal("migration failed, transaction rolled back", err, db)
	}

	total := summary.Total()
	slog.Info("image localization complete", "updated", total.Updated(), "skipped", total.Skipped())
}
