package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Keranthos/softeng-platform/internal/cli"
	"github.com/Keranthos/softeng-platform/internal/merge"
	"github.com/Keranthos/softeng-platform/storage"
)

func main() {
	cfg, err := cli.Init("merge-duplicate-tools")
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

	slog.Info("merging duplicate tools", "groups", len(merge.DefaultGroups))

	results, err := merge.Run(ctx, db, merge.DefaultGroups)
	if err != nil {
		cli.Fatal("merge failed, transaction rolled back", err, db)
	}

	merge.WriteResults(os.Stdout, results)
	fmt.Println("[SUCCESS] all duplicate tools merged")
}
