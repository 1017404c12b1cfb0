package main

import (
	"fmt"
	"os"

	"github.com/Keranthos/softeng-platform/internal/cli"
	"github.com/Keranthos/softeng-platform/internal/merge"
	"github.com/Keranthos/softeng-platform/storage"
)

func main() {
	cfg, err := cli.Init("verify-merge")
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

	report, err := merge.Verify(ctx, db, merge.GroupNames(merge.DefaultGroups))
	if err != nil {
		cli.Fatal("verification failed", err, db)
	}

	merge.WriteReport(os.Stdout, report)
}
