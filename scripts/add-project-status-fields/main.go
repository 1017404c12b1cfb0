package main

import (
	"fmt"
	"os"

	"github.com/Keranthos/softeng-platform/internal/cli"
	"github.com/Keranthos/softeng-platform/internal/schema"
	"github.com/Keranthos/softeng-platform/storage"
)

func main() {
	cfg, err := cli.Init("add-project-status-fields")
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

	// DDL commits implicitly on MySQL, so the patch runs outside a transaction.
	result, err := schema.Apply(ctx, db, schema.ProjectStatus)
	if err != nil {
		cli.Fatal("schema patch failed", err, db)
	}

	for _, c := range result.AddedColumns {
		fmt.Printf("[OK] added column %s\n", c)
	}
	for _, c := range result.SkippedColumns {
		fmt.Printf("[SKIP] column %s already exists\n", c)
	}
	for _, i := range result.AddedIndexes {
		fmt.Printf("[OK] added index %s\n", i)
	}
	for _, i := range result.SkippedIndexes {
		fmt.Printf("[SKIP] index %s already exists\n", i)
	}
	fmt.Printf("[OK] set status=approved on %d projects\n", result.Backfilled)

	approved, total, err := schema.StatusCounts(ctx, db)
	if err != nil {
		cli.Fatal("failed to verify projects", err, db)
	}
	fmt.Printf("\nProjects: %d\nApproved: %d\n", total, approved)
}
