package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Keranthos/softeng-platform/internal/cli"
	"github.com/Keranthos/softeng-platform/internal/courses"
	"github.com/Keranthos/softeng-platform/storage"
)

func main() {
	cfg, err := cli.Init("delete-invalid-courses")
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

	fmt.Printf("Valid categories: %s\n", strings.Join(courses.ValidCategories, ", "))

	invalid, err := courses.FindInvalid(ctx, db, courses.ValidCategories)
	if err != nil {
		cli.Fatal("failed to list courses", err, db)
	}
	if len(invalid) == 0 {
		fmt.Println("All courses have a valid category; nothing to delete")
		return
	}

	fmt.Printf("\n%d courses will be deleted:\n", len(invalid))
	courses.WriteCourses(os.Stdout, invalid)

	fmt.Print("\nDelete them? Type 'yes' to confirm: ")
	if !courses.Confirm(os.Stdin) {
		fmt.Println("Cancelled")
		return
	}

	result, err := courses.DeleteInTx(ctx, db, courses.IDs(invalid))
	if err != nil {
		cli.Fatal("delete failed, transaction rolled back", err, db)
	}

	slog.Info("courses deleted",
		"courses", result.Courses,
		"comments", result.Comments,
		"collections", result.Collections,
		"likes", result.Likes)
	fmt.Printf("Deleted %d courses, %d comments, %d collections, %d likes\n",
		result.Courses, result.Comments, result.Collections, result.Likes)
}
