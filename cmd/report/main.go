// Command report prints request statistics read straight from the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iliyamo/kidcheck/internal/analytics"
	"github.com/iliyamo/kidcheck/internal/config"
	"github.com/iliyamo/kidcheck/internal/database"
	"github.com/iliyamo/kidcheck/internal/repository"
)

func main() {
	format := flag.String("format", "text", "output format: text or json")
	timeout := flag.Duration("timeout", 30*time.Second, "database timeout")
	flag.Parse()

	if err := run(os.Stdout, *format, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, format string, timeout time.Duration) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	dbc, err := config.LoadDB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	db, err := database.Open(ctx, dbc)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	snap, err := repository.NewRequestRepo(db).Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	sum := analytics.Summarize(snap, time.Now().UTC())

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	return analytics.WriteText(w, sum)
}
