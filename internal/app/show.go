package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"settlement-times/internal/engine"
)

// Show prints a summary of the currently published dataset.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	snap, err := a.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "version:      %s\n", snap.Version())
	fmt.Fprintf(os.Stdout, "last updated: %s\n", snap.LastUpdated().UTC().Format(time.RFC3339))
	fmt.Fprintf(os.Stdout, "route+asset entries: %d\n", snap.RouteAssetCount())
	fmt.Fprintf(os.Stdout, "category entries:    %d\n", snap.CategoryCount())
	fmt.Fprintf(os.Stdout, "classified chains:   %d\n", snap.ChainCount())

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "\nAmount bin\tRoute entries")
	counts := snap.RouteBinCounts()
	for i, label := range engine.BinLabels() {
		fmt.Fprintf(writer, "%s\t%d\n", label, counts[i])
	}
	writer.Flush()

	return a.showRecentRefreshes(ctx, opts.RefreshLimit)
}

func (a *App) showRecentRefreshes(ctx context.Context, limit int) error {
	if limit <= 0 || a.Config.Database.DSN == "" {
		return nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentRefreshes(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "\nStarted (UTC)\tVersion\tStatus\tError")
	for _, rec := range records {
		errMsg := ""
		if rec.Error != nil {
			errMsg = sanitizeInline(*rec.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			rec.StartedAt.UTC().Format(time.RFC3339),
			rec.Version,
			rec.Status,
			errMsg,
		)
	}
	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
