package app

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Validate performs a dry-run refresh: fetch and build without publishing.
// Exits non-zero on a dataset the refresh loop would reject.
func (a *App) Validate(ctx context.Context) error {
	started := time.Now()
	snap, err := a.buildSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("dataset rejected: %w", err)
	}

	fmt.Fprintf(os.Stdout, "dataset ok (version %s, %d route entries, %d category entries, %d chains, built in %s)\n",
		snap.Version(),
		snap.RouteAssetCount(),
		snap.CategoryCount(),
		snap.ChainCount(),
		time.Since(started).Round(time.Millisecond),
	)
	return nil
}
