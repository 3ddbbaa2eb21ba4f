package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"settlement-times/internal/config"
	"settlement-times/internal/dataset"
	"settlement-times/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newSource selects the configured dataset source. The postgres source needs
// an open store; the file source reads the pipeline's published JSON files.
func (a *App) newSource(store *storage.Store) (dataset.Source, error) {
	switch a.Config.Dataset.Source {
	case "file":
		return dataset.NewFileSource(dataset.FileOptions{
			Dir:                  a.Config.Dataset.Dir,
			RouteTimesFile:       a.Config.Dataset.RouteTimesFile,
			CategoryAveragesFile: a.Config.Dataset.CategoryAveragesFile,
			ChainClassesFile:     a.Config.Dataset.ChainClassesFile,
		}), nil
	case "postgres":
		if store == nil {
			return nil, fmt.Errorf("dataset.source is postgres but database.dsn is not configured")
		}
		return dataset.NewPostgresSource(store), nil
	default:
		return nil, fmt.Errorf("unknown dataset source %q", a.Config.Dataset.Source)
	}
}

// LookupOptions configure a one-off estimate lookup.
type LookupOptions struct {
	Origin      string
	Destination string
	Asset       string
	AmountUSD   float64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	RefreshLimit int
}

// ExportOptions hold parameters for exporting the loaded dataset.
type ExportOptions struct {
	CSVPath     string
	PNGPath     string
	Origin      string
	Destination string
	Asset       string
	MaxRows     int
}
