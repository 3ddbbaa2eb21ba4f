package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"settlement-times/internal/engine"
)

// Export renders the route+asset table as CSV and/or a per-bin percentile PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	snap, err := a.buildSnapshot(ctx)
	if err != nil {
		return err
	}

	entries := filterEntries(snap.RouteAssetRecords(), opts)
	if len(entries) == 0 {
		a.Logger.Info().Msg("no route records matched the export filters")
		return nil
	}
	if len(entries) > opts.MaxRows {
		a.Logger.Warn().Int("total", len(entries)).Int("max_rows", opts.MaxRows).Msg("export truncated")
		entries = entries[:opts.MaxRows]
	}

	a.Logger.Info().Int("rows", len(entries)).Str("version", snap.Version()).Msg("exporting route records")

	if opts.CSVPath != "" {
		if err := writeRoutesCSV(opts.CSVPath, entries); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeRoutesPNG(opts.PNGPath, entries); err != nil {
			return err
		}
	}
	return nil
}

func filterEntries(entries []engine.RouteAssetEntry, opts ExportOptions) []engine.RouteAssetEntry {
	origin := normalizeChain(opts.Origin)
	destination := normalizeChain(opts.Destination)
	asset := normalizeAsset(opts.Asset)

	filtered := make([]engine.RouteAssetEntry, 0, len(entries))
	for _, entry := range entries {
		if opts.Origin != "" && entry.Key.Origin != origin {
			continue
		}
		if opts.Destination != "" && entry.Key.Destination != destination {
			continue
		}
		if opts.Asset != "" && entry.Key.Asset != asset {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

func writeRoutesCSV(path string, entries []engine.RouteAssetEntry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"origin_chain", "destination_chain", "asset_symbol", "amount_bin", "p25_minutes", "p50_minutes", "p75_minutes", "sample_size"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range entries {
		record := []string{
			entry.Key.Origin,
			entry.Key.Destination,
			entry.Key.Asset,
			entry.Key.Bin.String(),
			entry.Stats.P25.String(),
			entry.Stats.P50.String(),
			entry.Stats.P75.String(),
			strconv.Itoa(entry.Stats.SampleSize),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// writeRoutesPNG charts the median settlement minutes per amount bin, one
// series per route+asset. Bounded so a broad filter stays readable.
func writeRoutesPNG(path string, entries []engine.RouteAssetEntry) error {
	const maxSeries = 8

	if err := ensureDir(path); err != nil {
		return err
	}

	type seriesKey struct {
		origin, destination, asset string
	}
	byRoute := make(map[seriesKey][engine.NumBins]*decimal.Decimal)
	order := make([]seriesKey, 0)
	for _, entry := range entries {
		key := seriesKey{entry.Key.Origin, entry.Key.Destination, entry.Key.Asset}
		bins, seen := byRoute[key]
		if !seen {
			if len(order) == maxSeries {
				continue
			}
			order = append(order, key)
		}
		p50 := entry.Stats.P50
		bins[entry.Key.Bin] = &p50
		byRoute[key] = bins
	}

	series := make([]chart.Series, 0, len(order))
	for _, key := range order {
		bins := byRoute[key]
		xs := make([]float64, 0, engine.NumBins)
		ys := make([]float64, 0, engine.NumBins)
		for i := 0; i < engine.NumBins; i++ {
			if bins[i] == nil {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, bins[i].InexactFloat64())
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s→%s %s", key.origin, key.destination, key.asset),
			XValues: xs,
			YValues: ys,
		})
	}
	if len(series) == 0 {
		return errors.New("no chartable series after filtering")
	}

	ticks := make([]chart.Tick, 0, engine.NumBins)
	for i, label := range engine.BinLabels() {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: label})
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name:  "Amount bin (USD)",
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Median settlement (minutes)",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
