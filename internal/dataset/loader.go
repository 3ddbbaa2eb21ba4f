package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"settlement-times/internal/engine"
)

// ErrMalformedDataset flags a refresh payload that failed validation. The
// refresh is rejected wholesale and the previous snapshot stays current.
var ErrMalformedDataset = errors.New("dataset: malformed dataset")

// minSampleSize is what the upstream pipeline promises per record. Smaller
// samples are ingested anyway and logged; the tier a record is served from
// already caps the confidence it can imply.
const minSampleSize = 3

// RouteAssetRecord is one row of the route+asset table in flat form.
type RouteAssetRecord struct {
	OriginChain      string
	DestinationChain string
	AssetSymbol      string
	Bin              string
	P25Minutes       decimal.Decimal
	P50Minutes       decimal.Decimal
	P75Minutes       decimal.Decimal
	SampleSize       int
}

// CategoryRecord is one row of the route-category average table.
type CategoryRecord struct {
	Category    string
	AssetSymbol string
	Bin         string
	P25Minutes  decimal.Decimal
	P50Minutes  decimal.Decimal
	P75Minutes  decimal.Decimal
	SampleSize  int
	Description string
}

// Payload carries one refresh cycle's worth of source data.
type Payload struct {
	RouteAssets []RouteAssetRecord
	Categories  []CategoryRecord
	Chains      map[string]string
	Version     string
	LastUpdated time.Time
}

// Source produces refresh payloads from wherever the upstream pipeline
// publishes them.
type Source interface {
	Fetch(ctx context.Context) (*Payload, error)
}

// Loader validates payloads and assembles immutable snapshots.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{logger: logger.With().Str("component", "dataset_loader").Logger()}
}

// Build validates a payload and assembles it into a snapshot. Any rejected
// row fails the whole payload; a refresh is applied in full or not at all.
// Identical payloads build identical snapshots.
func (l *Loader) Build(payload *Payload) (*engine.Snapshot, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrMalformedDataset)
	}

	routeAssets := make(map[engine.RouteAssetKey]engine.RouteStats, len(payload.RouteAssets))
	lowSamples := 0
	for _, rec := range payload.RouteAssets {
		if rec.OriginChain == "" || rec.DestinationChain == "" || rec.AssetSymbol == "" {
			return nil, fmt.Errorf("%w: route record missing chain or asset", ErrMalformedDataset)
		}
		bin, ok := engine.BinFromLabel(rec.Bin)
		if !ok {
			return nil, fmt.Errorf("%w: unknown bin %q for %s→%s %s", ErrMalformedDataset, rec.Bin, rec.OriginChain, rec.DestinationChain, rec.AssetSymbol)
		}
		key := engine.RouteAssetKey{Origin: rec.OriginChain, Destination: rec.DestinationChain, Asset: rec.AssetSymbol, Bin: bin}
		if _, dup := routeAssets[key]; dup {
			return nil, fmt.Errorf("%w: duplicate route record %s→%s %s %s", ErrMalformedDataset, rec.OriginChain, rec.DestinationChain, rec.AssetSymbol, rec.Bin)
		}
		if rec.SampleSize < minSampleSize {
			lowSamples++
			l.logger.Warn().
				Str("origin", rec.OriginChain).
				Str("destination", rec.DestinationChain).
				Str("asset", rec.AssetSymbol).
				Str("bin", rec.Bin).
				Int("sample_size", rec.SampleSize).
				Msg("route record below expected sample size")
		}
		routeAssets[key] = engine.RouteStats{P25: rec.P25Minutes, P50: rec.P50Minutes, P75: rec.P75Minutes, SampleSize: rec.SampleSize}
	}

	categories := make(map[engine.CategoryKey]engine.CategoryStats, len(payload.Categories))
	for _, rec := range payload.Categories {
		category := engine.RouteCategory(rec.Category)
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown route category %q", ErrMalformedDataset, rec.Category)
		}
		if rec.AssetSymbol == "" {
			return nil, fmt.Errorf("%w: category record missing asset", ErrMalformedDataset)
		}
		bin, ok := engine.BinFromLabel(rec.Bin)
		if !ok {
			return nil, fmt.Errorf("%w: unknown bin %q for category %s %s", ErrMalformedDataset, rec.Bin, rec.Category, rec.AssetSymbol)
		}
		key := engine.CategoryKey{Category: category, Asset: rec.AssetSymbol, Bin: bin}
		if _, dup := categories[key]; dup {
			return nil, fmt.Errorf("%w: duplicate category record %s %s %s", ErrMalformedDataset, rec.Category, rec.AssetSymbol, rec.Bin)
		}
		categories[key] = engine.CategoryStats{
			RouteStats:  engine.RouteStats{P25: rec.P25Minutes, P50: rec.P50Minutes, P75: rec.P75Minutes, SampleSize: rec.SampleSize},
			Description: rec.Description,
		}
	}

	chains := make(map[string]engine.ChainClass, len(payload.Chains))
	for name, class := range payload.Chains {
		if name == "" {
			return nil, fmt.Errorf("%w: empty chain name", ErrMalformedDataset)
		}
		cc := engine.ChainClass(class)
		if !cc.Valid() {
			return nil, fmt.Errorf("%w: chain %q has class %q", ErrMalformedDataset, name, class)
		}
		chains[name] = cc
	}

	version := payload.Version
	if version == "" {
		version = fingerprint(payload)
	}

	snap := engine.NewSnapshot(version, payload.LastUpdated, routeAssets, categories, chains)
	l.logger.Info().
		Str("version", version).
		Int("route_records", snap.RouteAssetCount()).
		Int("category_records", snap.CategoryCount()).
		Int("chains", snap.ChainCount()).
		Int("low_sample_records", lowSamples).
		Msg("dataset snapshot built")
	return snap, nil
}

// fingerprint derives a content-addressed version for payloads the source
// did not version itself, so re-running a refresh against identical data
// publishes an identical snapshot.
func fingerprint(p *Payload) string {
	rows := make([]string, 0, len(p.RouteAssets)+len(p.Categories)+len(p.Chains))
	for _, rec := range p.RouteAssets {
		rows = append(rows, strings.Join([]string{
			"route", rec.OriginChain, rec.DestinationChain, rec.AssetSymbol, rec.Bin,
			rec.P25Minutes.String(), rec.P50Minutes.String(), rec.P75Minutes.String(),
			strconv.Itoa(rec.SampleSize),
		}, "|"))
	}
	for _, rec := range p.Categories {
		rows = append(rows, strings.Join([]string{
			"category", rec.Category, rec.AssetSymbol, rec.Bin,
			rec.P25Minutes.String(), rec.P50Minutes.String(), rec.P75Minutes.String(),
			strconv.Itoa(rec.SampleSize), rec.Description,
		}, "|"))
	}
	for name, class := range p.Chains {
		rows = append(rows, "chain|"+name+"|"+class)
	}
	sort.Strings(rows)

	h := sha256.New()
	for _, row := range rows {
		h.Write([]byte(row))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
