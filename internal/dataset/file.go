package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultRouteTimesFile       = "settlement_times.json"
	defaultCategoryAveragesFile = "route_category_averages.json"
	defaultChainClassesFile     = "chain_classes.json"
)

// FileOptions locate the three JSON documents the upstream pipeline writes.
type FileOptions struct {
	Dir                  string
	RouteTimesFile       string
	CategoryAveragesFile string
	ChainClassesFile     string
}

// FileSource reads a published dataset from a local directory.
type FileSource struct {
	opts FileOptions
}

// NewFileSource fills in default file names and returns the source.
func NewFileSource(opts FileOptions) *FileSource {
	if opts.RouteTimesFile == "" {
		opts.RouteTimesFile = defaultRouteTimesFile
	}
	if opts.CategoryAveragesFile == "" {
		opts.CategoryAveragesFile = defaultCategoryAveragesFile
	}
	if opts.ChainClassesFile == "" {
		opts.ChainClassesFile = defaultChainClassesFile
	}
	return &FileSource{opts: opts}
}

// binStatsDoc mirrors the per-bin object the pipeline emits.
type binStatsDoc struct {
	P25         decimal.Decimal `json:"settlement_duration_minutes_p25"`
	P50         decimal.Decimal `json:"settlement_duration_minutes_p50"`
	P75         decimal.Decimal `json:"settlement_duration_minutes_p75"`
	SampleSize  int             `json:"sample_size"`
	Description string          `json:"description"`
}

// Fetch reads and flattens the three documents. The payload version is a
// digest of the raw file contents, so identical files always produce an
// identical snapshot; LastUpdated is the newest file modification time.
func (s *FileSource) Fetch(ctx context.Context) (*Payload, error) {
	routeRaw, routeTime, err := s.readFile(s.opts.RouteTimesFile)
	if err != nil {
		return nil, err
	}
	categoryRaw, categoryTime, err := s.readFile(s.opts.CategoryAveragesFile)
	if err != nil {
		return nil, err
	}
	chainsRaw, chainsTime, err := s.readFile(s.opts.ChainClassesFile)
	if err != nil {
		return nil, err
	}

	// originChain -> destinationChain -> assetSymbol -> bin -> stats
	var routeDoc map[string]map[string]map[string]map[string]binStatsDoc
	if err := json.Unmarshal(routeRaw, &routeDoc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrMalformedDataset, s.opts.RouteTimesFile, err)
	}
	// routeCategory -> assetSymbol -> bin -> stats
	var categoryDoc map[string]map[string]map[string]binStatsDoc
	if err := json.Unmarshal(categoryRaw, &categoryDoc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrMalformedDataset, s.opts.CategoryAveragesFile, err)
	}
	var chains map[string]string
	if err := json.Unmarshal(chainsRaw, &chains); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrMalformedDataset, s.opts.ChainClassesFile, err)
	}

	payload := &Payload{
		Chains:      chains,
		Version:     digest(routeRaw, categoryRaw, chainsRaw),
		LastUpdated: latest(routeTime, categoryTime, chainsTime),
	}

	for _, origin := range sortedKeys(routeDoc) {
		for _, destination := range sortedKeys(routeDoc[origin]) {
			for _, asset := range sortedKeys(routeDoc[origin][destination]) {
				for _, bin := range sortedKeys(routeDoc[origin][destination][asset]) {
					stats := routeDoc[origin][destination][asset][bin]
					payload.RouteAssets = append(payload.RouteAssets, RouteAssetRecord{
						OriginChain:      origin,
						DestinationChain: destination,
						AssetSymbol:      asset,
						Bin:              bin,
						P25Minutes:       stats.P25,
						P50Minutes:       stats.P50,
						P75Minutes:       stats.P75,
						SampleSize:       stats.SampleSize,
					})
				}
			}
		}
	}

	for _, category := range sortedKeys(categoryDoc) {
		for _, asset := range sortedKeys(categoryDoc[category]) {
			for _, bin := range sortedKeys(categoryDoc[category][asset]) {
				stats := categoryDoc[category][asset][bin]
				payload.Categories = append(payload.Categories, CategoryRecord{
					Category:    category,
					AssetSymbol: asset,
					Bin:         bin,
					P25Minutes:  stats.P25,
					P50Minutes:  stats.P50,
					P75Minutes:  stats.P75,
					SampleSize:  stats.SampleSize,
					Description: stats.Description,
				})
			}
		}
	}

	return payload, nil
}

func (s *FileSource) readFile(name string) ([]byte, time.Time, error) {
	path := filepath.Join(s.opts.Dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("stat dataset file: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read dataset file: %w", err)
	}
	return raw, info.ModTime().UTC(), nil
}

func digest(docs ...[]byte) string {
	h := sha256.New()
	for _, doc := range docs {
		h.Write(doc)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func latest(times ...time.Time) time.Time {
	var max time.Time
	for _, t := range times {
		if t.After(max) {
			max = t
		}
	}
	return max
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
