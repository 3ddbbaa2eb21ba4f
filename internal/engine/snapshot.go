package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"
)

// ErrDatasetUnavailable means no snapshot has been published yet, e.g. before
// the first refresh completes. Callers omit the settlement field rather than
// block.
var ErrDatasetUnavailable = errors.New("engine: no dataset published")

type routeBinKey struct {
	Origin      string
	Destination string
	Bin         AmountBin
}

type categoryBinKey struct {
	Category RouteCategory
	Bin      AmountBin
}

// Snapshot is one immutable, versioned instance of the full lookup dataset.
// It is built once per refresh cycle and shared by concurrent resolutions;
// nothing mutates it after NewSnapshot returns.
type Snapshot struct {
	version     string
	lastUpdated time.Time

	routeAssets map[RouteAssetKey]RouteStats
	categories  map[CategoryKey]CategoryStats
	chains      map[string]ChainClass

	routeBinAssets    map[routeBinKey][]string
	categoryBinAssets map[categoryBinKey][]string
	categoryAssets    map[RouteCategory][]string
}

// NewSnapshot copies the three tables and precomputes the priority-ordered
// asset lists tiers 2 and 3 substitute from.
func NewSnapshot(version string, lastUpdated time.Time, routeAssets map[RouteAssetKey]RouteStats, categories map[CategoryKey]CategoryStats, chains map[string]ChainClass) *Snapshot {
	s := &Snapshot{
		version:           version,
		lastUpdated:       lastUpdated,
		routeAssets:       make(map[RouteAssetKey]RouteStats, len(routeAssets)),
		categories:        make(map[CategoryKey]CategoryStats, len(categories)),
		chains:            make(map[string]ChainClass, len(chains)),
		routeBinAssets:    make(map[routeBinKey][]string),
		categoryBinAssets: make(map[categoryBinKey][]string),
		categoryAssets:    make(map[RouteCategory][]string),
	}

	for key, stats := range routeAssets {
		s.routeAssets[key] = stats
		rb := routeBinKey{Origin: key.Origin, Destination: key.Destination, Bin: key.Bin}
		s.routeBinAssets[rb] = append(s.routeBinAssets[rb], key.Asset)
	}
	for key, stats := range categories {
		s.categories[key] = stats
		cb := categoryBinKey{Category: key.Category, Bin: key.Bin}
		s.categoryBinAssets[cb] = append(s.categoryBinAssets[cb], key.Asset)
	}
	for name, class := range chains {
		s.chains[name] = class
	}

	for _, assets := range s.routeBinAssets {
		sortAssets(assets)
	}
	for _, assets := range s.categoryBinAssets {
		sortAssets(assets)
	}

	seen := make(map[RouteCategory]map[string]bool)
	for key := range s.categories {
		if seen[key.Category] == nil {
			seen[key.Category] = make(map[string]bool)
		}
		if !seen[key.Category][key.Asset] {
			seen[key.Category][key.Asset] = true
			s.categoryAssets[key.Category] = append(s.categoryAssets[key.Category], key.Asset)
		}
	}
	for _, assets := range s.categoryAssets {
		sortAssets(assets)
	}

	return s
}

// Version identifies the dataset build this snapshot came from.
func (s *Snapshot) Version() string { return s.version }

// LastUpdated is the publish timestamp of the source dataset.
func (s *Snapshot) LastUpdated() time.Time { return s.lastUpdated }

// RouteAsset looks up the route+asset table.
func (s *Snapshot) RouteAsset(key RouteAssetKey) (RouteStats, bool) {
	stats, ok := s.routeAssets[key]
	return stats, ok
}

// AssetsForRoute lists the assets with data for (origin, destination, bin) in
// substitution priority order. Callers must not modify the returned slice.
func (s *Snapshot) AssetsForRoute(origin, destination string, bin AmountBin) []string {
	return s.routeBinAssets[routeBinKey{Origin: origin, Destination: destination, Bin: bin}]
}

// Category looks up the route-category average table.
func (s *Snapshot) Category(key CategoryKey) (CategoryStats, bool) {
	stats, ok := s.categories[key]
	return stats, ok
}

// AssetsForCategory lists the assets with data for (category, bin) in
// substitution priority order.
func (s *Snapshot) AssetsForCategory(category RouteCategory, bin AmountBin) []string {
	return s.categoryBinAssets[categoryBinKey{Category: category, Bin: bin}]
}

// AssetsInCategory lists every asset the category has data for in any bin.
func (s *Snapshot) AssetsInCategory(category RouteCategory) []string {
	return s.categoryAssets[category]
}

// ClassifyChain maps a chain name to its layer class.
func (s *Snapshot) ClassifyChain(name string) (ChainClass, error) {
	class, ok := s.chains[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	return class, nil
}

// RouteAssetEntry pairs a route+asset key with its stats for iteration.
type RouteAssetEntry struct {
	Key   RouteAssetKey
	Stats RouteStats
}

// RouteAssetRecords returns the full route+asset table in a stable order.
func (s *Snapshot) RouteAssetRecords() []RouteAssetEntry {
	entries := make([]RouteAssetEntry, 0, len(s.routeAssets))
	for key, stats := range s.routeAssets {
		entries = append(entries, RouteAssetEntry{Key: key, Stats: stats})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		if a.Destination != b.Destination {
			return a.Destination < b.Destination
		}
		if a.Asset != b.Asset {
			return a.Asset < b.Asset
		}
		return a.Bin < b.Bin
	})
	return entries
}

// RouteBinCounts reports how many route records exist per bin.
func (s *Snapshot) RouteBinCounts() [NumBins]int {
	var counts [NumBins]int
	for key := range s.routeAssets {
		if key.Bin.Valid() {
			counts[key.Bin]++
		}
	}
	return counts
}

// RouteAssetCount is the number of route+asset records.
func (s *Snapshot) RouteAssetCount() int { return len(s.routeAssets) }

// CategoryCount is the number of route-category records.
func (s *Snapshot) CategoryCount() int { return len(s.categories) }

// ChainCount is the number of classified chains.
func (s *Snapshot) ChainCount() int { return len(s.chains) }

// Holder publishes the current Snapshot. The refresh process is the only
// writer; readers load the reference once per resolution and keep a
// consistent, possibly stale, view across a swap.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder returns an empty holder; Current fails until the first Swap.
func NewHolder() *Holder {
	return &Holder{}
}

// Swap atomically replaces the published snapshot.
func (h *Holder) Swap(s *Snapshot) {
	h.current.Store(s)
}

// Current returns the published snapshot, or ErrDatasetUnavailable before
// the first publish.
func (h *Holder) Current() (*Snapshot, error) {
	if s := h.current.Load(); s != nil {
		return s, nil
	}
	return nil, ErrDatasetUnavailable
}
