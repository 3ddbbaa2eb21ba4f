package engine

import "fmt"

// Engine resolves settlement-time estimates against the currently published
// snapshot. Resolution is synchronous, CPU-only, and lock-free.
type Engine struct {
	holder *Holder
}

// New wires an engine onto a snapshot holder.
func New(holder *Holder) *Engine {
	return &Engine{holder: holder}
}

// Resolve runs the three-tier fallback for one transfer. found=false means no
// tier had coverage; that is an expected outcome, not an error. The only
// errors are ErrInvalidAmount and ErrDatasetUnavailable.
func (e *Engine) Resolve(origin, destination, asset string, amountUSD float64) (Estimate, bool, error) {
	snap, err := e.holder.Current()
	if err != nil {
		return Estimate{}, false, err
	}
	return ResolveAgainst(snap, origin, destination, asset, amountUSD)
}

// ResolveAgainst evaluates one resolution against an explicit snapshot. It is
// a pure function of its arguments: identical inputs against the same
// snapshot return identical results. Tiers run in strict priority order and
// the first hit short-circuits.
func ResolveAgainst(snap *Snapshot, origin, destination, asset string, amountUSD float64) (Estimate, bool, error) {
	bin, err := BinForAmount(amountUSD)
	if err != nil {
		return Estimate{}, false, err
	}

	// Tier 1: exact route, exact asset. An empty asset symbol (the caller
	// could not translate the token address) skips tiers 1 and 2.
	if asset != "" {
		if stats, ok := snap.RouteAsset(RouteAssetKey{Origin: origin, Destination: destination, Asset: asset, Bin: bin}); ok {
			return newEstimate(snap, stats, ConfidenceHigh, SourceExactRoute, asset, ""), true, nil
		}
	}

	// Tier 2: exact route, another asset with data for the same bin,
	// selected by the fixed priority order.
	if asset != "" {
		for _, candidate := range snap.AssetsForRoute(origin, destination, bin) {
			if candidate == asset {
				continue
			}
			stats, ok := snap.RouteAsset(RouteAssetKey{Origin: origin, Destination: destination, Asset: candidate, Bin: bin})
			if !ok {
				continue
			}
			note := substitutionNote(candidate, origin, destination)
			return newEstimate(snap, stats, ConfidenceMedium, SourceRouteDifferentAsset, asset, note), true, nil
		}
	}

	// Tier 3: route-category average. Unavailable when either chain is
	// unclassified.
	originClass, err := snap.ClassifyChain(origin)
	if err != nil {
		return Estimate{}, false, nil
	}
	destinationClass, err := snap.ClassifyChain(destination)
	if err != nil {
		return Estimate{}, false, nil
	}
	category := CategoryFor(originClass, destinationClass)

	if asset != "" {
		if stats, ok := snap.Category(CategoryKey{Category: category, Asset: asset, Bin: bin}); ok {
			return newEstimate(snap, stats.RouteStats, ConfidenceMedium, SourceCategoryAverage, asset, ""), true, nil
		}
	}

	for _, candidate := range snap.AssetsForCategory(category, bin) {
		if candidate == asset {
			continue
		}
		stats, ok := snap.Category(CategoryKey{Category: category, Asset: candidate, Bin: bin})
		if !ok {
			continue
		}
		note := substitutionNote(candidate, origin, destination)
		return newEstimate(snap, stats.RouteStats, ConfidenceLow, SourceCategoryAverage, asset, note), true, nil
	}

	// Closest available bin for the category, requested asset first, then
	// substitutes in priority order. The scan is bounded by the 8-bin domain.
	candidates := make([]string, 0, len(snap.AssetsInCategory(category))+1)
	if asset != "" {
		candidates = append(candidates, asset)
	}
	for _, c := range snap.AssetsInCategory(category) {
		if c != asset {
			candidates = append(candidates, c)
		}
	}
	for _, candidate := range candidates {
		stats, ok := closestBin(snap, category, candidate, bin)
		if !ok {
			continue
		}
		note := ""
		if candidate != asset {
			note = substitutionNote(candidate, origin, destination)
		}
		return newEstimate(snap, stats.RouteStats, ConfidenceLow, SourceCategoryAverage, asset, note), true, nil
	}

	return Estimate{}, false, nil
}

// closestBin probes bins by index distance from the requested bin; at equal
// distance the higher bin wins.
func closestBin(snap *Snapshot, category RouteCategory, asset string, bin AmountBin) (CategoryStats, bool) {
	for dist := 1; dist < NumBins; dist++ {
		if b := bin + AmountBin(dist); b.Valid() {
			if stats, ok := snap.Category(CategoryKey{Category: category, Asset: asset, Bin: b}); ok {
				return stats, true
			}
		}
		if b := bin - AmountBin(dist); b.Valid() {
			if stats, ok := snap.Category(CategoryKey{Category: category, Asset: asset, Bin: b}); ok {
				return stats, true
			}
		}
	}
	return CategoryStats{}, false
}

func substitutionNote(substituted, origin, destination string) string {
	return fmt.Sprintf("estimated using %s data for %s→%s", substituted, origin, destination)
}

func newEstimate(snap *Snapshot, stats RouteStats, confidence Confidence, source DataSource, asset, note string) Estimate {
	return Estimate{
		P25Minutes:  stats.P25,
		P75Minutes:  stats.P75,
		Confidence:  confidence,
		DataSource:  source,
		AssetSymbol: asset,
		SampleSize:  stats.SampleSize,
		Note:        note,
		LastUpdated: snap.LastUpdated(),
	}
}
