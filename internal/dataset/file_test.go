package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const routeTimesJSON = `{
  "arbitrum": {
    "ethereum": {
      "WETH": {
        "0-50000": {
          "settlement_duration_minutes_p25": 12.5,
          "settlement_duration_minutes_p50": 20,
          "settlement_duration_minutes_p75": 30.25,
          "sample_size": 40
        },
        "50000-100000": {
          "settlement_duration_minutes_p25": 15,
          "settlement_duration_minutes_p50": 24,
          "settlement_duration_minutes_p75": 38,
          "sample_size": 11
        }
      }
    }
  }
}`

const categoryAveragesJSON = `{
  "L2_to_L1": {
    "USDC": {
      "0-50000": {
        "settlement_duration_minutes_p25": 10,
        "settlement_duration_minutes_p50": 18,
        "settlement_duration_minutes_p75": 35,
        "sample_size": 200,
        "description": "L2 rollup to Ethereum mainnet"
      }
    }
  }
}`

const chainClassesJSON = `{
  "ethereum": "L1",
  "arbitrum": "L2"
}`

func writeDatasetDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"settlement_times.json":        routeTimesJSON,
		"route_category_averages.json": categoryAveragesJSON,
		"chain_classes.json":           chainClassesJSON,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFileSourceFetch(t *testing.T) {
	dir := writeDatasetDir(t)
	source := NewFileSource(FileOptions{Dir: dir})

	payload, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if len(payload.RouteAssets) != 2 {
		t.Fatalf("expected 2 flattened route records, got %d", len(payload.RouteAssets))
	}
	if len(payload.Categories) != 1 {
		t.Fatalf("expected 1 category record, got %d", len(payload.Categories))
	}
	if len(payload.Chains) != 2 {
		t.Fatalf("expected 2 chains, got %d", len(payload.Chains))
	}
	if payload.Version == "" {
		t.Fatal("expected content digest version")
	}
	if payload.LastUpdated.IsZero() {
		t.Fatal("expected LastUpdated from file mtimes")
	}

	rec := payload.RouteAssets[0]
	if rec.OriginChain != "arbitrum" || rec.DestinationChain != "ethereum" || rec.AssetSymbol != "WETH" {
		t.Fatalf("unexpected first record: %+v", rec)
	}
	if rec.Bin != "0-50000" {
		t.Fatalf("expected sorted bin order, got %q first", rec.Bin)
	}
	if rec.P25Minutes.String() != "12.5" {
		t.Fatalf("percentile should pass through unrounded, got %s", rec.P25Minutes.String())
	}

	cat := payload.Categories[0]
	if cat.Description != "L2 rollup to Ethereum mainnet" {
		t.Fatalf("unexpected category description %q", cat.Description)
	}
}

func TestFileSourceDigestStable(t *testing.T) {
	dir := writeDatasetDir(t)
	source := NewFileSource(FileOptions{Dir: dir})

	first, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Version != second.Version {
		t.Fatalf("identical files produced versions %s and %s", first.Version, second.Version)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	source := NewFileSource(FileOptions{Dir: t.TempDir()})

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for missing dataset files")
	}
}

func TestFileSourceMalformedJSON(t *testing.T) {
	dir := writeDatasetDir(t)
	if err := os.WriteFile(filepath.Join(dir, "settlement_times.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource(FileOptions{Dir: dir})
	if _, err := source.Fetch(context.Background()); !errors.Is(err, ErrMalformedDataset) {
		t.Fatalf("expected ErrMalformedDataset, got %v", err)
	}
}
