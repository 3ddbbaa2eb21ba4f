package adapter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"settlement-times/internal/engine"
)

func TestChainName(t *testing.T) {
	cases := []struct {
		id   uint64
		name string
		ok   bool
	}{
		{1, "ethereum", true},
		{42161, "arbitrum", true},
		{8453, "base", true},
		{1399811149, "solana", true},
		{999999, "", false},
	}
	for _, tc := range cases {
		name, ok := ChainName(tc.id)
		if name != tc.name || ok != tc.ok {
			t.Errorf("ChainName(%d) = %q, %v; want %q, %v", tc.id, name, ok, tc.name, tc.ok)
		}
	}
}

func TestAssetSymbol(t *testing.T) {
	if got := AssetSymbol("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"); got != "USDC" {
		t.Fatalf("expected USDC, got %q", got)
	}
	// case-insensitive address parsing
	if got := AssetSymbol("0xdac17f958d2ee523a2206206994597c13d831ec7"); got != "USDT" {
		t.Fatalf("expected USDT for lowercased address, got %q", got)
	}
	if got := AssetSymbol("0x0000000000000000000000000000000000000001"); got != "" {
		t.Fatalf("unknown address should resolve to empty symbol, got %q", got)
	}
	if got := AssetSymbol("not-an-address"); got != "" {
		t.Fatalf("unparsable address should resolve to empty symbol, got %q", got)
	}
}

func TestFromEstimateShaping(t *testing.T) {
	updated := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	est := engine.Estimate{
		P25Minutes:  decimal.RequireFromString("12.5"),
		P75Minutes:  decimal.RequireFromString("30.25"),
		Confidence:  engine.ConfidenceHigh,
		DataSource:  engine.SourceExactRoute,
		AssetSymbol: "WETH",
		SampleSize:  40,
		LastUpdated: updated,
	}

	shaped := FromEstimate(est)
	if shaped.DisplayRange != "12.5-30.25 minutes" {
		t.Fatalf("unexpected display range %q", shaped.DisplayRange)
	}

	raw, err := json.Marshal(shaped)
	if err != nil {
		t.Fatal(err)
	}
	body := string(raw)
	if !strings.Contains(body, `"p25Minutes":12.5`) {
		t.Fatalf("p25 should be an unquoted number: %s", body)
	}
	if !strings.Contains(body, `"p75Minutes":30.25`) {
		t.Fatalf("p75 should be an unquoted number: %s", body)
	}
	if strings.Contains(body, `"note"`) {
		t.Fatalf("empty note should be omitted: %s", body)
	}
}

func adapterFixture(t *testing.T) *Adapter {
	t.Helper()

	routeAssets := map[engine.RouteAssetKey]engine.RouteStats{
		{Origin: "arbitrum", Destination: "ethereum", Asset: "WETH", Bin: engine.Bin0To50K}: {
			P25:        decimal.NewFromInt(12),
			P50:        decimal.NewFromInt(20),
			P75:        decimal.NewFromInt(30),
			SampleSize: 40,
		},
	}
	chains := map[string]engine.ChainClass{
		"ethereum": engine.ClassL1,
		"arbitrum": engine.ClassL2,
	}
	snap := engine.NewSnapshot("v1", time.Now().UTC(), routeAssets, nil, chains)

	holder := engine.NewHolder()
	holder.Swap(snap)
	return New(engine.New(holder))
}

func TestEstimateForTransfer(t *testing.T) {
	a := adapterFixture(t)

	est, err := a.EstimateForTransfer(TransferQuery{
		OriginChainID:      42161,
		DestinationChainID: 1,
		AssetAddress:       "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		AmountUSD:          25_000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est == nil {
		t.Fatal("expected an estimate")
	}
	if est.ConfidenceLevel != engine.ConfidenceHigh {
		t.Fatalf("unexpected confidence %s", est.ConfidenceLevel)
	}
	if est.AssetSymbol != "WETH" {
		t.Fatalf("unexpected asset %q", est.AssetSymbol)
	}
}

func TestEstimateForTransferUnknownChainIsAbsent(t *testing.T) {
	a := adapterFixture(t)

	est, err := a.EstimateForTransfer(TransferQuery{
		OriginChainID:      999999,
		DestinationChainID: 1,
		AmountUSD:          25_000,
	})
	if err != nil {
		t.Fatalf("unknown chain must not be an error: %v", err)
	}
	if est != nil {
		t.Fatalf("expected absent estimate, got %+v", est)
	}
}

func TestEstimateForRouteInvalidAmount(t *testing.T) {
	a := adapterFixture(t)

	if _, err := a.EstimateForRoute("arbitrum", "ethereum", "WETH", -5); err == nil {
		t.Fatal("negative amount should return an error")
	}
}
