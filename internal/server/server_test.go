package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"settlement-times/internal/engine"
)

func testServer(t *testing.T, holder *engine.Holder) *Server {
	t.Helper()
	return New(Options{
		ListenAddr:     ":0",
		RequestTimeout: time.Second,
	}, engine.New(holder), holder, zerolog.Nop())
}

func loadedHolder() *engine.Holder {
	routeAssets := map[engine.RouteAssetKey]engine.RouteStats{
		{Origin: "arbitrum", Destination: "ethereum", Asset: "WETH", Bin: engine.Bin0To50K}: {
			P25:        decimal.RequireFromString("12.5"),
			P50:        decimal.NewFromInt(20),
			P75:        decimal.RequireFromString("30.25"),
			SampleSize: 40,
		},
	}
	chains := map[string]engine.ChainClass{
		"ethereum": engine.ClassL1,
		"arbitrum": engine.ClassL2,
	}
	snap := engine.NewSnapshot("v1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), routeAssets, nil, chains)

	holder := engine.NewHolder()
	holder.Swap(snap)
	return holder
}

func doRequest(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestEstimateEndpoint(t *testing.T) {
	srv := testServer(t, loadedHolder())

	rec := doRequest(t, srv, "/api/v1/estimate?originChain=arbitrum&destinationChain=ethereum&assetSymbol=WETH&amountUsd=25000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		OriginChain        string `json:"originChain"`
		SettlementEstimate *struct {
			P25Minutes      json.Number `json:"p25Minutes"`
			DisplayRange    string      `json:"displayRange"`
			ConfidenceLevel string      `json:"confidenceLevel"`
			DataSource      string      `json:"dataSource"`
		} `json:"settlementEstimate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.SettlementEstimate == nil {
		t.Fatalf("expected settlementEstimate field: %s", rec.Body.String())
	}
	if body.SettlementEstimate.P25Minutes.String() != "12.5" {
		t.Fatalf("unexpected p25 %s", body.SettlementEstimate.P25Minutes)
	}
	if body.SettlementEstimate.DisplayRange != "12.5-30.25 minutes" {
		t.Fatalf("unexpected display range %q", body.SettlementEstimate.DisplayRange)
	}
	if body.SettlementEstimate.DataSource != "exact_route_with_asset" {
		t.Fatalf("unexpected data source %q", body.SettlementEstimate.DataSource)
	}
}

func TestEstimateEndpointChainIDVocabulary(t *testing.T) {
	srv := testServer(t, loadedHolder())

	rec := doRequest(t, srv, "/api/v1/estimate?originChainId=42161&destinationChainId=1&assetAddress=0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2&amountUsd=25000")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["settlementEstimate"]; !ok {
		t.Fatalf("expected settlementEstimate field: %s", rec.Body.String())
	}
}

func TestEstimateEndpointOmitsFieldWhenAbsent(t *testing.T) {
	srv := testServer(t, loadedHolder())

	rec := doRequest(t, srv, "/api/v1/estimate?originChain=unknownchain&destinationChain=ethereum&assetSymbol=WETH&amountUsd=25000")
	if rec.Code != http.StatusOK {
		t.Fatalf("absent estimate must still be 200, got %d", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, present := body["settlementEstimate"]; present {
		t.Fatalf("settlementEstimate must be omitted, not null: %s", rec.Body.String())
	}
}

func TestEstimateEndpointInvalidAmount(t *testing.T) {
	srv := testServer(t, loadedHolder())

	rec := doRequest(t, srv, "/api/v1/estimate?originChain=arbitrum&destinationChain=ethereum&amountUsd=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, srv, "/api/v1/estimate?originChain=arbitrum&destinationChain=ethereum&amountUsd=-5")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", rec.Code)
	}
}

func TestEstimateEndpointBeforeFirstSnapshot(t *testing.T) {
	srv := testServer(t, engine.NewHolder())

	rec := doRequest(t, srv, "/api/v1/estimate?originChain=arbitrum&destinationChain=ethereum&amountUsd=100")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 before first snapshot, got %d", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if _, present := body["settlementEstimate"]; present {
		t.Fatalf("settlementEstimate must be omitted without a snapshot: %s", rec.Body.String())
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	srv := testServer(t, loadedHolder())

	rec := doRequest(t, srv, "/api/v1/snapshot")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Version           string `json:"version"`
		RouteAssetEntries int    `json:"routeAssetEntries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Version != "v1" || body.RouteAssetEntries != 1 {
		t.Fatalf("unexpected snapshot summary: %s", rec.Body.String())
	}
}

func TestSnapshotEndpointUnavailable(t *testing.T) {
	srv := testServer(t, engine.NewHolder())

	rec := doRequest(t, srv, "/api/v1/snapshot")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a snapshot, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, engine.NewHolder())

	rec := doRequest(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
