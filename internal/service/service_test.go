package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"settlement-times/internal/dataset"
	"settlement-times/internal/engine"
	"settlement-times/internal/storage"
)

type stubSource struct {
	payload *dataset.Payload
	err     error
}

func (s *stubSource) Fetch(ctx context.Context) (*dataset.Payload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	records []storage.RefreshRecord
}

func (a *recordingAuditor) RecordRefresh(ctx context.Context, rec storage.RefreshRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

func (a *recordingAuditor) ListRecentRefreshes(ctx context.Context, limit int) ([]storage.RefreshRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.records, nil
}

func goodPayload(version string) *dataset.Payload {
	return &dataset.Payload{
		RouteAssets: []dataset.RouteAssetRecord{
			{
				OriginChain:      "arbitrum",
				DestinationChain: "ethereum",
				AssetSymbol:      "WETH",
				Bin:              "0-50000",
				P25Minutes:       decimal.NewFromInt(12),
				P50Minutes:       decimal.NewFromInt(20),
				P75Minutes:       decimal.NewFromInt(30),
				SampleSize:       40,
			},
		},
		Chains: map[string]string{
			"ethereum": "L1",
			"arbitrum": "L2",
		},
		Version:     version,
		LastUpdated: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestService(source dataset.Source, auditor storage.RefreshAuditor) (*Service, *engine.Holder) {
	holder := engine.NewHolder()
	loader := dataset.NewLoader(zerolog.Nop())
	svc := New(nil, source, loader, holder, auditor, nil, 0, zerolog.Nop())
	return svc, holder
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	auditor := &recordingAuditor{}
	svc, holder := newTestService(&stubSource{payload: goodPayload("v1")}, auditor)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	snap, err := holder.Current()
	if err != nil {
		t.Fatalf("expected published snapshot: %v", err)
	}
	if snap.Version() != "v1" {
		t.Fatalf("unexpected version %s", snap.Version())
	}

	if len(auditor.records) != 1 || auditor.records[0].Status != "published" {
		t.Fatalf("expected one published audit record, got %+v", auditor.records)
	}
}

func TestRefreshRejectedKeepsPreviousSnapshot(t *testing.T) {
	source := &stubSource{payload: goodPayload("v1")}
	auditor := &recordingAuditor{}
	svc, holder := newTestService(source, auditor)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	bad := goodPayload("v2")
	bad.RouteAssets[0].Bin = "not-a-bin"
	source.payload = bad

	if err := svc.Refresh(context.Background()); !errors.Is(err, dataset.ErrMalformedDataset) {
		t.Fatalf("expected ErrMalformedDataset, got %v", err)
	}

	snap, err := holder.Current()
	if err != nil {
		t.Fatalf("previous snapshot must survive a rejected refresh: %v", err)
	}
	if snap.Version() != "v1" {
		t.Fatalf("expected v1 to stay current, got %s", snap.Version())
	}

	last := auditor.records[len(auditor.records)-1]
	if last.Status != "failed" || last.Error == nil {
		t.Fatalf("expected failed audit record with error, got %+v", last)
	}
}

func TestRefreshFetchErrorKeepsPreviousSnapshot(t *testing.T) {
	source := &stubSource{payload: goodPayload("v1")}
	svc, holder := newTestService(source, nil)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	source.err = errors.New("pipeline unreachable")
	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	snap, err := holder.Current()
	if err != nil || snap.Version() != "v1" {
		t.Fatalf("previous snapshot must survive a fetch failure: %v", err)
	}
}

func TestRefreshSkipsUnchangedVersion(t *testing.T) {
	auditor := &recordingAuditor{}
	svc, holder := newTestService(&stubSource{payload: goodPayload("v1")}, auditor)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	first, _ := holder.Current()

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	second, _ := holder.Current()

	if first != second {
		t.Fatal("unchanged version should keep the same snapshot pointer")
	}
	if len(auditor.records) != 1 {
		t.Fatalf("unchanged refresh should not add audit records, got %d", len(auditor.records))
	}
}

func TestRunWithoutScheduler(t *testing.T) {
	svc, _ := newTestService(&stubSource{payload: goodPayload("v1")}, nil)
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error when scheduler is not configured")
	}
}
