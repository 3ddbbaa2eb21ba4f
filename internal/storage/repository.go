package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNoDataset indicates the pipeline has not published any version yet.
	ErrNoDataset = errors.New("storage: no dataset version published")
)

const (
	latestDatasetVersionSQL = `SELECT version, published_at
    FROM dataset_versions
    ORDER BY published_at DESC
    LIMIT 1;`

	listRouteAssetStatsSQL = `SELECT
        origin_chain,
        destination_chain,
        asset_symbol,
        amount_bin,
        p25_minutes,
        p50_minutes,
        p75_minutes,
        sample_size
    FROM route_asset_stats
    WHERE version = $1
    ORDER BY origin_chain, destination_chain, asset_symbol, amount_bin;`

	listRouteCategoryStatsSQL = `SELECT
        route_category,
        asset_symbol,
        amount_bin,
        p25_minutes,
        p50_minutes,
        p75_minutes,
        sample_size,
        description
    FROM route_category_stats
    WHERE version = $1
    ORDER BY route_category, asset_symbol, amount_bin;`

	listChainClassificationsSQL = `SELECT chain_name, chain_class
    FROM chain_classifications
    WHERE version = $1
    ORDER BY chain_name;`

	insertRefreshRecordSQL = `INSERT INTO refresh_log (
        version,
        status,
        error,
        started_at,
        finished_at
    ) VALUES (
        $1,$2,$3,$4,$5
    ) RETURNING id;`

	listRecentRefreshesSQL = `SELECT
        id,
        version,
        status,
        error,
        started_at,
        finished_at
    FROM refresh_log
    ORDER BY started_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// DatasetStore defines read access to pipeline-published dataset versions.
type DatasetStore interface {
	LatestDatasetVersion(ctx context.Context) (string, time.Time, error)
	ListRouteAssetStats(ctx context.Context, version string) ([]RouteAssetStat, error)
	ListRouteCategoryStats(ctx context.Context, version string) ([]RouteCategoryStat, error)
	ListChainClassifications(ctx context.Context, version string) ([]ChainClassification, error)
}

// RefreshAuditor records refresh attempts.
type RefreshAuditor interface {
	RecordRefresh(ctx context.Context, rec RefreshRecord) error
	ListRecentRefreshes(ctx context.Context, limit int) ([]RefreshRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the dataset tables and the refresh audit log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func. Used so only one replica refreshes per cycle.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

// LatestDatasetVersion returns the most recently published version.
func (s *Store) LatestDatasetVersion(ctx context.Context) (string, time.Time, error) {
	pool, err := s.getPool()
	if err != nil {
		return "", time.Time{}, err
	}

	var version string
	var publishedAt time.Time
	if scanErr := pool.QueryRow(ctx, latestDatasetVersionSQL).Scan(&version, &publishedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return "", time.Time{}, ErrNoDataset
		}
		return "", time.Time{}, fmt.Errorf("latest dataset version: %w", scanErr)
	}
	return version, publishedAt, nil
}

// ListRouteAssetStats lists the route+asset rows of one dataset version.
func (s *Store) ListRouteAssetStats(ctx context.Context, version string) ([]RouteAssetStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRouteAssetStatsSQL, version)
	if queryErr != nil {
		return nil, fmt.Errorf("list route asset stats: %w", queryErr)
	}
	defer rows.Close()

	stats := make([]RouteAssetStat, 0)
	for rows.Next() {
		var (
			rec    RouteAssetStat
			p25Str string
			p50Str string
			p75Str string
		)
		if err := rows.Scan(
			&rec.OriginChain,
			&rec.DestinationChain,
			&rec.AssetSymbol,
			&rec.AmountBin,
			&p25Str,
			&p50Str,
			&p75Str,
			&rec.SampleSize,
		); err != nil {
			return nil, err
		}
		if rec.P25Minutes, rec.P50Minutes, rec.P75Minutes, err = parsePercentiles(p25Str, p50Str, p75Str); err != nil {
			return nil, err
		}
		stats = append(stats, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stats, nil
}

// ListRouteCategoryStats lists the category average rows of one version.
func (s *Store) ListRouteCategoryStats(ctx context.Context, version string) ([]RouteCategoryStat, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRouteCategoryStatsSQL, version)
	if queryErr != nil {
		return nil, fmt.Errorf("list route category stats: %w", queryErr)
	}
	defer rows.Close()

	stats := make([]RouteCategoryStat, 0)
	for rows.Next() {
		var (
			rec    RouteCategoryStat
			p25Str string
			p50Str string
			p75Str string
		)
		if err := rows.Scan(
			&rec.RouteCategory,
			&rec.AssetSymbol,
			&rec.AmountBin,
			&p25Str,
			&p50Str,
			&p75Str,
			&rec.SampleSize,
			&rec.Description,
		); err != nil {
			return nil, err
		}
		if rec.P25Minutes, rec.P50Minutes, rec.P75Minutes, err = parsePercentiles(p25Str, p50Str, p75Str); err != nil {
			return nil, err
		}
		stats = append(stats, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stats, nil
}

// ListChainClassifications lists the chain class rows of one version.
func (s *Store) ListChainClassifications(ctx context.Context, version string) ([]ChainClassification, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listChainClassificationsSQL, version)
	if queryErr != nil {
		return nil, fmt.Errorf("list chain classifications: %w", queryErr)
	}
	defer rows.Close()

	classes := make([]ChainClassification, 0)
	for rows.Next() {
		var rec ChainClassification
		if err := rows.Scan(&rec.ChainName, &rec.ChainClass); err != nil {
			return nil, err
		}
		classes = append(classes, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return classes, nil
}

// RecordRefresh persists one refresh attempt.
func (s *Store) RecordRefresh(ctx context.Context, rec RefreshRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if rec.Error != nil {
		errMsg = *rec.Error
	}

	var id int64
	if scanErr := pool.QueryRow(ctx, insertRefreshRecordSQL,
		rec.Version,
		rec.Status,
		errMsg,
		rec.StartedAt,
		rec.FinishedAt,
	).Scan(&id); scanErr != nil {
		return fmt.Errorf("record refresh: %w", scanErr)
	}
	return nil
}

// ListRecentRefreshes lists the most recent refresh attempts.
func (s *Store) ListRecentRefreshes(ctx context.Context, limit int) ([]RefreshRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRefreshesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent refreshes: %w", queryErr)
	}
	defer rows.Close()

	records := make([]RefreshRecord, 0, limit)
	for rows.Next() {
		var rec RefreshRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Version,
			&rec.Status,
			&rec.Error,
			&rec.StartedAt,
			&rec.FinishedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func parsePercentiles(p25Str, p50Str, p75Str string) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	p25, err := decimal.NewFromString(p25Str)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("parse p25: %w", err)
	}
	p50, err := decimal.NewFromString(p50Str)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("parse p50: %w", err)
	}
	p75, err := decimal.NewFromString(p75Str)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("parse p75: %w", err)
	}
	return p25, p50, p75, nil
}
