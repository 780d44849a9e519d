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

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	insertSampleSQL = `INSERT INTO straddle_samples (
        index_id,
        atm_strike,
        call_price,
        put_price,
        straddle_price,
        ltp
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    ) RETURNING id, created_at;`

	listRecentSamplesSQL = `SELECT
        id,
        index_id,
        atm_strike,
        call_price,
        put_price,
        straddle_price,
        ltp,
        created_at
    FROM straddle_samples
    ORDER BY created_at DESC
    LIMIT $1;`

	listSamplesBetweenSQL = `SELECT
        id,
        index_id,
        atm_strike,
        call_price,
        put_price,
        straddle_price,
        ltp,
        created_at
    FROM straddle_samples
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at;`

	countSamplesSQL = `SELECT COUNT(*) FROM straddle_samples;`
)

// SampleStore defines the append-only persistence surface for straddle
// samples: inserts auto-timestamp, recent reads come back newest first.
type SampleStore interface {
	InsertSample(ctx context.Context, sample StraddleSample) (StraddleSample, error)
	ListRecentSamples(ctx context.Context, limit int) ([]StraddleSample, error)
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]StraddleSample, error)
	CountSamples(ctx context.Context) (int64, error)
}

// Store backs SampleStore with PostgreSQL.
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

// InsertSample appends one sample and returns it with id and timestamp
// filled in.
func (s *Store) InsertSample(ctx context.Context, sample StraddleSample) (StraddleSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return StraddleSample{}, err
	}

	row := pool.QueryRow(ctx, insertSampleSQL,
		sample.IndexID,
		sample.AtmStrike,
		sample.CallPrice.String(),
		sample.PutPrice.String(),
		sample.StraddlePrice.String(),
		sample.LTP.String(),
	)
	if scanErr := row.Scan(&sample.ID, &sample.CreatedAt); scanErr != nil {
		return StraddleSample{}, fmt.Errorf("insert straddle sample: %w", scanErr)
	}
	return sample, nil
}

// ListRecentSamples returns the most recent samples, newest first.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]StraddleSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, limit)
}

// ListSamplesBetween returns samples within [from, to), oldest first.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]StraddleSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	return collectSamples(rows, 0)
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

func collectSamples(rows pgx.Rows, sizeHint int) ([]StraddleSample, error) {
	samples := make([]StraddleSample, 0, sizeHint)
	for rows.Next() {
		sample, scanErr := scanSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func scanSample(rows pgx.Rows) (StraddleSample, error) {
	var (
		sample      StraddleSample
		callStr     string
		putStr      string
		straddleStr string
		ltpStr      string
	)

	if err := rows.Scan(
		&sample.ID,
		&sample.IndexID,
		&sample.AtmStrike,
		&callStr,
		&putStr,
		&straddleStr,
		&ltpStr,
		&sample.CreatedAt,
	); err != nil {
		return StraddleSample{}, err
	}

	var err error
	if sample.CallPrice, err = decimal.NewFromString(callStr); err != nil {
		return StraddleSample{}, fmt.Errorf("parse call price: %w", err)
	}
	if sample.PutPrice, err = decimal.NewFromString(putStr); err != nil {
		return StraddleSample{}, fmt.Errorf("parse put price: %w", err)
	}
	if sample.StraddlePrice, err = decimal.NewFromString(straddleStr); err != nil {
		return StraddleSample{}, fmt.Errorf("parse straddle price: %w", err)
	}
	if sample.LTP, err = decimal.NewFromString(ltpStr); err != nil {
		return StraddleSample{}, fmt.Errorf("parse ltp: %w", err)
	}

	return sample, nil
}

var _ SampleStore = (*Store)(nil)
