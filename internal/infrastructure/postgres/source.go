package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"TrialFeeds/internal/config"
	"TrialFeeds/internal/domain"
	"TrialFeeds/internal/ports"
)

// Pool sizing for a sequential batch run; the pipeline never needs more than
// a couple of concurrent sessions.
const (
	maxConns = int32(4)
	minConns = int32(1)
)

var readOnlyTx = pgx.TxOptions{AccessMode: pgx.ReadOnly}

// DB is the subset of pgxpool.Pool the source needs; pgxmock satisfies it.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Opener establishes read-only AACT sessions, one per pipeline run.
type Opener struct {
	db     config.DatabaseConfig
	feeds  config.FeedConfig
	logger *slog.Logger
}

var _ ports.SourceOpener = (*Opener)(nil)

// NewOpener wires connection and feed tuning config.
func NewOpener(db config.DatabaseConfig, feeds config.FeedConfig, logger *slog.Logger) *Opener {
	return &Opener{db: db, feeds: feeds, logger: logger}
}

// Open acquires a connection pool within the bounded connect timeout and
// verifies it with a ping before handing out the source.
func (o *Opener) Open(ctx context.Context) (ports.TrialSource, error) {
	poolCfg, err := pgxpool.ParseConfig(o.db.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w: %w", domain.ErrConnection, err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns

	ctx, cancel := context.WithTimeout(ctx, o.db.ConnectTimeout.Std())
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, connectFailure(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, connectFailure(err)
	}

	o.logger.Info("database session established",
		"host", o.db.Host,
		"database", o.db.Name,
		"read_only", true)

	return NewSource(pool, o.db.QueryTimeout.Std(), o.feeds.InterventionalOnly, o.logger), nil
}

// Source implements ports.TrialSource over a pgx pool. Every query runs in a
// read-only transaction with a per-query deadline.
type Source struct {
	db                 DB
	queryTimeout       time.Duration
	interventionalOnly bool
	logger             *slog.Logger
}

var _ ports.TrialSource = (*Source)(nil)

// NewSource wires a pool-like implementation; tests pass a pgxmock pool.
func NewSource(db DB, queryTimeout time.Duration, interventionalOnly bool, logger *slog.Logger) *Source {
	return &Source{
		db:                 db,
		queryTimeout:       queryTimeout,
		interventionalOnly: interventionalOnly,
		logger:             logger.With("component", "source"),
	}
}

// Close releases the underlying pool.
func (s *Source) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// PhaseCounts returns trial counts grouped by the raw phase spelling.
func (s *Source) PhaseCounts(ctx context.Context) ([]domain.RawPhaseCount, error) {
	var out []domain.RawPhaseCount
	err := s.query(ctx, "counts_by_phase", phaseCountsQuery(s.interventionalOnly), func(rows pgx.Rows) error {
		var row domain.RawPhaseCount
		if err := rows.Scan(&row.Phase, &row.Count); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PhaseStatusCounts returns trial counts grouped by raw (phase, status).
func (s *Source) PhaseStatusCounts(ctx context.Context) ([]domain.RawPhaseStatusCount, error) {
	var out []domain.RawPhaseStatusCount
	err := s.query(ctx, "phase_status", phaseStatusQuery(s.interventionalOnly), func(rows pgx.Rows) error {
		var row domain.RawPhaseStatusCount
		if err := rows.Scan(&row.Phase, &row.Status, &row.Count); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpcomingTrials returns active trials whose primary completion falls inside
// [asOf, asOf+horizonMonths), with lead sponsor and enrollment attached.
func (s *Source) UpcomingTrials(ctx context.Context, asOf time.Time, horizonMonths int) ([]domain.TrialRecord, error) {
	var out []domain.TrialRecord
	err := s.query(ctx, "upcoming", upcomingQuery(asOf, horizonMonths, s.interventionalOnly), func(rows pgx.Rows) error {
		var row domain.TrialRecord
		if err := rows.Scan(
			&row.NCTID,
			&row.Title,
			&row.Phase,
			&row.Status,
			&row.LeadSponsor,
			&row.Enrollment,
			&row.PrimaryCompletion,
		); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SponsorTrials returns one row per (lead sponsor, trial) for the sponsor
// pipeline ranking.
func (s *Source) SponsorTrials(ctx context.Context) ([]domain.TrialRecord, error) {
	var out []domain.TrialRecord
	err := s.query(ctx, "sponsor_pipeline", sponsorTrialsQuery(s.interventionalOnly), func(rows pgx.Rows) error {
		var row domain.TrialRecord
		if err := rows.Scan(
			&row.NCTID,
			&row.LeadSponsor,
			&row.Enrollment,
			&row.PrimaryCompletion,
		); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Source) query(ctx context.Context, name string, builder sq.SelectBuilder, scan func(pgx.Rows) error) error {
	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w: %w", name, domain.ErrQuery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	started := time.Now()

	tx, err := s.db.BeginTx(ctx, readOnlyTx)
	if err != nil {
		return queryFailure(name, err)
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return queryFailure(name, err)
	}

	for rows.Next() {
		if err := scan(rows); err != nil {
			rows.Close()
			_ = tx.Rollback(ctx)
			return queryFailure(name, err)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		_ = tx.Rollback(ctx)
		return queryFailure(name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return queryFailure(name, err)
	}

	s.logger.Debug("query done", "feed", name, "elapsed", time.Since(started))
	return nil
}

func connectFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("connect: %w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("connect: %w: %w", domain.ErrConnection, err)
}

func queryFailure(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", name, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", name, domain.ErrQuery, err)
}
