// Package clickhouse appends audit rows to a ClickHouse table.
package clickhouse

import (
	"context"
	"fmt"
	"regexp"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/okian/matchpred/internal/domain/audit"
)

const defaultTable = "match_predictions"

// columns lists the insert order. It matches audit.Row field order.
const columns = "ingest_ts, match_id, yr, round, country_a, country_b, player_a, player_b, " +
	"tournament_country, endpoint, model_score, model_prediction, raw_request, error"

const createTable = `
	CREATE TABLE IF NOT EXISTS %s (
		ingest_ts          DateTime64(6, 'UTC'),
		match_id           Nullable(String),
		yr                 Nullable(String),
		round              Nullable(String),
		country_a          Nullable(String),
		country_b          Nullable(String),
		player_a           Nullable(String),
		player_b           Nullable(String),
		tournament_country Nullable(String),
		endpoint           String,
		model_score        Nullable(Float64),
		model_prediction   Nullable(Bool),
		raw_request        Nullable(String),
		error              Nullable(String)
	) ENGINE = MergeTree
	ORDER BY ingest_ts`

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Option configures a Sink.
type Option func(*Sink)

// WithTable sets the target table, optionally database-qualified. Names
// that are not plain identifiers make New and Open fail with ErrTable.
func WithTable(name string) Option {
	return func(s *Sink) {
		if !tableName.MatchString(name) {
			s.err = fmt.Errorf("%w: %q", ErrTable, name)
			return
		}
		s.table = name
	}
}

// Sink is an audit.Sink writing one single-row batch per Append.
type Sink struct {
	conn  driver.Conn
	table string
	err   error
}

// New wraps an open connection.
func New(conn driver.Conn, opts ...Option) (*Sink, error) {
	s, err := configure(opts)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

func configure(opts []Option) (*Sink, error) {
	s := &Sink{table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// Open parses dsn, connects and pings the server.
func Open(ctx context.Context, dsn string, opts ...Option) (*Sink, error) {
	s, err := configure(opts)
	if err != nil {
		return nil, err
	}
	options, err := ch.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	conn, err := ch.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	s.conn = conn
	return s, nil
}

// Table is the target table name.
func (s *Sink) Table() string { return s.table }

// EnsureTable creates the audit table when it does not exist.
func (s *Sink) EnsureTable(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf(createTable, s.table)); err != nil {
		return fmt.Errorf("%w: create table: %w", ErrInsert, err)
	}
	return nil
}

// Append inserts row.
func (s *Sink) Append(ctx context.Context, row audit.Row) error { //nolint:gocritic // hugeParam: audit.Sink contract
	ts, err := time.Parse(audit.TimestampLayout, row.IngestTS)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrTimestamp, row.IngestTS)
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s (%s)", s.table, columns))
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrInsert, err)
	}
	err = batch.Append(
		ts,
		row.MatchID,
		row.Yr,
		row.Round,
		row.CountryA,
		row.CountryB,
		row.PlayerA,
		row.PlayerB,
		row.TournamentCountry,
		row.Endpoint,
		row.ModelScore,
		row.ModelPrediction,
		row.RawRequest,
		row.Error,
	)
	if err != nil {
		_ = batch.Abort()
		return fmt.Errorf("%w: append: %w", ErrInsert, err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("%w: send: %w", ErrInsert, err)
	}
	return nil
}

// Ping checks the server is reachable.
func (s *Sink) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return nil
}

// Close releases the connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}
