package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sumatoshi-tech/lattice/pkg/tuple"
)

// Pool sizing for query sources. A profile reads one result set at a time.
const (
	pgMaxConns        = 2
	pgConnectTimeout  = 5 * time.Second
	pgMaxConnIdleTime = 5 * time.Minute
)

// Querier runs a query. *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres streams the rows of one query result.
type Postgres struct {
	rows    pgx.Rows
	pool    *pgxpool.Pool
	columns []string
	line    int64
	done    bool
}

// NewPostgres runs query on q and streams its result. Column names come from
// the result's field descriptions.
func NewPostgres(ctx context.Context, q Querier, query string, args ...any) (*Postgres, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}

	fields := rows.FieldDescriptions()
	if len(fields) == 0 {
		rows.Close()

		return nil, fmt.Errorf("%w: query returns no columns", ErrEmptyInput)
	}

	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	return &Postgres{rows: rows, columns: columns}, nil
}

// ConnectPostgres opens a small pool for dsn and runs query on it. Close
// releases both the result and the pool.
func ConnectPostgres(ctx context.Context, dsn, query string, args ...any) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolConfig.MaxConns = pgMaxConns
	poolConfig.MaxConnIdleTime = pgMaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	err = pool.Ping(connectCtx)
	if err != nil {
		pool.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	src, err := NewPostgres(ctx, pool, query, args...)
	if err != nil {
		pool.Close()

		return nil, err
	}

	src.pool = pool

	return src, nil
}

// Columns returns the result column names.
func (p *Postgres) Columns() []string { return p.columns }

// Next returns the next result row. SQL NULL becomes tuple.Null.
func (p *Postgres) Next(_ context.Context) (tuple.Tuple, error) {
	if p.done {
		return nil, io.EOF
	}

	if !p.rows.Next() {
		p.done = true
		p.rows.Close()

		err := p.rows.Err()
		if err != nil {
			return nil, fmt.Errorf("postgres rows: %w", err)
		}

		return nil, io.EOF
	}

	p.line++

	values, err := p.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("postgres row %d: %w", p.line, err)
	}

	err = checkArity(p.line, len(values), len(p.columns))
	if err != nil {
		return nil, err
	}

	t, err := tuple.FromAnySlice(values)
	if err != nil {
		return nil, fmt.Errorf("postgres row %d: %w", p.line, err)
	}

	return t, nil
}

// Close releases the result set and, for ConnectPostgres sources, the pool.
func (p *Postgres) Close() error {
	p.done = true
	p.rows.Close()

	if p.pool != nil {
		p.pool.Close()
	}

	return p.rows.Err()
}
