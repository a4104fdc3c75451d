// Package postgres persists trade records for later calibration of the
// profitability thresholds.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashcycle/flashcycle/business/execution/app"
	"github.com/flashcycle/flashcycle/business/execution/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool and verifies it.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

const createTradeRecords = `
	CREATE TABLE IF NOT EXISTS trade_records (
		id              BIGSERIAL PRIMARY KEY,
		kind            TEXT        NOT NULL,
		route_symbol    TEXT        NOT NULL,
		block_number    BIGINT      NOT NULL,
		amount_in       NUMERIC(78) NOT NULL,
		final_amount    NUMERIC(78) NOT NULL,
		net_profit      NUMERIC(78) NOT NULL,
		profit_rate_bps BIGINT      NOT NULL,
		tx_hash         TEXT,
		success         BOOLEAN     NOT NULL,
		gas_used        BIGINT      NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL
	)
`

// TradeRecorder implements app.TradeRecorder using PostgreSQL.
type TradeRecorder struct {
	pool   *Pool
	logger logger.LoggerInterface
}

// NewTradeRecorder creates a TradeRecorder and ensures the table exists.
func NewTradeRecorder(ctx context.Context, pool *Pool, log logger.LoggerInterface) (*TradeRecorder, error) {
	if _, err := pool.Exec(ctx, createTradeRecords); err != nil {
		return nil, fmt.Errorf("ensure trade_records table: %w", err)
	}
	return &TradeRecorder{pool: pool, logger: log}, nil
}

// Compile-time interface check.
var _ app.TradeRecorder = (*TradeRecorder)(nil)

// CreateTradeRecord inserts one record. Amounts are stored as NUMERIC
// strings to survive uint256 magnitudes.
func (r *TradeRecorder) CreateTradeRecord(ctx context.Context, record domain.TradeRecord) error {
	query := `
		INSERT INTO trade_records (
			kind, route_symbol, block_number,
			amount_in, final_amount, net_profit, profit_rate_bps,
			tx_hash, success, gas_used, created_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11
		)
	`

	_, err := r.pool.Exec(ctx, query,
		string(record.Kind), record.RouteSymbol, record.BlockNumber,
		record.AmountIn.String(), record.FinalAmount.String(), record.NetProfit.String(), record.ProfitRateBps,
		record.TxHash, record.Success, record.GasUsed, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade record: %w", err)
	}

	r.logger.Debug(ctx, "trade record stored",
		"kind", string(record.Kind), "route", record.RouteSymbol, "block", record.BlockNumber)
	return nil
}
