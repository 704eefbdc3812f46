package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domrepo "ExitPulse/internal/domain/repository"
	pkgch "ExitPulse/pkg/clickhouse"
	applogger "ExitPulse/pkg/logger"
	"ExitPulse/pkg/util"
)

// CHReturnStore implements ReturnStore backed by ClickHouse.
type CHReturnStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHReturnStore(ch *pkgch.Client) *CHReturnStore {
	return &CHReturnStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHReturnStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHReturnStore) AssetReturns(ctx context.Context, ticker string, tf domrepo.Timeframe, limit int) ([]float64, error) {
	const qtpl = `
        SELECT ret
        FROM %s
        WHERE ticker = ? AND bucket >= ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	table, err := assetTableForTF(tf)
	if err != nil {
		return nil, err
	}
	// lower bound prunes old partitions; the scan never needs more than limit buckets
	since := util.RangeStart(time.Now().UTC(), string(tf), limit)
	return s.queryReturns(ctx, "asset_returns", fmt.Sprintf(qtpl, table), ticker, since, limit)
}

func (s *CHReturnStore) TradeReturns(ctx context.Context, strategy, ticker string, tf domrepo.Timeframe, limit int) ([]float64, error) {
	const q = `
        SELECT realized_return
        FROM exitpulse.trade_returns
        WHERE strategy = ? AND ticker = ? AND tf = ?
        ORDER BY closed_at DESC
        LIMIT ?
    `
	return s.queryReturns(ctx, "trade_returns", q, strategy, ticker, string(tf), limit)
}

func (s *CHReturnStore) EquityCurve(ctx context.Context, strategy, ticker string, tf domrepo.Timeframe, limit int) ([]float64, error) {
	const q = `
        SELECT equity
        FROM exitpulse.equity_curve
        WHERE strategy = ? AND ticker = ? AND tf = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	return s.queryReturns(ctx, "equity_curve", q, strategy, ticker, string(tf), limit)
}

func (s *CHReturnStore) queryReturns(ctx context.Context, name, q string, args ...any) ([]float64, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse "+name+" query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rows.Close()

	// Newest-first from the query; reversed to chronological below.
	tmp := make([]float64, 0, 512)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse "+name+" scan error", applogger.Error(err))
			}
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		tmp = append(tmp, v)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse "+name+" rows error", applogger.Error(err))
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse "+name+" ok",
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func assetTableForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1d:
		return "exitpulse.asset_returns_1d", nil
	case domrepo.TF1w:
		return "exitpulse.asset_returns_1w", nil
	case domrepo.TF1mo:
		return "exitpulse.asset_returns_1mo", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}
