// Package postgres implements marketflow.DataProvider against a Postgres
// table of OHLCV bars, following the teacher's connection-pooling and
// prepared-statement conventions from its database package.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/marketflow/vpa-engine/internal/bars"
)

// Config names the connection parameters for the OHLCV store.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Provider is a marketflow.DataProvider backed by a Postgres bars table
// shaped (symbol, ts, open, high, low, close, volume, timeframe).
type Provider struct {
	db     *sql.DB
	logger zerolog.Logger

	selectStmt *sql.Stmt
}

// Open establishes a pooled connection and prepares the bar-fetch
// statement, mirroring the teacher's NewConnection + prepareStatements
// two-step startup.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Provider, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres provider: open: %w", err)
	}

	if cfg.MaxConnections > 0 {
		conn.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("postgres provider: ping: %w", err)
	}

	stmt, err := conn.PrepareContext(ctx, selectBarsQuery)
	if err != nil {
		return nil, fmt.Errorf("postgres provider: prepare select: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("postgres bar store connected")

	return &Provider{db: conn, logger: logger, selectStmt: stmt}, nil
}

// Close releases the prepared statement and connection pool.
func (p *Provider) Close() error {
	if p.selectStmt != nil {
		if err := p.selectStmt.Close(); err != nil {
			p.logger.Error().Err(err).Msg("failed to close prepared statement")
		}
	}
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

const selectBarsQuery = `
SELECT ts, open, high, low, close, volume
FROM ohlcv_bars
WHERE symbol = $1 AND timeframe = $2 AND ts >= $3
ORDER BY ts ASC
`

// Fetch implements marketflow.DataProvider by querying the bars table for
// the requested ticker and timeframe, deriving a lookback start time from
// the timeframe's configured period.
func (p *Provider) Fetch(ctx context.Context, ticker string, tf bars.Timeframe) ([]bars.PriceBar, []bars.VolumeBar, error) {
	since, err := periodStart(tf.Period)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres provider: %w", err)
	}

	rows, err := p.selectStmt.QueryContext(ctx, ticker, tf.Interval, since)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres provider: query %s/%s: %w", ticker, tf.Interval, err)
	}
	defer rows.Close()

	var price []bars.PriceBar
	var volume []bars.VolumeBar
	for rows.Next() {
		var ts time.Time
		var open, high, low, close, vol float64
		if err := rows.Scan(&ts, &open, &high, &low, &close, &vol); err != nil {
			return nil, nil, fmt.Errorf("postgres provider: scan row: %w", err)
		}
		price = append(price, bars.PriceBar{Timestamp: ts, Open: open, High: high, Low: low, Close: close})
		volume = append(volume, bars.VolumeBar{Timestamp: ts, Volume: vol})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("postgres provider: row iteration: %w", err)
	}

	return price, volume, nil
}

// periodStart turns a period string ("5d", "30d", "1y") into a lookback
// start time relative to now.
func periodStart(period string) (time.Time, error) {
	if period == "" {
		return time.Time{}, fmt.Errorf("empty period")
	}
	unit := period[len(period)-1]
	var n int
	if _, err := fmt.Sscanf(period[:len(period)-1], "%d", &n); err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q: %w", period, err)
	}

	now := time.Now()
	switch unit {
	case 'd':
		return now.AddDate(0, 0, -n), nil
	case 'y':
		return now.AddDate(-n, 0, 0), nil
	case 'm':
		return now.AddDate(0, -n, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unrecognized period unit in %q", period)
	}
}
