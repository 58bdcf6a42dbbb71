package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sacraldj/ghost-sub001/pkg/types"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

const schema = `
	CREATE TABLE IF NOT EXISTS signal_outcomes (
		signal_id      TEXT PRIMARY KEY,
		symbol         TEXT NOT NULL,
		status         TEXT NOT NULL,
		classification TEXT,
		state          JSONB NOT NULL,
		result         JSONB,
		updated_at     TIMESTAMPTZ NOT NULL
	)
`

// NewPostgresStore creates a new PostgreSQL store and ensures the outcome
// table exists.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// Upsert stores or replaces the snapshot for its signal id.
func (p *PostgresStore) Upsert(ctx context.Context, snap *types.OutcomeSnapshot) error {
	stateJSON, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var resultJSON []byte
	if snap.Result != nil {
		resultJSON, err = json.Marshal(snap.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	query := `
		INSERT INTO signal_outcomes (
			signal_id, symbol, status, classification, state, result, updated_at
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), $5, $6, $7
		)
		ON CONFLICT (signal_id) DO UPDATE SET
			status         = EXCLUDED.status,
			classification = EXCLUDED.classification,
			state          = EXCLUDED.state,
			result         = EXCLUDED.result,
			updated_at     = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		snap.SignalID,
		snap.Symbol,
		string(snap.Status),
		string(snap.Classification),
		stateJSON,
		resultJSON,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	UpsertsTotal.WithLabelValues("postgres").Inc()

	p.logger.Debug("snapshot-stored",
		zap.String("signal-id", snap.SignalID),
		zap.String("status", string(snap.Status)),
		zap.Bool("final", snap.Final()))

	return nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}
