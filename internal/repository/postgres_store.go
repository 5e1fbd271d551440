package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wisefido-radmon/internal/models"

	"go.uber.org/zap"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS radmon_settings (
	id         SMALLINT PRIMARY KEY DEFAULT 1,
	settings   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS radmon_history (
	position     INTEGER PRIMARY KEY,
	record_id    TEXT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL,
	value        DOUBLE PRECISION NOT NULL,
	status       TEXT NOT NULL,
	duration_sec INTEGER NOT NULL
);`

// PostgresStore 基于 PostgreSQL 的持久化
// radmon_history.position 0 为最新记录
type PostgresStore struct {
	db       *sql.DB
	defaults models.Settings
	logger   *zap.Logger
}

// NewPostgresStore 创建 PostgreSQL 持久化
func NewPostgresStore(db *sql.DB, defaults models.Settings, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		defaults: defaults,
		logger:   logger,
	}
}

// EnsureSchema 创建所需的表
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return unavailable(ctx, "ensure schema", err)
	}
	return nil
}

func (s *PostgresStore) LoadSettings(ctx context.Context) (*models.Settings, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT settings FROM radmon_settings WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable(ctx, "load settings", err)
	}
	return DecodeSettings(raw, s.defaults)
}

func (s *PostgresStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO radmon_settings (id, settings, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, data); err != nil {
		return unavailable(ctx, "save settings", err)
	}
	return nil
}

func (s *PostgresStore) LoadHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	query := `
		SELECT record_id, recorded_at, value, status, duration_sec
		FROM radmon_history
		ORDER BY position ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable(ctx, "load history", err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var (
			id         string
			recordedAt time.Time
			value      float64
			status     string
			duration   int
		)
		if err := rows.Scan(&id, &recordedAt, &value, &status, &duration); err != nil {
			s.logger.Warn("Skipping unreadable history row", zap.Error(err))
			continue
		}
		severity, err := models.ParseSeverity(status)
		if err != nil {
			s.logger.Warn("Skipping malformed history row",
				zap.String("record_id", id),
				zap.Error(err),
			)
			continue
		}
		r := models.HistoryRecord{
			ID:              id,
			Timestamp:       recordedAt,
			Value:           value,
			Status:          severity,
			DurationSeconds: duration,
		}
		if err := r.Validate(); err != nil {
			s.logger.Warn("Skipping malformed history row",
				zap.String("record_id", id),
				zap.Error(err),
			)
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, "load history", err)
	}
	return records, nil
}

// SaveHistory 在一个事务内整体替换历史
func (s *PostgresStore) SaveHistory(ctx context.Context, records []models.HistoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(ctx, "begin history tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM radmon_history`); err != nil {
		return unavailable(ctx, "clear history", err)
	}

	insert := `
		INSERT INTO radmon_history (position, record_id, recorded_at, value, status, duration_sec)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, r := range records {
		if _, err := tx.ExecContext(ctx, insert,
			i, r.ID, r.Timestamp, r.Value, r.Status.String(), r.DurationSeconds,
		); err != nil {
			return unavailable(ctx, "insert history", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable(ctx, "commit history", err)
	}
	return nil
}
