package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"assent/pkg/domain"
)

// PostgresStore persists audit events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit_events table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id UUID PRIMARY KEY,
			category TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			device_id UUID,
			action TEXT NOT NULL,
			region TEXT,
			geography TEXT,
			notice_key TEXT,
			notice_history_id TEXT,
			served_ref TEXT,
			preference TEXT,
			reason TEXT,
			request_id TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit_events table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_audit_events_device
		ON audit_events (device_id, timestamp DESC)
	`)
	if err != nil {
		return fmt.Errorf("create audit_events index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	// Category always derives from the action; the map is the source
	// of truth even when callers pre-filled the field.
	category := event.Action.Category()

	var deviceID *uuid.UUID
	if !event.DeviceID.IsZero() {
		did := event.DeviceID.UUID()
		deviceID = &did
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, timestamp, device_id, action,
			region, geography, notice_key, notice_history_id,
			served_ref, preference, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		uuid.New(),
		string(category),
		event.Timestamp,
		deviceID,
		string(event.Action),
		event.Region,
		event.Geography,
		event.NoticeKey,
		event.NoticeHistoryID,
		event.ServedRef,
		event.Preference,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByDevice(ctx context.Context, deviceID domain.DeviceID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, timestamp, device_id, action,
			   region, geography, notice_key, notice_history_id,
			   served_ref, preference, reason, request_id
		FROM audit_events
		WHERE device_id = $1
		ORDER BY timestamp DESC
	`, deviceID.UUID())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, timestamp, device_id, action,
			   region, geography, notice_key, notice_history_id,
			   served_ref, preference, reason, request_id
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event    Event
			category string
			action   string
			deviceID *uuid.UUID
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&deviceID,
			&action,
			&event.Region,
			&event.Geography,
			&event.NoticeKey,
			&event.NoticeHistoryID,
			&event.ServedRef,
			&event.Preference,
			&event.Reason,
			&event.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Category = Category(category)
		event.Action = Action(action)
		if deviceID != nil {
			event.DeviceID = domain.DeviceID(*deviceID)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
