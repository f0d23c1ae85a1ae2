package clickhouse

import (
	"context"
	"fmt"

	"tokenized-vault/internal/domain"
	"tokenized-vault/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
// vault_events is an append-only audit table; nothing updates or deletes it.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append records a committed vault event.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) error {
	if e == nil || e.VaultID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vault_events (
			vault_id, event_type, actor, target, protocol_name,
			amount, shares_minted, enabled, total_assets, total_shares, timestamp_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.VaultID,
		string(e.Type),
		e.Actor,
		e.Target,
		e.ProtocolName,
		e.Amount,
		e.SharesMinted,
		e.Enabled,
		e.TotalAssets,
		e.TotalShares,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert vault event: %w", err)
	}
	return nil
}

// ListByVault retrieves events for a vault, ordered by timestamp ASC.
func (s *EventStore) ListByVault(ctx context.Context, vaultID string, limit int) ([]*domain.Event, error) {
	query := `
		SELECT vault_id, event_type, actor, target, protocol_name,
		       amount, shares_minted, enabled, total_assets, total_shares, timestamp_ms
		FROM vault_events
		WHERE vault_id = ?
		ORDER BY timestamp_ms ASC
	`
	args := []any{vaultID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vault events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var e domain.Event
		var eventType string

		err := rows.Scan(
			&e.VaultID,
			&eventType,
			&e.Actor,
			&e.Target,
			&e.ProtocolName,
			&e.Amount,
			&e.SharesMinted,
			&e.Enabled,
			&e.TotalAssets,
			&e.TotalShares,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan vault event row: %w", err)
		}

		e.Type = domain.EventType(eventType)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault event rows: %w", err)
	}

	return events, nil
}
