package repository

import (
	"context"
	"fmt"

	"github.com/spellforge/spellforge-server/internal/game"
)

// ActivationLogRepository persists committed activations to the
// append-only event table. It implements game.ActivationLog.
type ActivationLogRepository struct {
	db *DB
}

// NewActivationLogRepository creates a repository backed by the pool.
func NewActivationLogRepository(db *DB) *ActivationLogRepository {
	return &ActivationLogRepository{db: db}
}

// Append inserts one committed activation event.
func (r *ActivationLogRepository) Append(ctx context.Context, event game.ActivationEvent) error {
	const query = `
		INSERT INTO activation_events (game_id, player_id, permanent_id, ability_id, card_name, mana_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.pool.Exec(ctx, query,
		event.GameID,
		event.PlayerID,
		event.PermanentID,
		event.AbilityID,
		event.CardName,
		event.ManaCost,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append activation event: %w", err)
	}
	return nil
}

// ListForGame returns a game's activation events in commit order.
func (r *ActivationLogRepository) ListForGame(ctx context.Context, gameID string, limit int) ([]game.ActivationEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT game_id, player_id, permanent_id, ability_id, card_name, mana_cost, created_at
		FROM activation_events
		WHERE game_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`

	rows, err := r.db.pool.Query(ctx, query, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activation events: %w", err)
	}
	defer rows.Close()

	events := make([]game.ActivationEvent, 0, limit)
	for rows.Next() {
		var e game.ActivationEvent
		if err := rows.Scan(&e.GameID, &e.PlayerID, &e.PermanentID, &e.AbilityID, &e.CardName, &e.ManaCost, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activation event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activation events: %w", err)
	}
	return events, nil
}
