package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
	"github.com/jobpal/jobpal-server/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new state history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit record for one transition
func (r *HistoryRepository) Create(ctx context.Context, history *entity.StateHistory) error {
	query := `
		INSERT INTO state_histories (kind, entity_id, actor_user_id, previous_state, new_state, action_name, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		history.Kind,
		history.EntityID,
		history.ActorUserID,
		history.PreviousState,
		history.NewState,
		history.ActionName,
		history.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create state history",
			zap.String("entity_id", history.EntityID), zap.Error(err))
		return fmt.Errorf("create state history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	history.ID = id
	return nil
}

// ListByEntity returns the transition trail for one item, oldest first
func (r *HistoryRepository) ListByEntity(ctx context.Context, kind workflow.Kind, entityID string) ([]*entity.StateHistory, error) {
	query := `
		SELECT id, kind, entity_id, actor_user_id, previous_state, new_state, action_name, occurred_at
		FROM state_histories
		WHERE kind = ? AND entity_id = ?
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, string(kind), entityID)
	if err != nil {
		r.logger.Error("Failed to list state histories",
			zap.String("entity_id", entityID), zap.Error(err))
		return nil, fmt.Errorf("list state histories: %w", err)
	}
	defer rows.Close()

	var histories []*entity.StateHistory
	for rows.Next() {
		var h entity.StateHistory
		if err := rows.Scan(&h.ID, &h.Kind, &h.EntityID, &h.ActorUserID,
			&h.PreviousState, &h.NewState, &h.ActionName, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("scan state history: %w", err)
		}
		histories = append(histories, &h)
	}
	return histories, rows.Err()
}

func (r *HistoryRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
