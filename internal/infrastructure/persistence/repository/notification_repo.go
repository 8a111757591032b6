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

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Insert adds a pending-action row
func (r *NotificationRepository) Insert(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (kind, entity_id, user_id, re_notify, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		notification.Kind,
		notification.EntityID,
		notification.UserID,
		notification.ReNotifyFlag,
		notification.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert notification", zap.Error(err))
		return fmt.Errorf("insert notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	notification.ID = id
	return nil
}

// DeleteForEntity drops every row attached to one workflow item
func (r *NotificationRepository) DeleteForEntity(ctx context.Context, kind workflow.Kind, entityID string) error {
	query := `DELETE FROM notifications WHERE kind = ? AND entity_id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, string(kind), entityID)
	if err != nil {
		r.logger.Error("Failed to delete notifications",
			zap.String("entity_id", entityID), zap.Error(err))
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

// ListByUser returns a user's pending-action rows, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error) {
	query := `
		SELECT id, kind, entity_id, user_id, re_notify, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.EntityID, &n.UserID, &n.ReNotifyFlag, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// CountByUser returns the badge count for a user
func (r *NotificationRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ?`

	var count int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// SetReNotifyForEntity marks every row of one item as stale
func (r *NotificationRepository) SetReNotifyForEntity(ctx context.Context, kind workflow.Kind, entityID string) error {
	query := `UPDATE notifications SET re_notify = 1 WHERE kind = ? AND entity_id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, string(kind), entityID)
	if err != nil {
		return fmt.Errorf("set re-notify: %w", err)
	}
	return nil
}

func (r *NotificationRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
