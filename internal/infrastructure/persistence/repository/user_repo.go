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

const userColumns = `user_id, password_hash, name, role, class, class_number,
	school_number, teacher_user_id, created_at, updated_at`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an account by its portal ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`

	var u entity.User
	var role string
	var teacherID sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, userID).Scan(
		&u.UserID,
		&u.PasswordHash,
		&u.Name,
		&role,
		&u.Class,
		&u.ClassNumber,
		&u.SchoolNumber,
		&teacherID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.Role = workflow.Role(role)
	u.TeacherUserID = teacherID.String
	return &u, nil
}

// TeacherOf returns the homeroom teacher's user ID for a student account
func (r *UserRepository) TeacherOf(ctx context.Context, studentUserID string) (string, error) {
	query := `SELECT teacher_user_id FROM users WHERE user_id = ?`

	var teacherID sql.NullString
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, studentUserID).Scan(&teacherID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get teacher of %s: %w", studentUserID, err)
	}
	if !teacherID.Valid || teacherID.String == "" {
		return "", fmt.Errorf("user %s has no assigned teacher", studentUserID)
	}
	return teacherID.String, nil
}

// ListClerkIDs returns every office clerk account ID
func (r *UserRepository) ListClerkIDs(ctx context.Context) ([]string, error) {
	query := `SELECT user_id FROM users WHERE role = ? ORDER BY user_id`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, string(workflow.RoleClerk))
	if err != nil {
		r.logger.Error("Failed to list clerks", zap.Error(err))
		return nil, fmt.Errorf("list clerks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan clerk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

var _ port.UserRepository = (*UserRepository)(nil)
