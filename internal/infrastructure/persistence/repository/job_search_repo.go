package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
	"github.com/jobpal/jobpal-server/internal/infrastructure/persistence/sqlite"
)

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = sql.ErrNoRows

// JobSearchRepository implements port.JobSearchRepository
type JobSearchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobSearchRepository creates a new job search repository
func NewJobSearchRepository(db *sql.DB, logger *zap.Logger) port.JobSearchRepository {
	return &JobSearchRepository{
		db:     db,
		logger: logger,
	}
}

const jobColumns = `
	job_hunt_id, user_id, event_category, company, location, location_type,
	school_check, school_checked, start_time, finish_time,
	tardiness_absence_type, tardy_leave_time, state, report_content,
	result, predicted_result, remarks, re_notify, created_at, updated_at
`

// Create inserts a new activity
func (r *JobSearchRepository) Create(ctx context.Context, activity *entity.JobHuntActivity) error {
	query := `
		INSERT INTO job_hunt_activities (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		activity.JobHuntID,
		activity.UserID,
		int(activity.EventCategory),
		activity.Company,
		activity.Location,
		int(activity.LocationType),
		activity.SchoolCheck,
		nullBool(activity.SchoolCheckedFlag),
		activity.StartTime,
		activity.FinishTime,
		int(activity.TardinessAbsenceType),
		nullTime(activity.TardyLeaveTime),
		activity.State.String(),
		activity.ReportContent,
		int(activity.Result),
		activity.PredictedResult,
		activity.Remarks,
		activity.ReNotifyFlag,
		activity.CreatedAt,
		activity.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create activity", zap.Error(err))
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// GetByID retrieves an activity by ID
func (r *JobSearchRepository) GetByID(ctx context.Context, jobHuntID string) (*entity.JobHuntActivity, error) {
	query := `SELECT ` + jobColumns + ` FROM job_hunt_activities WHERE job_hunt_id = ?`

	row := r.getExecutor(ctx).QueryRowContext(ctx, query, jobHuntID)
	activity, err := scanActivity(row)
	if err != nil {
		if err != sql.ErrNoRows {
			r.logger.Error("Failed to get activity", zap.String("job_hunt_id", jobHuntID), zap.Error(err))
		}
		return nil, fmt.Errorf("get activity %s: %w", jobHuntID, err)
	}
	return activity, nil
}

// Update rewrites the application fields of an activity
func (r *JobSearchRepository) Update(ctx context.Context, activity *entity.JobHuntActivity) error {
	query := `
		UPDATE job_hunt_activities
		SET event_category = ?, company = ?, location = ?, location_type = ?,
			school_check = ?, start_time = ?, finish_time = ?,
			tardiness_absence_type = ?, tardy_leave_time = ?, remarks = ?,
			updated_at = ?
		WHERE job_hunt_id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		int(activity.EventCategory),
		activity.Company,
		activity.Location,
		int(activity.LocationType),
		activity.SchoolCheck,
		activity.StartTime,
		activity.FinishTime,
		int(activity.TardinessAbsenceType),
		nullTime(activity.TardyLeaveTime),
		activity.Remarks,
		time.Now(),
		activity.JobHuntID,
	)
	if err != nil {
		r.logger.Error("Failed to update activity", zap.String("job_hunt_id", activity.JobHuntID), zap.Error(err))
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

// UpdateState moves an activity to a new workflow state
func (r *JobSearchRepository) UpdateState(ctx context.Context, jobHuntID string, state workflow.State) error {
	query := `UPDATE job_hunt_activities SET state = ?, updated_at = ? WHERE job_hunt_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, state.String(), time.Now(), jobHuntID)
	if err != nil {
		r.logger.Error("Failed to update state", zap.String("job_hunt_id", jobHuntID), zap.Error(err))
		return fmt.Errorf("update state: %w", err)
	}
	return requireRow(result, jobHuntID)
}

// SetSchoolChecked records the roster check flag
func (r *JobSearchRepository) SetSchoolChecked(ctx context.Context, jobHuntID string, checked bool) error {
	query := `UPDATE job_hunt_activities SET school_checked = ?, updated_at = ? WHERE job_hunt_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, checked, time.Now(), jobHuntID)
	if err != nil {
		r.logger.Error("Failed to set roster check", zap.String("job_hunt_id", jobHuntID), zap.Error(err))
		return fmt.Errorf("set roster check: %w", err)
	}
	return requireRow(result, jobHuntID)
}

// SetReport stores the outcome report and the model's prediction
func (r *JobSearchRepository) SetReport(ctx context.Context, jobHuntID string, content string, result entity.Result, predicted string) error {
	query := `
		UPDATE job_hunt_activities
		SET report_content = ?, result = ?, predicted_result = ?, updated_at = ?
		WHERE job_hunt_id = ?
	`

	res, err := r.getExecutor(ctx).ExecContext(ctx, query,
		content, int(result), predicted, time.Now(), jobHuntID)
	if err != nil {
		r.logger.Error("Failed to store report", zap.String("job_hunt_id", jobHuntID), zap.Error(err))
		return fmt.Errorf("store report: %w", err)
	}
	return requireRow(res, jobHuntID)
}

// SetReNotify flips the stale-item flag set by the batch sweep
func (r *JobSearchRepository) SetReNotify(ctx context.Context, jobHuntID string, flag bool) error {
	query := `UPDATE job_hunt_activities SET re_notify = ?, updated_at = ? WHERE job_hunt_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, flag, time.Now(), jobHuntID)
	if err != nil {
		return fmt.Errorf("set re-notify: %w", err)
	}
	return requireRow(result, jobHuntID)
}

// Delete removes an activity
func (r *JobSearchRepository) Delete(ctx context.Context, jobHuntID string) error {
	query := `DELETE FROM job_hunt_activities WHERE job_hunt_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, jobHuntID)
	if err != nil {
		r.logger.Error("Failed to delete activity", zap.String("job_hunt_id", jobHuntID), zap.Error(err))
		return fmt.Errorf("delete activity: %w", err)
	}
	return requireRow(result, jobHuntID)
}

// ListByUser returns a student's activities, newest first
func (r *JobSearchRepository) ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	query := `SELECT ` + jobColumns + ` FROM job_hunt_activities WHERE user_id = ?`
	if !includeFinished {
		query += ` AND state NOT IN (?, ?)`
	}
	query += ` ORDER BY created_at DESC`

	args := []interface{}{userID}
	if !includeFinished {
		args = append(args, workflow.StateCompleted.String(), workflow.StateWithdrawn.String())
	}
	return r.list(ctx, query, args...)
}

// ListAll returns every activity, newest first
func (r *JobSearchRepository) ListAll(ctx context.Context, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	query := `SELECT ` + jobColumns + ` FROM job_hunt_activities`
	var args []interface{}
	if !includeFinished {
		query += ` WHERE state NOT IN (?, ?)`
		args = append(args, workflow.StateCompleted.String(), workflow.StateWithdrawn.String())
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *JobSearchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.JobHuntActivity, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list activities", zap.Error(err))
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []*entity.JobHuntActivity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(s scanner) (*entity.JobHuntActivity, error) {
	var (
		activity             entity.JobHuntActivity
		eventCategory        int
		locationType         int
		tardinessAbsenceType int
		result               int
		state                string
		schoolChecked        sql.NullBool
		tardyLeaveTime       sql.NullTime
	)

	err := s.Scan(
		&activity.JobHuntID,
		&activity.UserID,
		&eventCategory,
		&activity.Company,
		&activity.Location,
		&locationType,
		&activity.SchoolCheck,
		&schoolChecked,
		&activity.StartTime,
		&activity.FinishTime,
		&tardinessAbsenceType,
		&tardyLeaveTime,
		&state,
		&activity.ReportContent,
		&result,
		&activity.PredictedResult,
		&activity.Remarks,
		&activity.ReNotifyFlag,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	activity.EventCategory = entity.EventCategory(eventCategory)
	activity.LocationType = entity.LocationType(locationType)
	activity.TardinessAbsenceType = entity.TardinessAbsenceType(tardinessAbsenceType)
	activity.Result = entity.Result(result)
	activity.State = workflow.State(state)
	if schoolChecked.Valid {
		activity.SchoolCheckedFlag = &schoolChecked.Bool
	}
	if tardyLeaveTime.Valid {
		activity.TardyLeaveTime = &tardyLeaveTime.Time
	}
	return &activity, nil
}

func (r *JobSearchRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// requireRow turns a zero-row update into ErrNotFound.
func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("row %s: %w", id, ErrNotFound)
	}
	return nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
