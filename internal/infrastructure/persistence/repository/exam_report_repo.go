package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/infrastructure/persistence/sqlite"
)

// ExamReportRepository implements port.ExamReportRepository
type ExamReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExamReportRepository creates a new exam report repository
func NewExamReportRepository(db *sql.DB, logger *zap.Logger) port.ExamReportRepository {
	return &ExamReportRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the exam report, replacing an earlier submission.
func (r *ExamReportRepository) Upsert(ctx context.Context, report *entity.ExamReport) error {
	query := `
		INSERT INTO exam_reports (
			job_hunt_id, opponent_count, opponent_title, exam_round,
			exam_category, exam_content, impressions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_hunt_id) DO UPDATE SET
			opponent_count = excluded.opponent_count,
			opponent_title = excluded.opponent_title,
			exam_round = excluded.exam_round,
			exam_category = excluded.exam_category,
			exam_content = excluded.exam_content,
			impressions = excluded.impressions,
			updated_at = excluded.updated_at
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		report.JobHuntID,
		report.OpponentCount,
		report.OpponentTitle,
		report.ExamRound,
		report.ExamCategory,
		report.ExamContent,
		report.Impressions,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert exam report", zap.String("job_hunt_id", report.JobHuntID), zap.Error(err))
		return fmt.Errorf("upsert exam report: %w", err)
	}
	return nil
}

// GetByJobHuntID retrieves the exam report of an activity
func (r *ExamReportRepository) GetByJobHuntID(ctx context.Context, jobHuntID string) (*entity.ExamReport, error) {
	query := `
		SELECT job_hunt_id, opponent_count, opponent_title, exam_round,
			exam_category, exam_content, impressions, created_at, updated_at
		FROM exam_reports
		WHERE job_hunt_id = ?
	`

	var report entity.ExamReport
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, jobHuntID).Scan(
		&report.JobHuntID,
		&report.OpponentCount,
		&report.OpponentTitle,
		&report.ExamRound,
		&report.ExamCategory,
		&report.ExamContent,
		&report.Impressions,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get exam report %s: %w", jobHuntID, err)
	}
	return &report, nil
}

func (r *ExamReportRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}
