package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
	"github.com/jobpal/jobpal-server/internal/infrastructure/persistence/sqlite"
)

// CertificateRepository implements port.CertificateRepository. The line
// items and the optional mailing address are stored as JSON columns.
type CertificateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCertificateRepository creates a new certificate repository
func NewCertificateRepository(db *sql.DB, logger *zap.Logger) port.CertificateRepository {
	return &CertificateRepository{
		db:     db,
		logger: logger,
	}
}

const certificateColumns = `
	certificate_issue_id, user_id, office_user_id, certificate_list, media,
	state, mailing_address, total_amount, re_notify, created_at, updated_at
`

// Create inserts a new certificate request
func (r *CertificateRepository) Create(ctx context.Context, request *entity.CertificateRequest) error {
	items, mailing, err := marshalCertificateJSON(request)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO certificate_requests (` + certificateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		request.CertificateIssueID,
		request.UserID,
		request.OfficeUserID,
		items,
		string(request.Media),
		request.State.String(),
		mailing,
		request.TotalAmount,
		request.ReNotifyFlag,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create certificate request", zap.Error(err))
		return fmt.Errorf("create certificate request: %w", err)
	}
	return nil
}

// GetByID retrieves a certificate request by ID
func (r *CertificateRepository) GetByID(ctx context.Context, certificateIssueID string) (*entity.CertificateRequest, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificate_requests WHERE certificate_issue_id = ?`

	row := r.getExecutor(ctx).QueryRowContext(ctx, query, certificateIssueID)
	request, err := scanCertificate(row)
	if err != nil {
		if err != sql.ErrNoRows {
			r.logger.Error("Failed to get certificate request",
				zap.String("certificate_issue_id", certificateIssueID), zap.Error(err))
		}
		return nil, fmt.Errorf("get certificate request %s: %w", certificateIssueID, err)
	}
	return request, nil
}

// Update rewrites the form fields and recomputed total of a request
func (r *CertificateRepository) Update(ctx context.Context, request *entity.CertificateRequest) error {
	items, mailing, err := marshalCertificateJSON(request)
	if err != nil {
		return err
	}

	query := `
		UPDATE certificate_requests
		SET certificate_list = ?, media = ?, mailing_address = ?,
			total_amount = ?, updated_at = ?
		WHERE certificate_issue_id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		items,
		string(request.Media),
		mailing,
		request.TotalAmount,
		time.Now(),
		request.CertificateIssueID,
	)
	if err != nil {
		r.logger.Error("Failed to update certificate request",
			zap.String("certificate_issue_id", request.CertificateIssueID), zap.Error(err))
		return fmt.Errorf("update certificate request: %w", err)
	}
	return requireRow(result, request.CertificateIssueID)
}

// UpdateState moves a request to a new workflow state
func (r *CertificateRepository) UpdateState(ctx context.Context, certificateIssueID string, state workflow.State) error {
	query := `UPDATE certificate_requests SET state = ?, updated_at = ? WHERE certificate_issue_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, state.String(), time.Now(), certificateIssueID)
	if err != nil {
		r.logger.Error("Failed to update state",
			zap.String("certificate_issue_id", certificateIssueID), zap.Error(err))
		return fmt.Errorf("update state: %w", err)
	}
	return requireRow(result, certificateIssueID)
}

// SetOfficeUser records the clerk handling the request
func (r *CertificateRepository) SetOfficeUser(ctx context.Context, certificateIssueID, officeUserID string) error {
	query := `UPDATE certificate_requests SET office_user_id = ?, updated_at = ? WHERE certificate_issue_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, officeUserID, time.Now(), certificateIssueID)
	if err != nil {
		return fmt.Errorf("set office user: %w", err)
	}
	return requireRow(result, certificateIssueID)
}

// SetReNotify flips the stale-item flag set by the batch sweep
func (r *CertificateRepository) SetReNotify(ctx context.Context, certificateIssueID string, flag bool) error {
	query := `UPDATE certificate_requests SET re_notify = ?, updated_at = ? WHERE certificate_issue_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, flag, time.Now(), certificateIssueID)
	if err != nil {
		return fmt.Errorf("set re-notify: %w", err)
	}
	return requireRow(result, certificateIssueID)
}

// Delete removes a certificate request
func (r *CertificateRepository) Delete(ctx context.Context, certificateIssueID string) error {
	query := `DELETE FROM certificate_requests WHERE certificate_issue_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, certificateIssueID)
	if err != nil {
		r.logger.Error("Failed to delete certificate request",
			zap.String("certificate_issue_id", certificateIssueID), zap.Error(err))
		return fmt.Errorf("delete certificate request: %w", err)
	}
	return requireRow(result, certificateIssueID)
}

// ListByUser returns a student's requests, newest first
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.CertificateRequest, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificate_requests WHERE user_id = ?`
	args := []interface{}{userID}
	if !includeFinished {
		query += ` AND state NOT IN (?, ?)`
		args = append(args, workflow.StateCompleted.String(), workflow.StateWithdrawn.String())
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

// ListAll returns every request, newest first
func (r *CertificateRepository) ListAll(ctx context.Context, includeFinished bool) ([]*entity.CertificateRequest, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificate_requests`
	var args []interface{}
	if !includeFinished {
		query += ` WHERE state NOT IN (?, ?)`
		args = append(args, workflow.StateCompleted.String(), workflow.StateWithdrawn.String())
	}
	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *CertificateRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.CertificateRequest, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list certificate requests", zap.Error(err))
		return nil, fmt.Errorf("list certificate requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.CertificateRequest
	for rows.Next() {
		request, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate request: %w", err)
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanCertificate(s scanner) (*entity.CertificateRequest, error) {
	var (
		request entity.CertificateRequest
		media   string
		state   string
		items   string
		mailing sql.NullString
	)

	err := s.Scan(
		&request.CertificateIssueID,
		&request.UserID,
		&request.OfficeUserID,
		&items,
		&media,
		&state,
		&mailing,
		&request.TotalAmount,
		&request.ReNotifyFlag,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	request.Media = entity.Media(media)
	request.State = workflow.State(state)
	if err := json.Unmarshal([]byte(items), &request.CertificateList); err != nil {
		return nil, fmt.Errorf("decode certificate list: %w", err)
	}
	if mailing.Valid && mailing.String != "" {
		var address entity.MailingAddress
		if err := json.Unmarshal([]byte(mailing.String), &address); err != nil {
			return nil, fmt.Errorf("decode mailing address: %w", err)
		}
		request.Mailing = &address
	}
	return &request, nil
}

func marshalCertificateJSON(request *entity.CertificateRequest) (string, sql.NullString, error) {
	items, err := json.Marshal(request.CertificateList)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode certificate list: %w", err)
	}

	var mailing sql.NullString
	if request.Mailing != nil {
		encoded, err := json.Marshal(request.Mailing)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode mailing address: %w", err)
		}
		mailing = sql.NullString{String: string(encoded), Valid: true}
	}
	return string(items), mailing, nil
}

func (r *CertificateRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}
