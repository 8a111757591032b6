package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
	"github.com/jobpal/jobpal-server/internal/fees"
)

var (
	// ErrRatesUnavailable is returned when the postal rate table cannot be
	// loaded, which would make every request compute a zero fee.
	ErrRatesUnavailable = errors.New("certificate rate table unavailable")

	// ErrZeroFee is returned when a request with copies still computes a
	// zero total, which signals missing rate rows rather than a free order.
	ErrZeroFee = errors.New("request computed a zero fee")
)

// NewCertificateInput carries the fields of a new issuance request.
type NewCertificateInput struct {
	CertificateList []entity.CertificateLineItem
	Media           entity.Media
	Mailing         *entity.MailingAddress
}

// CertificateDetail is a request together with its fee breakdown and audit
// trail.
type CertificateDetail struct {
	Request   *entity.CertificateRequest
	Breakdown fees.Breakdown
	History   []*entity.StateHistory
}

// CertificateService manages certificate-issuance requests outside the
// transition engine.
type CertificateService interface {
	Submit(ctx context.Context, session *auth.Session, input NewCertificateInput) (*entity.CertificateRequest, error)
	Update(ctx context.Context, session *auth.Session, certificateIssueID string, input NewCertificateInput) (*entity.CertificateRequest, error)
	Resubmit(ctx context.Context, session *auth.Session, certificateIssueID string) (*entity.CertificateRequest, error)
	Delete(ctx context.Context, session *auth.Session, certificateIssueID string) error
	GetDetail(ctx context.Context, session *auth.Session, certificateIssueID string) (*CertificateDetail, error)
	List(ctx context.Context, session *auth.Session, includeFinished bool) ([]*entity.CertificateRequest, error)
	GetPostalRates(ctx context.Context) (*entity.PostalRateTable, error)
}

type certificateServiceImpl struct {
	certificateRepo  port.CertificateRepository
	postalRateRepo   port.PostalRateRepository
	userRepo         port.UserRepository
	notificationRepo port.NotificationRepository
	historyRepo      port.HistoryRepository
	txManager        port.TransactionManager
	logger           Logger
}

// NewCertificateService creates a new CertificateService.
func NewCertificateService(
	certificateRepo port.CertificateRepository,
	postalRateRepo port.PostalRateRepository,
	userRepo port.UserRepository,
	notificationRepo port.NotificationRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
) CertificateService {
	return &certificateServiceImpl{
		certificateRepo:  certificateRepo,
		postalRateRepo:   postalRateRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		historyRepo:      historyRepo,
		txManager:        txManager,
		logger:           logger,
	}
}

// Submit creates a new issuance request awaiting teacher approval. The
// total is computed server-side from the stored rate table; the client's
// displayed total is never trusted.
func (s *certificateServiceImpl) Submit(ctx context.Context, session *auth.Session, input NewCertificateInput) (*entity.CertificateRequest, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}
	if session.Role != workflow.RoleStudent {
		return nil, fmt.Errorf("%w: only students request certificates", ErrForbidden)
	}

	now := time.Now()
	request := &entity.CertificateRequest{
		CertificateIssueID: uuid.NewString(),
		UserID:             session.UserID,
		CertificateList:    input.CertificateList,
		Media:              input.Media,
		State:              workflow.StateTeacherApprovalPending,
		Mailing:            input.Mailing,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	breakdown, err := s.price(ctx, request)
	if err != nil {
		return nil, err
	}
	request.TotalAmount = breakdown.TotalAmount

	teacherID, err := s.userRepo.TeacherOf(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve teacher: %w", err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.certificateRepo.Create(txCtx, request); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if err := s.insertNotification(txCtx, request.CertificateIssueID, teacherID); err != nil {
			return err
		}
		return s.recordHistory(txCtx, request.CertificateIssueID, session.UserID,
			"", request.State, "submit")
	})
	if err != nil {
		s.logger.Error("Failed to create request", "error", err, "user_id", session.UserID)
		return nil, err
	}

	s.logger.Info("Certificate request created",
		"certificate_issue_id", request.CertificateIssueID,
		"user_id", session.UserID,
		"total_amount", request.TotalAmount,
	)
	return request, nil
}

// Update edits a request that is still awaiting teacher approval or was
// returned, repricing it against the current rate table.
func (s *certificateServiceImpl) Update(ctx context.Context, session *auth.Session, certificateIssueID string, input NewCertificateInput) (*entity.CertificateRequest, error) {
	request, err := s.ownedRequest(ctx, session, certificateIssueID)
	if err != nil {
		return nil, err
	}

	if request.State != workflow.StateTeacherApprovalPending &&
		request.State.Stage() != workflow.StageReturned {
		return nil, fmt.Errorf("%w: request %s is %s", ErrNotEditable, certificateIssueID, request.State)
	}

	request.CertificateList = input.CertificateList
	request.Media = input.Media
	request.Mailing = input.Mailing
	request.UpdatedAt = time.Now()
	if err := request.Validate(); err != nil {
		return nil, err
	}

	breakdown, err := s.price(ctx, request)
	if err != nil {
		return nil, err
	}
	request.TotalAmount = breakdown.TotalAmount

	if err := s.certificateRepo.Update(ctx, request); err != nil {
		s.logger.Error("Failed to update request", "error", err, "certificate_issue_id", certificateIssueID)
		return nil, fmt.Errorf("update request: %w", err)
	}

	s.logger.Info("Certificate request updated", "certificate_issue_id", certificateIssueID)
	return request, nil
}

// Resubmit returns a returned request to the teacher's queue.
func (s *certificateServiceImpl) Resubmit(ctx context.Context, session *auth.Session, certificateIssueID string) (*entity.CertificateRequest, error) {
	request, err := s.ownedRequest(ctx, session, certificateIssueID)
	if err != nil {
		return nil, err
	}

	if request.State.Stage() != workflow.StageReturned {
		return nil, fmt.Errorf("%w: request %s is %s", ErrNotEditable, certificateIssueID, request.State)
	}

	teacherID, err := s.userRepo.TeacherOf(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve teacher: %w", err)
	}

	previousState := request.State
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.certificateRepo.UpdateState(txCtx, certificateIssueID, workflow.StateTeacherApprovalPending); err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		if err := s.notificationRepo.DeleteForEntity(txCtx, workflow.KindCertificate, certificateIssueID); err != nil {
			return fmt.Errorf("clear notifications: %w", err)
		}
		if err := s.insertNotification(txCtx, certificateIssueID, teacherID); err != nil {
			return err
		}
		return s.recordHistory(txCtx, certificateIssueID, session.UserID,
			previousState, workflow.StateTeacherApprovalPending, "resubmit")
	})
	if err != nil {
		s.logger.Error("Failed to resubmit request", "error", err, "certificate_issue_id", certificateIssueID)
		return nil, err
	}

	s.logger.Info("Certificate request resubmitted", "certificate_issue_id", certificateIssueID)
	return s.certificateRepo.GetByID(ctx, certificateIssueID)
}

// Delete removes a request and its pending-action rows.
func (s *certificateServiceImpl) Delete(ctx context.Context, session *auth.Session, certificateIssueID string) error {
	request, err := s.ownedRequest(ctx, session, certificateIssueID)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.notificationRepo.DeleteForEntity(txCtx, workflow.KindCertificate, certificateIssueID); err != nil {
			return fmt.Errorf("clear notifications: %w", err)
		}
		if err := s.certificateRepo.Delete(txCtx, certificateIssueID); err != nil {
			return fmt.Errorf("delete request: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete request", "error", err, "certificate_issue_id", certificateIssueID)
		return err
	}

	s.logger.Info("Certificate request deleted", "certificate_issue_id", certificateIssueID, "state", request.State)
	return nil
}

// GetDetail returns the request, a fresh fee breakdown and its audit trail.
func (s *certificateServiceImpl) GetDetail(ctx context.Context, session *auth.Session, certificateIssueID string) (*CertificateDetail, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}

	request, err := s.certificateRepo.GetByID(ctx, certificateIssueID)
	if err != nil {
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	if session.Role == workflow.RoleStudent && request.UserID != session.UserID {
		return nil, fmt.Errorf("%w: not the owner", ErrForbidden)
	}

	rates, err := s.postalRateRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	breakdown := fees.Calculate(request.CertificateList, rates, request.Media)

	history, err := s.historyRepo.ListByEntity(ctx, workflow.KindCertificate, certificateIssueID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	return &CertificateDetail{
		Request:   request,
		Breakdown: breakdown,
		History:   history,
	}, nil
}

// List returns the requests visible to the session.
func (s *certificateServiceImpl) List(ctx context.Context, session *auth.Session, includeFinished bool) ([]*entity.CertificateRequest, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}

	if session.Role == workflow.RoleStudent {
		return s.certificateRepo.ListByUser(ctx, session.UserID, includeFinished)
	}
	return s.certificateRepo.ListAll(ctx, includeFinished)
}

// GetPostalRates returns the fee and weight table shown on the request form.
func (s *certificateServiceImpl) GetPostalRates(ctx context.Context) (*entity.PostalRateTable, error) {
	rates, err := s.postalRateRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	return rates, nil
}

// price computes the server-side fee breakdown, refusing totals that are
// zero despite requested copies.
func (s *certificateServiceImpl) price(ctx context.Context, request *entity.CertificateRequest) (fees.Breakdown, error) {
	rates, err := s.postalRateRepo.Get(ctx)
	if err != nil {
		return fees.Breakdown{}, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}

	breakdown := fees.Calculate(request.CertificateList, rates, request.Media)
	if breakdown.TotalAmount == 0 {
		return fees.Breakdown{}, fmt.Errorf("%w: check the rate table rows", ErrZeroFee)
	}
	return breakdown, nil
}

func (s *certificateServiceImpl) ownedRequest(ctx context.Context, session *auth.Session, certificateIssueID string) (*entity.CertificateRequest, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}

	request, err := s.certificateRepo.GetByID(ctx, certificateIssueID)
	if err != nil {
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	if session.Role != workflow.RoleStudent || request.UserID != session.UserID {
		return nil, fmt.Errorf("%w: not the owner", ErrForbidden)
	}
	return request, nil
}

func (s *certificateServiceImpl) insertNotification(ctx context.Context, certificateIssueID, userID string) error {
	notification := &entity.Notification{
		Kind:      string(workflow.KindCertificate),
		EntityID:  certificateIssueID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := s.notificationRepo.Insert(ctx, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *certificateServiceImpl) recordHistory(ctx context.Context, certificateIssueID, actorUserID string,
	previousState, newState workflow.State, actionName string) error {
	history := &entity.StateHistory{
		Kind:          string(workflow.KindCertificate),
		EntityID:      certificateIssueID,
		ActorUserID:   actorUserID,
		PreviousState: previousState.String(),
		NewState:      newState.String(),
		ActionName:    actionName,
		Timestamp:     time.Now(),
	}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}
