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
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrForbidden is returned when the session's role or ownership does
	// not permit the operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrNotEditable is returned when an item is in a state that does not
	// accept edits or resubmission.
	ErrNotEditable = errors.New("item not editable in its current state")

	// ErrNotReportable is returned when a report arrives for an activity
	// outside its report window.
	ErrNotReportable = errors.New("activity not awaiting a report")
)

// NewActivityInput carries the fields of a new job-hunting application.
type NewActivityInput struct {
	EventCategory        entity.EventCategory
	Company              string
	Location             string
	LocationType         entity.LocationType
	SchoolCheck          bool
	StartTime            time.Time
	FinishTime           time.Time
	TardinessAbsenceType entity.TardinessAbsenceType
	TardyLeaveTime       *time.Time
	Remarks              string
}

// ActivityDetail is an activity together with its exam report, if any. The
// predicted result is blanked for students before this leaves the service.
type ActivityDetail struct {
	Activity   *entity.JobHuntActivity
	ExamReport *entity.ExamReport
	History    []*entity.StateHistory
}

// JobSearchService manages job-hunting activities outside the transition
// engine: creation, edits, reports and the roster check.
type JobSearchService interface {
	Submit(ctx context.Context, session *auth.Session, input NewActivityInput) (*entity.JobHuntActivity, error)
	Update(ctx context.Context, session *auth.Session, jobHuntID string, input NewActivityInput) (*entity.JobHuntActivity, error)
	Resubmit(ctx context.Context, session *auth.Session, jobHuntID string) (*entity.JobHuntActivity, error)
	SubmitReport(ctx context.Context, session *auth.Session, jobHuntID, content string, result entity.Result) (*entity.JobHuntActivity, error)
	SubmitExamReport(ctx context.Context, session *auth.Session, report *entity.ExamReport) error
	RecordRosterCheck(ctx context.Context, session *auth.Session, jobHuntID string) error
	Delete(ctx context.Context, session *auth.Session, jobHuntID string) error
	GetDetail(ctx context.Context, session *auth.Session, jobHuntID string) (*ActivityDetail, error)
	List(ctx context.Context, session *auth.Session, includeFinished bool) ([]*entity.JobHuntActivity, error)
}

type jobSearchServiceImpl struct {
	jobRepo          port.JobSearchRepository
	examReportRepo   port.ExamReportRepository
	userRepo         port.UserRepository
	notificationRepo port.NotificationRepository
	historyRepo      port.HistoryRepository
	txManager        port.TransactionManager
	predictor        port.ResultPredictor
	logger           Logger
}

// NewJobSearchService creates a new JobSearchService.
func NewJobSearchService(
	jobRepo port.JobSearchRepository,
	examReportRepo port.ExamReportRepository,
	userRepo port.UserRepository,
	notificationRepo port.NotificationRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	predictor port.ResultPredictor,
	logger Logger,
) JobSearchService {
	return &jobSearchServiceImpl{
		jobRepo:          jobRepo,
		examReportRepo:   examReportRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		historyRepo:      historyRepo,
		txManager:        txManager,
		predictor:        predictor,
		logger:           logger,
	}
}

// Submit creates a new activity awaiting teacher approval.
func (s *jobSearchServiceImpl) Submit(ctx context.Context, session *auth.Session, input NewActivityInput) (*entity.JobHuntActivity, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}
	if session.Role != workflow.RoleStudent {
		return nil, fmt.Errorf("%w: only students submit activities", ErrForbidden)
	}

	now := time.Now()
	activity := &entity.JobHuntActivity{
		JobHuntID:            uuid.NewString(),
		UserID:               session.UserID,
		EventCategory:        input.EventCategory,
		Company:              input.Company,
		Location:             input.Location,
		LocationType:         input.LocationType,
		SchoolCheck:          input.SchoolCheck,
		StartTime:            input.StartTime,
		FinishTime:           input.FinishTime,
		TardinessAbsenceType: input.TardinessAbsenceType,
		TardyLeaveTime:       input.TardyLeaveTime,
		State:                workflow.StateTeacherApprovalPending,
		Remarks:              input.Remarks,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := activity.Validate(); err != nil {
		return nil, err
	}

	teacherID, err := s.userRepo.TeacherOf(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve teacher: %w", err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.jobRepo.Create(txCtx, activity); err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		if err := s.notifyOne(txCtx, workflow.KindJobSearch, activity.JobHuntID, teacherID); err != nil {
			return err
		}
		return s.recordHistory(txCtx, workflow.KindJobSearch, activity.JobHuntID, session.UserID,
			"", activity.State, "submit")
	})
	if err != nil {
		s.logger.Error("Failed to create activity", "error", err, "user_id", session.UserID)
		return nil, err
	}

	s.logger.Info("Activity created", "job_hunt_id", activity.JobHuntID, "user_id", session.UserID)
	return activity, nil
}

// Update edits the application fields of an activity that is still awaiting
// teacher approval or was returned.
func (s *jobSearchServiceImpl) Update(ctx context.Context, session *auth.Session, jobHuntID string, input NewActivityInput) (*entity.JobHuntActivity, error) {
	activity, err := s.ownedActivity(ctx, session, jobHuntID)
	if err != nil {
		return nil, err
	}

	if activity.State != workflow.StateTeacherApprovalPending &&
		activity.State.Stage() != workflow.StageReturned {
		return nil, fmt.Errorf("%w: activity %s is %s", ErrNotEditable, jobHuntID, activity.State)
	}

	activity.EventCategory = input.EventCategory
	activity.Company = input.Company
	activity.Location = input.Location
	activity.LocationType = input.LocationType
	activity.SchoolCheck = input.SchoolCheck
	activity.StartTime = input.StartTime
	activity.FinishTime = input.FinishTime
	activity.TardinessAbsenceType = input.TardinessAbsenceType
	activity.TardyLeaveTime = input.TardyLeaveTime
	activity.Remarks = input.Remarks
	activity.UpdatedAt = time.Now()
	if err := activity.Validate(); err != nil {
		return nil, err
	}

	if err := s.jobRepo.Update(ctx, activity); err != nil {
		s.logger.Error("Failed to update activity", "error", err, "job_hunt_id", jobHuntID)
		return nil, fmt.Errorf("update activity: %w", err)
	}

	s.logger.Info("Activity updated", "job_hunt_id", jobHuntID)
	return activity, nil
}

// Resubmit returns a returned activity to the teacher's queue.
func (s *jobSearchServiceImpl) Resubmit(ctx context.Context, session *auth.Session, jobHuntID string) (*entity.JobHuntActivity, error) {
	activity, err := s.ownedActivity(ctx, session, jobHuntID)
	if err != nil {
		return nil, err
	}

	if activity.State.Stage() != workflow.StageReturned {
		return nil, fmt.Errorf("%w: activity %s is %s", ErrNotEditable, jobHuntID, activity.State)
	}

	teacherID, err := s.userRepo.TeacherOf(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve teacher: %w", err)
	}

	previousState := activity.State
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.jobRepo.UpdateState(txCtx, jobHuntID, workflow.StateTeacherApprovalPending); err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		if err := s.replaceNotifications(txCtx, workflow.KindJobSearch, jobHuntID, teacherID); err != nil {
			return err
		}
		return s.recordHistory(txCtx, workflow.KindJobSearch, jobHuntID, session.UserID,
			previousState, workflow.StateTeacherApprovalPending, "resubmit")
	})
	if err != nil {
		s.logger.Error("Failed to resubmit activity", "error", err, "job_hunt_id", jobHuntID)
		return nil, err
	}

	s.logger.Info("Activity resubmitted", "job_hunt_id", jobHuntID)
	return s.jobRepo.GetByID(ctx, jobHuntID)
}

// SubmitReport records the outcome report and moves the activity to its
// approval queue. Reporting against a completed activity revises the stored
// report without reopening the workflow.
func (s *jobSearchServiceImpl) SubmitReport(ctx context.Context, session *auth.Session, jobHuntID, content string, result entity.Result) (*entity.JobHuntActivity, error) {
	activity, err := s.ownedActivity(ctx, session, jobHuntID)
	if err != nil {
		return nil, err
	}

	var nextState workflow.State
	switch activity.State {
	case workflow.StateExamReportPending:
		nextState = workflow.StateExamReportApprovalPending
	case workflow.StateReportPending:
		nextState = workflow.StateReportApprovalPending
	case workflow.StateCompleted:
		nextState = workflow.StateCompleted
	default:
		return nil, fmt.Errorf("%w: activity %s is %s", ErrNotReportable, jobHuntID, activity.State)
	}

	predicted := s.predictResult(ctx, content)

	teacherID, err := s.userRepo.TeacherOf(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve teacher: %w", err)
	}

	previousState := activity.State
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.jobRepo.SetReport(txCtx, jobHuntID, content, result, predicted); err != nil {
			return fmt.Errorf("store report: %w", err)
		}
		if nextState == previousState {
			return nil
		}
		if err := s.jobRepo.UpdateState(txCtx, jobHuntID, nextState); err != nil {
			return fmt.Errorf("update state: %w", err)
		}
		if err := s.replaceNotifications(txCtx, workflow.KindJobSearch, jobHuntID, teacherID); err != nil {
			return err
		}
		return s.recordHistory(txCtx, workflow.KindJobSearch, jobHuntID, session.UserID,
			previousState, nextState, "report")
	})
	if err != nil {
		s.logger.Error("Failed to submit report", "error", err, "job_hunt_id", jobHuntID)
		return nil, err
	}

	s.logger.Info("Report submitted", "job_hunt_id", jobHuntID, "state", nextState)
	return s.jobRepo.GetByID(ctx, jobHuntID)
}

// SubmitExamReport attaches the structured exam report to an exam-type
// activity. The workflow advance happens through SubmitReport.
func (s *jobSearchServiceImpl) SubmitExamReport(ctx context.Context, session *auth.Session, report *entity.ExamReport) error {
	activity, err := s.ownedActivity(ctx, session, report.JobHuntID)
	if err != nil {
		return err
	}
	if !activity.EventCategory.RequiresExamReport() {
		return fmt.Errorf("%w: activity %s takes no exam report", ErrNotReportable, report.JobHuntID)
	}

	report.UpdatedAt = time.Now()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = report.UpdatedAt
	}
	if err := s.examReportRepo.Upsert(ctx, report); err != nil {
		s.logger.Error("Failed to store exam report", "error", err, "job_hunt_id", report.JobHuntID)
		return fmt.Errorf("store exam report: %w", err)
	}

	s.logger.Info("Exam report stored", "job_hunt_id", report.JobHuntID)
	return nil
}

// RecordRosterCheck marks the school roster as verified for a
// school-mediated application. Only staff may record it.
func (s *jobSearchServiceImpl) RecordRosterCheck(ctx context.Context, session *auth.Session, jobHuntID string) error {
	if !session.Valid(time.Now()) {
		return auth.ErrNoSession
	}
	if session.Role != workflow.RoleTeacher && session.Role != workflow.RoleAdmin {
		return fmt.Errorf("%w: roster check is recorded by staff", ErrForbidden)
	}

	activity, err := s.jobRepo.GetByID(ctx, jobHuntID)
	if err != nil {
		return fmt.Errorf("fetch activity: %w", err)
	}
	if !activity.SchoolCheck {
		return fmt.Errorf("%w: activity %s has no roster check", ErrNotEditable, jobHuntID)
	}

	if err := s.jobRepo.SetSchoolChecked(ctx, jobHuntID, true); err != nil {
		s.logger.Error("Failed to record roster check", "error", err, "job_hunt_id", jobHuntID)
		return fmt.Errorf("record roster check: %w", err)
	}

	s.logger.Info("Roster check recorded", "job_hunt_id", jobHuntID, "checked_by", session.UserID)
	return nil
}

// Delete removes an activity and its pending-action rows.
func (s *jobSearchServiceImpl) Delete(ctx context.Context, session *auth.Session, jobHuntID string) error {
	activity, err := s.ownedActivity(ctx, session, jobHuntID)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.notificationRepo.DeleteForEntity(txCtx, workflow.KindJobSearch, jobHuntID); err != nil {
			return fmt.Errorf("clear notifications: %w", err)
		}
		if err := s.jobRepo.Delete(txCtx, jobHuntID); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete activity", "error", err, "job_hunt_id", jobHuntID)
		return err
	}

	s.logger.Info("Activity deleted", "job_hunt_id", jobHuntID, "state", activity.State)
	return nil
}

// GetDetail returns the activity, its exam report and its audit trail.
// Students never see the model's predicted result.
func (s *jobSearchServiceImpl) GetDetail(ctx context.Context, session *auth.Session, jobHuntID string) (*ActivityDetail, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}

	activity, err := s.jobRepo.GetByID(ctx, jobHuntID)
	if err != nil {
		return nil, fmt.Errorf("fetch activity: %w", err)
	}
	if session.Role == workflow.RoleStudent {
		if activity.UserID != session.UserID {
			return nil, fmt.Errorf("%w: not the owner", ErrForbidden)
		}
		activity.PredictedResult = ""
	}

	detail := &ActivityDetail{Activity: activity}
	if activity.EventCategory.RequiresExamReport() {
		report, err := s.examReportRepo.GetByJobHuntID(ctx, jobHuntID)
		if err == nil {
			detail.ExamReport = report
		}
	}

	history, err := s.historyRepo.ListByEntity(ctx, workflow.KindJobSearch, jobHuntID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	detail.History = history

	return detail, nil
}

// List returns the activities visible to the session: a student sees their
// own, staff see everything.
func (s *jobSearchServiceImpl) List(ctx context.Context, session *auth.Session, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}

	if session.Role == workflow.RoleStudent {
		return s.jobRepo.ListByUser(ctx, session.UserID, includeFinished)
	}

	activities, err := s.jobRepo.ListAll(ctx, includeFinished)
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// predictResult asks the classifier for a pass/fail estimate. Prediction is
// advisory, so failures only log.
func (s *jobSearchServiceImpl) predictResult(ctx context.Context, content string) string {
	if s.predictor == nil || content == "" {
		return ""
	}
	predicted, err := s.predictor.PredictResult(ctx, content)
	if err != nil {
		s.logger.Error("Result prediction failed", "error", err)
		return ""
	}
	return predicted
}

func (s *jobSearchServiceImpl) ownedActivity(ctx context.Context, session *auth.Session, jobHuntID string) (*entity.JobHuntActivity, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}

	activity, err := s.jobRepo.GetByID(ctx, jobHuntID)
	if err != nil {
		return nil, fmt.Errorf("fetch activity: %w", err)
	}
	if session.Role != workflow.RoleStudent || activity.UserID != session.UserID {
		return nil, fmt.Errorf("%w: not the owner", ErrForbidden)
	}
	return activity, nil
}

func (s *jobSearchServiceImpl) notifyOne(ctx context.Context, kind workflow.Kind, entityID, userID string) error {
	notification := &entity.Notification{
		Kind:      string(kind),
		EntityID:  entityID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := s.notificationRepo.Insert(ctx, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *jobSearchServiceImpl) replaceNotifications(ctx context.Context, kind workflow.Kind, entityID, userID string) error {
	if err := s.notificationRepo.DeleteForEntity(ctx, kind, entityID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return s.notifyOne(ctx, kind, entityID, userID)
}

func (s *jobSearchServiceImpl) recordHistory(ctx context.Context, kind workflow.Kind, entityID, actorUserID string,
	previousState, newState workflow.State, actionName string) error {
	history := &entity.StateHistory{
		Kind:          string(kind),
		EntityID:      entityID,
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
