package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// engineImpl is the concrete implementation of Engine.
type engineImpl struct {
	jobRepo          port.JobSearchRepository
	certificateRepo  port.CertificateRepository
	userRepo         port.UserRepository
	notificationRepo port.NotificationRepository
	historyRepo      port.HistoryRepository
	txManager        port.TransactionManager

	now func() time.Time
}

// EngineOption configures the workflow engine.
type EngineOption func(*engineImpl)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine.
func NewEngine(
	jobRepo port.JobSearchRepository,
	certificateRepo port.CertificateRepository,
	userRepo port.UserRepository,
	notificationRepo port.NotificationRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		jobRepo:          jobRepo,
		certificateRepo:  certificateRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		historyRepo:      historyRepo,
		txManager:        txManager,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// checkCommand runs the validations shared by both workflows.
func (e *engineImpl) checkCommand(session *auth.Session, cmd TransitionCommand) error {
	if !session.Valid(e.now()) {
		return auth.ErrNoSession
	}
	if !cmd.Confirmed {
		return fmt.Errorf("%w: %s requires confirmation", ErrNotConfirmed, cmd.EntityID)
	}
	return nil
}

// TransitionJobSearch executes a transition on a job-hunting activity.
func (e *engineImpl) TransitionJobSearch(ctx context.Context, session *auth.Session, cmd TransitionCommand) (*entity.JobHuntActivity, error) {
	if err := e.checkCommand(session, cmd); err != nil {
		return nil, err
	}

	activity, err := e.jobRepo.GetByID(ctx, cmd.EntityID)
	if err != nil {
		return nil, fmt.Errorf("fetch activity: %w", err)
	}
	if activity.State != cmd.CurrentState {
		return nil, fmt.Errorf("%w: activity %s is now %s", ErrStaleState, cmd.EntityID, activity.State)
	}

	machine := BuildJobSearchMachine(activity)
	previousState := machine.State()
	if err := machine.Fire(ctx, session.Role, cmd.Action); err != nil {
		return nil, err
	}
	newState := machine.State()

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.jobRepo.UpdateState(txCtx, activity.JobHuntID, newState); err != nil {
			return fmt.Errorf("update activity state: %w", err)
		}

		// Approving a school-mediated application implies the roster was
		// checked, so the flag is persisted alongside the transition.
		if previousState == domainwf.StateTeacherApprovalPending &&
			cmd.Action == domainwf.ActionApprove && activity.SchoolCheck {
			if err := e.jobRepo.SetSchoolChecked(txCtx, activity.JobHuntID, true); err != nil {
				return fmt.Errorf("record roster check: %w", err)
			}
		}

		if err := e.recordHistory(txCtx, domainwf.KindJobSearch, activity.JobHuntID,
			session.UserID, previousState, newState, cmd.Action); err != nil {
			return err
		}

		return e.refreshJobNotifications(txCtx, activity, newState)
	})
	if err != nil {
		return nil, err
	}

	return e.jobRepo.GetByID(ctx, activity.JobHuntID)
}

// TransitionCertificate executes a transition on a certificate request.
func (e *engineImpl) TransitionCertificate(ctx context.Context, session *auth.Session, cmd TransitionCommand) (*entity.CertificateRequest, error) {
	if err := e.checkCommand(session, cmd); err != nil {
		return nil, err
	}

	request, err := e.certificateRepo.GetByID(ctx, cmd.EntityID)
	if err != nil {
		return nil, fmt.Errorf("fetch certificate request: %w", err)
	}
	if request.State != cmd.CurrentState {
		return nil, fmt.Errorf("%w: request %s is now %s", ErrStaleState, cmd.EntityID, request.State)
	}

	machine := BuildCertificateMachine(request)
	previousState := machine.State()
	if err := machine.Fire(ctx, session.Role, cmd.Action); err != nil {
		return nil, err
	}
	newState := machine.State()

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.certificateRepo.UpdateState(txCtx, request.CertificateIssueID, newState); err != nil {
			return fmt.Errorf("update request state: %w", err)
		}

		// The clerk who takes the payment handles the request from then on.
		if cmd.Action == domainwf.ActionReceivePayment {
			if err := e.certificateRepo.SetOfficeUser(txCtx, request.CertificateIssueID, session.UserID); err != nil {
				return fmt.Errorf("record office user: %w", err)
			}
		}

		if err := e.recordHistory(txCtx, domainwf.KindCertificate, request.CertificateIssueID,
			session.UserID, previousState, newState, cmd.Action); err != nil {
			return err
		}

		officeUserID := request.OfficeUserID
		if cmd.Action == domainwf.ActionReceivePayment {
			officeUserID = session.UserID
		}
		return e.refreshCertificateNotifications(txCtx, request, newState, officeUserID)
	})
	if err != nil {
		return nil, err
	}

	return e.certificateRepo.GetByID(ctx, request.CertificateIssueID)
}

// PermittedJobSearchActions returns the actions available to the session on
// the activity.
func (e *engineImpl) PermittedJobSearchActions(ctx context.Context, session *auth.Session, jobHuntID string) ([]domainwf.Action, error) {
	if !session.Valid(e.now()) {
		return nil, auth.ErrNoSession
	}

	activity, err := e.jobRepo.GetByID(ctx, jobHuntID)
	if err != nil {
		return nil, fmt.Errorf("fetch activity: %w", err)
	}

	return BuildJobSearchMachine(activity).PermittedActions(ctx, session.Role), nil
}

// PermittedCertificateActions returns the actions available to the session
// on the certificate request.
func (e *engineImpl) PermittedCertificateActions(ctx context.Context, session *auth.Session, certificateIssueID string) ([]domainwf.Action, error) {
	if !session.Valid(e.now()) {
		return nil, auth.ErrNoSession
	}

	request, err := e.certificateRepo.GetByID(ctx, certificateIssueID)
	if err != nil {
		return nil, fmt.Errorf("fetch certificate request: %w", err)
	}

	return BuildCertificateMachine(request).PermittedActions(ctx, session.Role), nil
}

func (e *engineImpl) recordHistory(ctx context.Context, kind domainwf.Kind, entityID, actorUserID string,
	previousState, newState domainwf.State, action domainwf.Action) error {
	history := &entity.StateHistory{
		Kind:          string(kind),
		EntityID:      entityID,
		ActorUserID:   actorUserID,
		PreviousState: previousState.String(),
		NewState:      newState.String(),
		ActionName:    domainwf.ActionName(kind, action),
		Timestamp:     e.now(),
	}
	if err := e.historyRepo.Create(ctx, history); err != nil {
		return fmt.Errorf("create history record: %w", err)
	}
	return nil
}

// refreshJobNotifications replaces the activity's pending-action rows with
// the ones matching the new state.
func (e *engineImpl) refreshJobNotifications(ctx context.Context, activity *entity.JobHuntActivity, newState domainwf.State) error {
	if err := e.notificationRepo.DeleteForEntity(ctx, domainwf.KindJobSearch, activity.JobHuntID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}

	var recipients []string
	switch newState.Stage() {
	case domainwf.StageApprovalPending:
		teacherID, err := e.userRepo.TeacherOf(ctx, activity.UserID)
		if err != nil {
			return fmt.Errorf("resolve teacher: %w", err)
		}
		recipients = []string{teacherID}
	case domainwf.StageReportPending, domainwf.StageReturned:
		recipients = []string{activity.UserID}
	}

	return e.insertNotifications(ctx, domainwf.KindJobSearch, activity.JobHuntID, recipients)
}

// refreshCertificateNotifications replaces the request's pending-action
// rows with the ones matching the new state.
func (e *engineImpl) refreshCertificateNotifications(ctx context.Context, request *entity.CertificateRequest,
	newState domainwf.State, officeUserID string) error {
	if err := e.notificationRepo.DeleteForEntity(ctx, domainwf.KindCertificate, request.CertificateIssueID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}

	var recipients []string
	switch newState.Stage() {
	case domainwf.StageApprovalPending:
		teacherID, err := e.userRepo.TeacherOf(ctx, request.UserID)
		if err != nil {
			return fmt.Errorf("resolve teacher: %w", err)
		}
		recipients = []string{teacherID}
	case domainwf.StagePaymentPending:
		clerkIDs, err := e.userRepo.ListClerkIDs(ctx)
		if err != nil {
			return fmt.Errorf("list clerks: %w", err)
		}
		recipients = append([]string{request.UserID}, clerkIDs...)
	case domainwf.StageReturned:
		recipients = []string{request.UserID}
	case domainwf.StageIssuancePending, domainwf.StageIssued:
		if officeUserID != "" {
			recipients = []string{officeUserID}
		}
	case domainwf.StageReceivedPending:
		recipients = []string{request.UserID}
		if officeUserID != "" {
			recipients = append(recipients, officeUserID)
		}
	}

	return e.insertNotifications(ctx, domainwf.KindCertificate, request.CertificateIssueID, recipients)
}

func (e *engineImpl) insertNotifications(ctx context.Context, kind domainwf.Kind, entityID string, recipients []string) error {
	for _, userID := range recipients {
		notification := &entity.Notification{
			Kind:      string(kind),
			EntityID:  entityID,
			UserID:    userID,
			CreatedAt: e.now(),
		}
		if err := e.notificationRepo.Insert(ctx, notification); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}
