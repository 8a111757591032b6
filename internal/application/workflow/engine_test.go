package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// Mock implementations

type mockJobRepo struct {
	activities map[string]*entity.JobHuntActivity
	updateErr  error
}

func (m *mockJobRepo) Create(ctx context.Context, activity *entity.JobHuntActivity) error {
	m.activities[activity.JobHuntID] = activity
	return nil
}

func (m *mockJobRepo) GetByID(ctx context.Context, jobHuntID string) (*entity.JobHuntActivity, error) {
	activity, exists := m.activities[jobHuntID]
	if !exists {
		return nil, errors.New("activity not found")
	}
	return activity, nil
}

func (m *mockJobRepo) Update(ctx context.Context, activity *entity.JobHuntActivity) error {
	m.activities[activity.JobHuntID] = activity
	return nil
}

func (m *mockJobRepo) UpdateState(ctx context.Context, jobHuntID string, state domainwf.State) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if activity, exists := m.activities[jobHuntID]; exists {
		activity.State = state
		return nil
	}
	return errors.New("activity not found")
}

func (m *mockJobRepo) SetSchoolChecked(ctx context.Context, jobHuntID string, checked bool) error {
	if activity, exists := m.activities[jobHuntID]; exists {
		activity.SchoolCheckedFlag = &checked
		return nil
	}
	return errors.New("activity not found")
}

func (m *mockJobRepo) SetReport(ctx context.Context, jobHuntID string, content string, result entity.Result, predicted string) error {
	if activity, exists := m.activities[jobHuntID]; exists {
		activity.ReportContent = content
		activity.Result = result
		activity.PredictedResult = predicted
		return nil
	}
	return errors.New("activity not found")
}

func (m *mockJobRepo) SetReNotify(ctx context.Context, jobHuntID string, flag bool) error {
	if activity, exists := m.activities[jobHuntID]; exists {
		activity.ReNotifyFlag = flag
		return nil
	}
	return errors.New("activity not found")
}

func (m *mockJobRepo) Delete(ctx context.Context, jobHuntID string) error {
	delete(m.activities, jobHuntID)
	return nil
}

func (m *mockJobRepo) ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	return nil, nil
}

func (m *mockJobRepo) ListAll(ctx context.Context, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	return nil, nil
}

type mockCertificateRepo struct {
	requests  map[string]*entity.CertificateRequest
	updateErr error
}

func (m *mockCertificateRepo) Create(ctx context.Context, request *entity.CertificateRequest) error {
	m.requests[request.CertificateIssueID] = request
	return nil
}

func (m *mockCertificateRepo) GetByID(ctx context.Context, certificateIssueID string) (*entity.CertificateRequest, error) {
	request, exists := m.requests[certificateIssueID]
	if !exists {
		return nil, errors.New("request not found")
	}
	return request, nil
}

func (m *mockCertificateRepo) Update(ctx context.Context, request *entity.CertificateRequest) error {
	m.requests[request.CertificateIssueID] = request
	return nil
}

func (m *mockCertificateRepo) UpdateState(ctx context.Context, certificateIssueID string, state domainwf.State) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if request, exists := m.requests[certificateIssueID]; exists {
		request.State = state
		return nil
	}
	return errors.New("request not found")
}

func (m *mockCertificateRepo) SetOfficeUser(ctx context.Context, certificateIssueID, officeUserID string) error {
	if request, exists := m.requests[certificateIssueID]; exists {
		request.OfficeUserID = officeUserID
		return nil
	}
	return errors.New("request not found")
}

func (m *mockCertificateRepo) SetReNotify(ctx context.Context, certificateIssueID string, flag bool) error {
	if request, exists := m.requests[certificateIssueID]; exists {
		request.ReNotifyFlag = flag
		return nil
	}
	return errors.New("request not found")
}

func (m *mockCertificateRepo) Delete(ctx context.Context, certificateIssueID string) error {
	delete(m.requests, certificateIssueID)
	return nil
}

func (m *mockCertificateRepo) ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.CertificateRequest, error) {
	return nil, nil
}

func (m *mockCertificateRepo) ListAll(ctx context.Context, includeFinished bool) ([]*entity.CertificateRequest, error) {
	return nil, nil
}

type mockUserRepo struct {
	teacherID string
	clerkIDs  []string
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	return &entity.User{UserID: userID}, nil
}

func (m *mockUserRepo) TeacherOf(ctx context.Context, studentUserID string) (string, error) {
	return m.teacherID, nil
}

func (m *mockUserRepo) ListClerkIDs(ctx context.Context) ([]string, error) {
	return m.clerkIDs, nil
}

type mockNotificationRepo struct {
	notifications []*entity.Notification
}

func (m *mockNotificationRepo) Insert(ctx context.Context, notification *entity.Notification) error {
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *mockNotificationRepo) DeleteForEntity(ctx context.Context, kind domainwf.Kind, entityID string) error {
	var kept []*entity.Notification
	for _, n := range m.notifications {
		if n.Kind != string(kind) || n.EntityID != entityID {
			kept = append(kept, n)
		}
	}
	m.notifications = kept
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error) {
	var result []*entity.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *mockNotificationRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	list, _ := m.ListByUser(ctx, userID)
	return len(list), nil
}

func (m *mockNotificationRepo) SetReNotifyForEntity(ctx context.Context, kind domainwf.Kind, entityID string) error {
	for _, n := range m.notifications {
		if n.Kind == string(kind) && n.EntityID == entityID {
			n.ReNotifyFlag = true
		}
	}
	return nil
}

type mockHistoryRepo struct {
	histories []*entity.StateHistory
	createErr error
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.StateHistory) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.histories = append(m.histories, history)
	return nil
}

func (m *mockHistoryRepo) ListByEntity(ctx context.Context, kind domainwf.Kind, entityID string) ([]*entity.StateHistory, error) {
	var result []*entity.StateHistory
	for _, h := range m.histories {
		if h.Kind == string(kind) && h.EntityID == entityID {
			result = append(result, h)
		}
	}
	return result, nil
}

type mockTxManager struct {
	commitErr error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	return fn(ctx)
}

// Test fixtures

func boolPtr(b bool) *bool { return &b }

func studentSession() *auth.Session {
	return &auth.Session{UserID: "s001", Role: domainwf.RoleStudent, ExpiresAt: time.Now().Add(time.Hour)}
}

func teacherSession() *auth.Session {
	return &auth.Session{UserID: "t001", Role: domainwf.RoleTeacher, ExpiresAt: time.Now().Add(time.Hour)}
}

func clerkSession() *auth.Session {
	return &auth.Session{UserID: "c001", Role: domainwf.RoleClerk, ExpiresAt: time.Now().Add(time.Hour)}
}

type engineFixture struct {
	jobRepo          *mockJobRepo
	certificateRepo  *mockCertificateRepo
	userRepo         *mockUserRepo
	notificationRepo *mockNotificationRepo
	historyRepo      *mockHistoryRepo
	engine           Engine
}

func newFixture() *engineFixture {
	f := &engineFixture{
		jobRepo:          &mockJobRepo{activities: make(map[string]*entity.JobHuntActivity)},
		certificateRepo:  &mockCertificateRepo{requests: make(map[string]*entity.CertificateRequest)},
		userRepo:         &mockUserRepo{teacherID: "t001", clerkIDs: []string{"c001", "c002"}},
		notificationRepo: &mockNotificationRepo{},
		historyRepo:      &mockHistoryRepo{},
	}
	f.engine = NewEngine(f.jobRepo, f.certificateRepo, f.userRepo,
		f.notificationRepo, f.historyRepo, &mockTxManager{})
	return f
}

// Test factory

func TestBuildJobSearchMachine(t *testing.T) {
	tests := []struct {
		name         string
		initialState domainwf.State
		category     entity.EventCategory
		schoolCheck  bool
		checkedFlag  *bool
		role         domainwf.Role
		action       domainwf.Action
		wantState    domainwf.State
		wantError    bool
	}{
		{
			name:         "approve non-exam event goes to report pending",
			initialState: domainwf.StateTeacherApprovalPending,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateReportPending,
		},
		{
			name:         "approve exam event goes to course owner",
			initialState: domainwf.StateTeacherApprovalPending,
			category:     entity.EventInterviewExam,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateCourseOwnerApprovalPending,
		},
		{
			name:         "approve blocked while roster check outstanding",
			initialState: domainwf.StateTeacherApprovalPending,
			category:     entity.EventBriefingSingle,
			schoolCheck:  true,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateTeacherApprovalPending,
			wantError:    true,
		},
		{
			name:         "approve allowed once roster checked",
			initialState: domainwf.StateTeacherApprovalPending,
			category:     entity.EventBriefingSingle,
			schoolCheck:  true,
			checkedFlag:  boolPtr(true),
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateReportPending,
		},
		{
			name:         "student cannot approve",
			initialState: domainwf.StateTeacherApprovalPending,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleStudent,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateTeacherApprovalPending,
			wantError:    true,
		},
		{
			name:         "return goes to application returned",
			initialState: domainwf.StateTeacherApprovalPending,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionReturn,
			wantState:    domainwf.StateApplicationReturned,
		},
		{
			name:         "course owner approve on exam event goes to exam report pending",
			initialState: domainwf.StateCourseOwnerApprovalPending,
			category:     entity.EventAptitudeExam,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionCourseOwnerApprove,
			wantState:    domainwf.StateExamReportPending,
		},
		{
			name:         "return rejected during course owner approval",
			initialState: domainwf.StateCourseOwnerApprovalPending,
			category:     entity.EventAptitudeExam,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionReturn,
			wantState:    domainwf.StateCourseOwnerApprovalPending,
			wantError:    true,
		},
		{
			name:         "exam report approval advances to report pending",
			initialState: domainwf.StateExamReportApprovalPending,
			category:     entity.EventOtherExam,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateReportPending,
		},
		{
			name:         "exam report return",
			initialState: domainwf.StateExamReportApprovalPending,
			category:     entity.EventOtherExam,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionReturn,
			wantState:    domainwf.StateExamReportReturned,
		},
		{
			name:         "exam report approval blocked while roster check outstanding",
			initialState: domainwf.StateExamReportApprovalPending,
			category:     entity.EventOtherExam,
			schoolCheck:  true,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateExamReportApprovalPending,
			wantError:    true,
		},
		{
			name:         "report approval completes the activity",
			initialState: domainwf.StateReportApprovalPending,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateCompleted,
		},
		{
			name:         "report approval blocked while roster check outstanding",
			initialState: domainwf.StateReportApprovalPending,
			category:     entity.EventBriefingSingle,
			schoolCheck:  true,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateReportApprovalPending,
			wantError:    true,
		},
		{
			name:         "report return",
			initialState: domainwf.StateReportApprovalPending,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionReturn,
			wantState:    domainwf.StateReportReturned,
		},
		{
			name:         "student withdraws while pending",
			initialState: domainwf.StateReportPending,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleStudent,
			action:       domainwf.ActionWithdraw,
			wantState:    domainwf.StateWithdrawn,
		},
		{
			name:         "student withdraws after completion",
			initialState: domainwf.StateCompleted,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleStudent,
			action:       domainwf.ActionWithdraw,
			wantState:    domainwf.StateWithdrawn,
		},
		{
			name:         "no actions leave withdrawn",
			initialState: domainwf.StateWithdrawn,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleStudent,
			action:       domainwf.ActionWithdraw,
			wantState:    domainwf.StateWithdrawn,
			wantError:    true,
		},
		{
			name:         "no actions leave a returned state",
			initialState: domainwf.StateApplicationReturned,
			category:     entity.EventBriefingSingle,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StateApplicationReturned,
			wantError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activity := &entity.JobHuntActivity{
				JobHuntID:         "j001",
				UserID:            "s001",
				EventCategory:     tt.category,
				SchoolCheck:       tt.schoolCheck,
				SchoolCheckedFlag: tt.checkedFlag,
				State:             tt.initialState,
			}
			machine := BuildJobSearchMachine(activity)

			err := machine.Fire(context.Background(), tt.role, tt.action)

			if tt.wantError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if machine.State() != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, machine.State())
			}
		})
	}
}

func TestBuildCertificateMachine(t *testing.T) {
	tests := []struct {
		name         string
		initialState domainwf.State
		media        entity.Media
		role         domainwf.Role
		action       domainwf.Action
		wantState    domainwf.State
		wantError    bool
	}{
		{
			name:         "teacher approve goes to payment pending",
			initialState: domainwf.StateTeacherApprovalPending,
			media:        entity.MediaPaper,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionApprove,
			wantState:    domainwf.StatePaymentPending,
		},
		{
			name:         "teacher return",
			initialState: domainwf.StateTeacherApprovalPending,
			media:        entity.MediaPaper,
			role:         domainwf.RoleTeacher,
			action:       domainwf.ActionReturn,
			wantState:    domainwf.StateReturned,
		},
		{
			name:         "clerk receives payment",
			initialState: domainwf.StatePaymentPending,
			media:        entity.MediaPaper,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionReceivePayment,
			wantState:    domainwf.StateIssuancePending,
		},
		{
			name:         "issue paper certificate waits for pickup",
			initialState: domainwf.StateIssuancePending,
			media:        entity.MediaPaper,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionIssue,
			wantState:    domainwf.StateReceivedPending,
		},
		{
			name:         "issue electronic certificate awaits sending",
			initialState: domainwf.StateIssuancePending,
			media:        entity.MediaElectronic,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionIssue,
			wantState:    domainwf.StateIssued,
		},
		{
			name:         "issue mail certificate awaits mailing",
			initialState: domainwf.StateIssuancePending,
			media:        entity.MediaMail,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionIssue,
			wantState:    domainwf.StateIssued,
		},
		{
			name:         "send electronic delivery",
			initialState: domainwf.StateIssued,
			media:        entity.MediaElectronic,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionSendElectronic,
			wantState:    domainwf.StateReceivedPending,
		},
		{
			name:         "mail action rejected for electronic media",
			initialState: domainwf.StateIssued,
			media:        entity.MediaElectronic,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionMail,
			wantState:    domainwf.StateIssued,
			wantError:    true,
		},
		{
			name:         "mail delivery",
			initialState: domainwf.StateIssued,
			media:        entity.MediaMail,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionMail,
			wantState:    domainwf.StateReceivedPending,
		},
		{
			name:         "clerk completes after receipt",
			initialState: domainwf.StateReceivedPending,
			media:        entity.MediaPaper,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionComplete,
			wantState:    domainwf.StateCompleted,
		},
		{
			name:         "student withdraws while awaiting approval",
			initialState: domainwf.StateTeacherApprovalPending,
			media:        entity.MediaPaper,
			role:         domainwf.RoleStudent,
			action:       domainwf.ActionWithdraw,
			wantState:    domainwf.StateWithdrawn,
		},
		{
			name:         "withdraw rejected once payment is pending",
			initialState: domainwf.StatePaymentPending,
			media:        entity.MediaPaper,
			role:         domainwf.RoleStudent,
			action:       domainwf.ActionWithdraw,
			wantState:    domainwf.StatePaymentPending,
			wantError:    true,
		},
		{
			name:         "no actions leave completed",
			initialState: domainwf.StateCompleted,
			media:        entity.MediaPaper,
			role:         domainwf.RoleClerk,
			action:       domainwf.ActionComplete,
			wantState:    domainwf.StateCompleted,
			wantError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := &entity.CertificateRequest{
				CertificateIssueID: "cert001",
				UserID:             "s001",
				Media:              tt.media,
				State:              tt.initialState,
			}
			machine := BuildCertificateMachine(request)

			err := machine.Fire(context.Background(), tt.role, tt.action)

			if tt.wantError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if machine.State() != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, machine.State())
			}
		})
	}
}

// Test engine

func TestEngineTransitionJobSearch(t *testing.T) {
	f := newFixture()
	f.jobRepo.activities["j001"] = &entity.JobHuntActivity{
		JobHuntID:     "j001",
		UserID:        "s001",
		EventCategory: entity.EventBriefingSingle,
		State:         domainwf.StateTeacherApprovalPending,
	}

	activity, err := f.engine.TransitionJobSearch(context.Background(), teacherSession(), TransitionCommand{
		EntityID:     "j001",
		Action:       domainwf.ActionApprove,
		CurrentState: domainwf.StateTeacherApprovalPending,
		Confirmed:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if activity.State != domainwf.StateReportPending {
		t.Errorf("expected state REPORT_PENDING, got %s", activity.State)
	}

	if len(f.historyRepo.histories) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(f.historyRepo.histories))
	}
	history := f.historyRepo.histories[0]
	if history.PreviousState != string(domainwf.StateTeacherApprovalPending) {
		t.Errorf("expected previous state TEACHER_APPROVAL_PENDING, got %s", history.PreviousState)
	}
	if history.ActorUserID != "t001" {
		t.Errorf("expected actor t001, got %s", history.ActorUserID)
	}

	// Report pending notifies the student.
	student, _ := f.notificationRepo.ListByUser(context.Background(), "s001")
	if len(student) != 1 {
		t.Errorf("expected 1 student notification, got %d", len(student))
	}
}

func TestEngineTransitionJobSearchRequiresConfirmation(t *testing.T) {
	f := newFixture()
	f.jobRepo.activities["j001"] = &entity.JobHuntActivity{
		JobHuntID: "j001",
		State:     domainwf.StateTeacherApprovalPending,
	}

	_, err := f.engine.TransitionJobSearch(context.Background(), teacherSession(), TransitionCommand{
		EntityID:     "j001",
		Action:       domainwf.ActionApprove,
		CurrentState: domainwf.StateTeacherApprovalPending,
	})
	if !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestEngineTransitionJobSearchStaleState(t *testing.T) {
	f := newFixture()
	f.jobRepo.activities["j001"] = &entity.JobHuntActivity{
		JobHuntID: "j001",
		State:     domainwf.StateReportPending,
	}

	_, err := f.engine.TransitionJobSearch(context.Background(), teacherSession(), TransitionCommand{
		EntityID:     "j001",
		Action:       domainwf.ActionApprove,
		CurrentState: domainwf.StateTeacherApprovalPending,
		Confirmed:    true,
	})
	if !errors.Is(err, ErrStaleState) {
		t.Errorf("expected ErrStaleState, got %v", err)
	}
}

func TestEngineTransitionJobSearchExpiredSession(t *testing.T) {
	f := newFixture()
	session := &auth.Session{
		UserID:    "t001",
		Role:      domainwf.RoleTeacher,
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	_, err := f.engine.TransitionJobSearch(context.Background(), session, TransitionCommand{
		EntityID:  "j001",
		Action:    domainwf.ActionApprove,
		Confirmed: true,
	})
	if !errors.Is(err, auth.ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestEngineTransitionJobSearchRosterGuard(t *testing.T) {
	f := newFixture()
	f.jobRepo.activities["j001"] = &entity.JobHuntActivity{
		JobHuntID:     "j001",
		UserID:        "s001",
		EventCategory: entity.EventBriefingSingle,
		SchoolCheck:   true,
		State:         domainwf.StateTeacherApprovalPending,
	}

	cmd := TransitionCommand{
		EntityID:     "j001",
		Action:       domainwf.ActionApprove,
		CurrentState: domainwf.StateTeacherApprovalPending,
		Confirmed:    true,
	}

	_, err := f.engine.TransitionJobSearch(context.Background(), teacherSession(), cmd)
	if !errors.Is(err, domainwf.ErrGuardFailed) {
		t.Fatalf("expected ErrGuardFailed, got %v", err)
	}

	// Once the roster check is recorded the same approve succeeds and the
	// flag is kept in step with the state.
	checked := true
	f.jobRepo.activities["j001"].SchoolCheckedFlag = &checked

	activity, err := f.engine.TransitionJobSearch(context.Background(), teacherSession(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activity.State != domainwf.StateReportPending {
		t.Errorf("expected state REPORT_PENDING, got %s", activity.State)
	}
	if activity.SchoolCheckedFlag == nil || !*activity.SchoolCheckedFlag {
		t.Error("expected roster check flag to remain set")
	}
}

func TestEngineTransitionJobSearchWithdrawClearsNotifications(t *testing.T) {
	f := newFixture()
	f.jobRepo.activities["j001"] = &entity.JobHuntActivity{
		JobHuntID:     "j001",
		UserID:        "s001",
		EventCategory: entity.EventBriefingSingle,
		State:         domainwf.StateReportPending,
	}
	f.notificationRepo.notifications = []*entity.Notification{
		{Kind: string(domainwf.KindJobSearch), EntityID: "j001", UserID: "s001"},
	}

	activity, err := f.engine.TransitionJobSearch(context.Background(), studentSession(), TransitionCommand{
		EntityID:     "j001",
		Action:       domainwf.ActionWithdraw,
		CurrentState: domainwf.StateReportPending,
		Confirmed:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activity.State != domainwf.StateWithdrawn {
		t.Errorf("expected state WITHDRAWN, got %s", activity.State)
	}
	if len(f.notificationRepo.notifications) != 0 {
		t.Errorf("expected notifications cleared, got %d", len(f.notificationRepo.notifications))
	}
}

func TestEngineTransitionCertificateReceivePayment(t *testing.T) {
	f := newFixture()
	f.certificateRepo.requests["cert001"] = &entity.CertificateRequest{
		CertificateIssueID: "cert001",
		UserID:             "s001",
		Media:              entity.MediaElectronic,
		State:              domainwf.StatePaymentPending,
	}

	request, err := f.engine.TransitionCertificate(context.Background(), clerkSession(), TransitionCommand{
		EntityID:     "cert001",
		Action:       domainwf.ActionReceivePayment,
		CurrentState: domainwf.StatePaymentPending,
		Confirmed:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if request.State != domainwf.StateIssuancePending {
		t.Errorf("expected state ISSUANCE_PENDING, got %s", request.State)
	}
	if request.OfficeUserID != "c001" {
		t.Errorf("expected office user c001, got %s", request.OfficeUserID)
	}

	// The handling clerk holds the pending-action row from here on.
	clerk, _ := f.notificationRepo.ListByUser(context.Background(), "c001")
	if len(clerk) != 1 {
		t.Errorf("expected 1 clerk notification, got %d", len(clerk))
	}
}

func TestEngineTransitionCertificateApprovalNotifiesClerks(t *testing.T) {
	f := newFixture()
	f.certificateRepo.requests["cert001"] = &entity.CertificateRequest{
		CertificateIssueID: "cert001",
		UserID:             "s001",
		Media:              entity.MediaPaper,
		State:              domainwf.StateTeacherApprovalPending,
	}

	request, err := f.engine.TransitionCertificate(context.Background(), teacherSession(), TransitionCommand{
		EntityID:     "cert001",
		Action:       domainwf.ActionApprove,
		CurrentState: domainwf.StateTeacherApprovalPending,
		Confirmed:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if request.State != domainwf.StatePaymentPending {
		t.Errorf("expected state PAYMENT_PENDING, got %s", request.State)
	}

	// Payment pending notifies the student plus every clerk.
	if len(f.notificationRepo.notifications) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(f.notificationRepo.notifications))
	}
}

func TestEngineTransitionCertificateUpdateFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.certificateRepo.updateErr = errors.New("update failed")
	f.certificateRepo.requests["cert001"] = &entity.CertificateRequest{
		CertificateIssueID: "cert001",
		UserID:             "s001",
		Media:              entity.MediaPaper,
		State:              domainwf.StateTeacherApprovalPending,
	}

	_, err := f.engine.TransitionCertificate(context.Background(), teacherSession(), TransitionCommand{
		EntityID:     "cert001",
		Action:       domainwf.ActionApprove,
		CurrentState: domainwf.StateTeacherApprovalPending,
		Confirmed:    true,
	})
	if err == nil {
		t.Error("expected error when update fails")
	}
	if len(f.historyRepo.histories) != 0 {
		t.Errorf("expected no history records, got %d", len(f.historyRepo.histories))
	}
}

func TestEnginePermittedJobSearchActions(t *testing.T) {
	f := newFixture()
	f.jobRepo.activities["j001"] = &entity.JobHuntActivity{
		JobHuntID:     "j001",
		UserID:        "s001",
		EventCategory: entity.EventBriefingSingle,
		SchoolCheck:   true,
		State:         domainwf.StateTeacherApprovalPending,
	}

	// Roster check outstanding, so approve is withheld but return remains.
	actions, err := f.engine.PermittedJobSearchActions(context.Background(), teacherSession(), "j001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(actions) != 1 || actions[0] != domainwf.ActionReturn {
		t.Errorf("expected only return, got %v", actions)
	}

	checked := true
	f.jobRepo.activities["j001"].SchoolCheckedFlag = &checked

	actions, err = f.engine.PermittedJobSearchActions(context.Background(), teacherSession(), "j001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(actions) != 2 || actions[0] != domainwf.ActionApprove || actions[1] != domainwf.ActionReturn {
		t.Errorf("expected approve and return, got %v", actions)
	}
}

func TestEnginePermittedCertificateActionsByRole(t *testing.T) {
	f := newFixture()
	f.certificateRepo.requests["cert001"] = &entity.CertificateRequest{
		CertificateIssueID: "cert001",
		UserID:             "s001",
		Media:              entity.MediaPaper,
		State:              domainwf.StatePaymentPending,
	}

	clerk, err := f.engine.PermittedCertificateActions(context.Background(), clerkSession(), "cert001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clerk) != 1 || clerk[0] != domainwf.ActionReceivePayment {
		t.Errorf("expected receive-payment for clerk, got %v", clerk)
	}

	student, err := f.engine.PermittedCertificateActions(context.Background(), studentSession(), "cert001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(student) != 0 {
		t.Errorf("expected no student actions after approval, got %v", student)
	}

	teacher, err := f.engine.PermittedCertificateActions(context.Background(), teacherSession(), "cert001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(teacher) != 0 {
		t.Errorf("expected no teacher actions, got %v", teacher)
	}
}
