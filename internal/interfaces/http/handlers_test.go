package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/application/service"
	appworkflow "github.com/jobpal/jobpal-server/internal/application/workflow"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockAuthService struct {
	loginFunc func(ctx context.Context, userID, password string) (*service.LoginResult, error)
}

func (m *mockAuthService) Login(ctx context.Context, userID, password string) (*service.LoginResult, error) {
	return m.loginFunc(ctx, userID, password)
}

type mockJobService struct {
	submitFunc    func(ctx context.Context, session *auth.Session, input service.NewActivityInput) (*entity.JobHuntActivity, error)
	listFunc      func(ctx context.Context, session *auth.Session, includeFinished bool) ([]*entity.JobHuntActivity, error)
	getDetailFunc func(ctx context.Context, session *auth.Session, jobHuntID string) (*service.ActivityDetail, error)
}

func (m *mockJobService) Submit(ctx context.Context, session *auth.Session, input service.NewActivityInput) (*entity.JobHuntActivity, error) {
	return m.submitFunc(ctx, session, input)
}
func (m *mockJobService) Update(ctx context.Context, session *auth.Session, jobHuntID string, input service.NewActivityInput) (*entity.JobHuntActivity, error) {
	return nil, nil
}
func (m *mockJobService) Resubmit(ctx context.Context, session *auth.Session, jobHuntID string) (*entity.JobHuntActivity, error) {
	return nil, nil
}
func (m *mockJobService) SubmitReport(ctx context.Context, session *auth.Session, jobHuntID, content string, result entity.Result) (*entity.JobHuntActivity, error) {
	return nil, nil
}
func (m *mockJobService) SubmitExamReport(ctx context.Context, session *auth.Session, report *entity.ExamReport) error {
	return nil
}
func (m *mockJobService) RecordRosterCheck(ctx context.Context, session *auth.Session, jobHuntID string) error {
	return nil
}
func (m *mockJobService) Delete(ctx context.Context, session *auth.Session, jobHuntID string) error {
	return nil
}
func (m *mockJobService) GetDetail(ctx context.Context, session *auth.Session, jobHuntID string) (*service.ActivityDetail, error) {
	return m.getDetailFunc(ctx, session, jobHuntID)
}
func (m *mockJobService) List(ctx context.Context, session *auth.Session, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	return m.listFunc(ctx, session, includeFinished)
}

type mockCertificateService struct {
	ratesFunc func(ctx context.Context) (*entity.PostalRateTable, error)
}

func (m *mockCertificateService) Submit(ctx context.Context, session *auth.Session, input service.NewCertificateInput) (*entity.CertificateRequest, error) {
	return nil, nil
}
func (m *mockCertificateService) Update(ctx context.Context, session *auth.Session, certificateIssueID string, input service.NewCertificateInput) (*entity.CertificateRequest, error) {
	return nil, nil
}
func (m *mockCertificateService) Resubmit(ctx context.Context, session *auth.Session, certificateIssueID string) (*entity.CertificateRequest, error) {
	return nil, nil
}
func (m *mockCertificateService) Delete(ctx context.Context, session *auth.Session, certificateIssueID string) error {
	return nil
}
func (m *mockCertificateService) GetDetail(ctx context.Context, session *auth.Session, certificateIssueID string) (*service.CertificateDetail, error) {
	return nil, nil
}
func (m *mockCertificateService) List(ctx context.Context, session *auth.Session, includeFinished bool) ([]*entity.CertificateRequest, error) {
	return nil, nil
}
func (m *mockCertificateService) GetPostalRates(ctx context.Context) (*entity.PostalRateTable, error) {
	return m.ratesFunc(ctx)
}

type mockNotificationService struct {
	count int
}

func (m *mockNotificationService) ListAlerts(ctx context.Context, session *auth.Session) ([]*entity.Notification, error) {
	return nil, nil
}
func (m *mockNotificationService) CountAlerts(ctx context.Context, session *auth.Session) (int, error) {
	return m.count, nil
}

type mockExportService struct{}

func (m *mockExportService) ExportActivityBook(ctx context.Context, session *auth.Session) ([]byte, error) {
	return []byte("xlsx"), nil
}

type mockEngine struct {
	transitionJobFunc func(ctx context.Context, session *auth.Session, cmd appworkflow.TransitionCommand) (*entity.JobHuntActivity, error)
	actionsFunc       func(ctx context.Context, session *auth.Session, jobHuntID string) ([]domainwf.Action, error)
}

func (m *mockEngine) TransitionJobSearch(ctx context.Context, session *auth.Session, cmd appworkflow.TransitionCommand) (*entity.JobHuntActivity, error) {
	return m.transitionJobFunc(ctx, session, cmd)
}
func (m *mockEngine) TransitionCertificate(ctx context.Context, session *auth.Session, cmd appworkflow.TransitionCommand) (*entity.CertificateRequest, error) {
	return nil, nil
}
func (m *mockEngine) PermittedJobSearchActions(ctx context.Context, session *auth.Session, jobHuntID string) ([]domainwf.Action, error) {
	return m.actionsFunc(ctx, session, jobHuntID)
}
func (m *mockEngine) PermittedCertificateActions(ctx context.Context, session *auth.Session, certificateIssueID string) ([]domainwf.Action, error) {
	return nil, nil
}

type mockAddressLookup struct{}

func (m *mockAddressLookup) Lookup(ctx context.Context, zipCode string) (*port.Address, error) {
	return &port.Address{ZipCode: zipCode, Prefecture: "Hokkaido", City: "Sapporo"}, nil
}

type serverFixture struct {
	server *Server
	tokens *auth.TokenManager
	auth   *mockAuthService
	job    *mockJobService
	cert   *mockCertificateService
	alerts *mockNotificationService
	engine *mockEngine
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	require.NoError(t, RegisterValidations())

	f := &serverFixture{
		tokens: auth.NewTokenManager("test-secret", time.Hour),
		auth:   &mockAuthService{},
		job:    &mockJobService{},
		cert:   &mockCertificateService{},
		alerts: &mockNotificationService{},
		engine: &mockEngine{},
	}
	f.server = NewServer(
		DefaultServerConfig(),
		f.auth,
		f.job,
		f.cert,
		f.alerts,
		&mockExportService{},
		f.engine,
		&mockAddressLookup{},
		f.tokens,
		nopLogger{},
	)
	return f
}

func (f *serverFixture) bearer(t *testing.T, userID string, role domainwf.Role) string {
	t.Helper()
	token, err := f.tokens.Issue(userID, role, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *serverFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	w := httptest.NewRecorder()
	f.server.Router().ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLogin(t *testing.T) {
	f := newServerFixture(t)
	f.auth.loginFunc = func(ctx context.Context, userID, password string) (*service.LoginResult, error) {
		if userID == "s001" && password == "secret" {
			return &service.LoginResult{
				Token: "tok",
				User:  &entity.User{UserID: "s001", Name: "Sato Taro", Role: domainwf.RoleStudent},
			}, nil
		}
		return nil, service.ErrBadCredentials
	}

	w := f.do(t, http.MethodPost, "/api/login", "", LoginRequest{UserID: "s001", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	assert.Equal(t, "200", resp.ResponseCode)

	w = f.do(t, http.MethodPost, "/api/login", "", LoginRequest{UserID: "s001", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodGet, "/api/alerts/count", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/alerts/count", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCountAlerts(t *testing.T) {
	f := newServerFixture(t)
	f.alerts.count = 3

	w := f.do(t, http.MethodGet, "/api/alerts/count", f.bearer(t, "s001", domainwf.RoleStudent), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	body, ok := resp.Body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), body["count"])
}

func TestCreateActivity(t *testing.T) {
	f := newServerFixture(t)
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	f.job.submitFunc = func(ctx context.Context, session *auth.Session, input service.NewActivityInput) (*entity.JobHuntActivity, error) {
		assert.Equal(t, "s001", session.UserID)
		assert.Equal(t, "Hokkai Systems", input.Company)
		return &entity.JobHuntActivity{
			JobHuntID:  "j-1",
			UserID:     session.UserID,
			Company:    input.Company,
			StartTime:  input.StartTime,
			FinishTime: input.FinishTime,
			State:      domainwf.StateTeacherApprovalPending,
		}, nil
	}

	w := f.do(t, http.MethodPost, "/api/activities", f.bearer(t, "s001", domainwf.RoleStudent), ActivityRequest{
		EventCategory: int(entity.EventInterviewExam),
		Company:       "Hokkai Systems",
		Location:      "Sapporo",
		StartTime:     start,
		FinishTime:    start.Add(3 * time.Hour),
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	body, ok := resp.Body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "j-1", body["jobHuntId"])
	assert.Equal(t, string(domainwf.StateTeacherApprovalPending), body["state"])
}

func TestCreateActivity_RejectsInvalidPayload(t *testing.T) {
	f := newServerFixture(t)

	// company missing
	w := f.do(t, http.MethodPost, "/api/activities", f.bearer(t, "s001", domainwf.RoleStudent), ActivityRequest{
		Location:   "Sapporo",
		StartTime:  time.Now(),
		FinishTime: time.Now(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransitionActivity_MapsEngineErrors(t *testing.T) {
	f := newServerFixture(t)
	f.engine.transitionJobFunc = func(ctx context.Context, session *auth.Session, cmd appworkflow.TransitionCommand) (*entity.JobHuntActivity, error) {
		return nil, appworkflow.ErrStaleState
	}

	w := f.do(t, http.MethodPut, "/api/activities/j-1/transition", f.bearer(t, "t001", domainwf.RoleTeacher), TransitionRequest{
		Action:       int(domainwf.ActionApprove),
		CurrentState: string(domainwf.StateTeacherApprovalPending),
		Confirmed:    true,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestActivityActions(t *testing.T) {
	f := newServerFixture(t)
	f.engine.actionsFunc = func(ctx context.Context, session *auth.Session, jobHuntID string) ([]domainwf.Action, error) {
		assert.Equal(t, "j-1", jobHuntID)
		return []domainwf.Action{domainwf.ActionApprove, domainwf.ActionReturn}, nil
	}

	w := f.do(t, http.MethodGet, "/api/activities/j-1/actions", f.bearer(t, "t001", domainwf.RoleTeacher), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	body, ok := resp.Body.([]interface{})
	require.True(t, ok)
	require.Len(t, body, 2)

	first, ok := body[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "approve", first["name"])
}

func TestGetPostalRates(t *testing.T) {
	f := newServerFixture(t)
	f.cert.ratesFunc = func(ctx context.Context) (*entity.PostalRateTable, error) {
		return &entity.PostalRateTable{
			CertificateRates: []entity.CertificateRate{
				{CertificateID: entity.CertificateEnrollment, Fee: 200, Weight: 5},
			},
			PostalMaxWeight: 50,
			PostalFee:       120,
		}, nil
	}

	w := f.do(t, http.MethodGet, "/api/postal-rates", f.bearer(t, "s001", domainwf.RoleStudent), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	body, ok := resp.Body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(120), body["postalFee"])
}

func TestLookupAddress(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodGet, "/api/address?zipcode=0600001", f.bearer(t, "s001", domainwf.RoleStudent), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeEnvelope(t, w)
	body, ok := resp.Body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Hokkaido", body["prefecture"])

	w = f.do(t, http.MethodGet, "/api/address", f.bearer(t, "s001", domainwf.RoleStudent), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportActivityBook(t *testing.T) {
	f := newServerFixture(t)

	w := f.do(t, http.MethodGet, "/api/export/activities", f.bearer(t, "a001", domainwf.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "activity_statistics.xlsx")
	assert.Equal(t, "xlsx", w.Body.String())
}
