package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
)

type stubJobRepo struct {
	activities []*entity.JobHuntActivity
	flagged    []string
}

func (r *stubJobRepo) Create(ctx context.Context, a *entity.JobHuntActivity) error  { return nil }
func (r *stubJobRepo) GetByID(ctx context.Context, id string) (*entity.JobHuntActivity, error) {
	return nil, nil
}
func (r *stubJobRepo) Update(ctx context.Context, a *entity.JobHuntActivity) error { return nil }
func (r *stubJobRepo) UpdateState(ctx context.Context, id string, s workflow.State) error {
	return nil
}
func (r *stubJobRepo) SetSchoolChecked(ctx context.Context, id string, checked bool) error {
	return nil
}
func (r *stubJobRepo) SetReport(ctx context.Context, id, content string, result entity.Result, predicted string) error {
	return nil
}
func (r *stubJobRepo) SetReNotify(ctx context.Context, id string, flag bool) error {
	r.flagged = append(r.flagged, id)
	return nil
}
func (r *stubJobRepo) Delete(ctx context.Context, id string) error { return nil }
func (r *stubJobRepo) ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	return nil, nil
}
func (r *stubJobRepo) ListAll(ctx context.Context, includeFinished bool) ([]*entity.JobHuntActivity, error) {
	return r.activities, nil
}

type stubCertificateRepo struct {
	requests []*entity.CertificateRequest
	flagged  []string
}

func (r *stubCertificateRepo) Create(ctx context.Context, c *entity.CertificateRequest) error {
	return nil
}
func (r *stubCertificateRepo) GetByID(ctx context.Context, id string) (*entity.CertificateRequest, error) {
	return nil, nil
}
func (r *stubCertificateRepo) Update(ctx context.Context, c *entity.CertificateRequest) error {
	return nil
}
func (r *stubCertificateRepo) UpdateState(ctx context.Context, id string, s workflow.State) error {
	return nil
}
func (r *stubCertificateRepo) SetOfficeUser(ctx context.Context, id, officeUserID string) error {
	return nil
}
func (r *stubCertificateRepo) SetReNotify(ctx context.Context, id string, flag bool) error {
	r.flagged = append(r.flagged, id)
	return nil
}
func (r *stubCertificateRepo) Delete(ctx context.Context, id string) error { return nil }
func (r *stubCertificateRepo) ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.CertificateRequest, error) {
	return nil, nil
}
func (r *stubCertificateRepo) ListAll(ctx context.Context, includeFinished bool) ([]*entity.CertificateRequest, error) {
	return r.requests, nil
}

type stubNotificationRepo struct {
	flagged []string
}

func (r *stubNotificationRepo) Insert(ctx context.Context, n *entity.Notification) error {
	return nil
}
func (r *stubNotificationRepo) DeleteForEntity(ctx context.Context, kind workflow.Kind, entityID string) error {
	return nil
}
func (r *stubNotificationRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error) {
	return nil, nil
}
func (r *stubNotificationRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	return 0, nil
}
func (r *stubNotificationRepo) SetReNotifyForEntity(ctx context.Context, kind workflow.Kind, entityID string) error {
	r.flagged = append(r.flagged, entityID)
	return nil
}

func TestReNotifyWorker_Sweep(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-100 * time.Hour)
	fresh := now.Add(-1 * time.Hour)

	jobRepo := &stubJobRepo{
		activities: []*entity.JobHuntActivity{
			// stale and awaiting a report: flagged
			{JobHuntID: "j-stale", State: workflow.StateReportPending, UpdatedAt: stale},
			// stale but awaiting approval: the teacher is the laggard, not the student
			{JobHuntID: "j-approval", State: workflow.StateTeacherApprovalPending, UpdatedAt: stale},
			// fresh: untouched
			{JobHuntID: "j-fresh", State: workflow.StateReportPending, UpdatedAt: fresh},
			// already flagged: not flagged twice
			{JobHuntID: "j-done", State: workflow.StateReportPending, UpdatedAt: stale, ReNotifyFlag: true},
		},
	}
	certificateRepo := &stubCertificateRepo{
		requests: []*entity.CertificateRequest{
			{CertificateIssueID: "c-stale", State: workflow.StatePaymentPending, UpdatedAt: stale},
			{CertificateIssueID: "c-fresh", State: workflow.StatePaymentPending, UpdatedAt: fresh},
			{CertificateIssueID: "c-issued", State: workflow.StateIssuancePending, UpdatedAt: stale},
		},
	}
	notificationRepo := &stubNotificationRepo{}

	w := NewReNotifyWorker(DefaultReNotifyConfig(), jobRepo, certificateRepo, notificationRepo, zap.NewNop())
	w.now = func() time.Time { return now }

	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, []string{"j-stale"}, jobRepo.flagged)
	assert.Equal(t, []string{"c-stale"}, certificateRepo.flagged)
	assert.ElementsMatch(t, []string{"j-stale", "c-stale"}, notificationRepo.flagged)
}

func TestManager_StartStop(t *testing.T) {
	manager := NewManager(zap.NewNop())
	jobRepo := &stubJobRepo{}
	certificateRepo := &stubCertificateRepo{}
	notificationRepo := &stubNotificationRepo{}

	w := NewReNotifyWorker(ReNotifyConfig{
		SweepInterval: time.Hour,
		StaleAfter:    time.Hour,
	}, jobRepo, certificateRepo, notificationRepo, zap.NewNop())
	manager.Register(w)

	require.NoError(t, manager.StartAll(context.Background()))
	assert.True(t, manager.IsRunning())

	require.NoError(t, manager.StopAll())
	assert.False(t, manager.IsRunning())
}
