package port

import (
	"context"

	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// JobSearchRepository persists job-hunting activities.
type JobSearchRepository interface {
	Create(ctx context.Context, activity *entity.JobHuntActivity) error
	GetByID(ctx context.Context, jobHuntID string) (*entity.JobHuntActivity, error)
	Update(ctx context.Context, activity *entity.JobHuntActivity) error
	UpdateState(ctx context.Context, jobHuntID string, state workflow.State) error
	SetSchoolChecked(ctx context.Context, jobHuntID string, checked bool) error
	SetReport(ctx context.Context, jobHuntID string, content string, result entity.Result, predicted string) error
	SetReNotify(ctx context.Context, jobHuntID string, flag bool) error
	Delete(ctx context.Context, jobHuntID string) error
	ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.JobHuntActivity, error)
	ListAll(ctx context.Context, includeFinished bool) ([]*entity.JobHuntActivity, error)
}

// ExamReportRepository persists structured exam reports.
type ExamReportRepository interface {
	Upsert(ctx context.Context, report *entity.ExamReport) error
	GetByJobHuntID(ctx context.Context, jobHuntID string) (*entity.ExamReport, error)
}

// CertificateRepository persists certificate-issuance requests.
type CertificateRepository interface {
	Create(ctx context.Context, request *entity.CertificateRequest) error
	GetByID(ctx context.Context, certificateIssueID string) (*entity.CertificateRequest, error)
	Update(ctx context.Context, request *entity.CertificateRequest) error
	UpdateState(ctx context.Context, certificateIssueID string, state workflow.State) error
	SetOfficeUser(ctx context.Context, certificateIssueID, officeUserID string) error
	SetReNotify(ctx context.Context, certificateIssueID string, flag bool) error
	Delete(ctx context.Context, certificateIssueID string) error
	ListByUser(ctx context.Context, userID string, includeFinished bool) ([]*entity.CertificateRequest, error)
	ListAll(ctx context.Context, includeFinished bool) ([]*entity.CertificateRequest, error)
}

// PostalRateRepository serves the read-only postal rate table.
type PostalRateRepository interface {
	Get(ctx context.Context) (*entity.PostalRateTable, error)
}

// NotificationRepository persists pending-action rows.
type NotificationRepository interface {
	Insert(ctx context.Context, notification *entity.Notification) error
	DeleteForEntity(ctx context.Context, kind workflow.Kind, entityID string) error
	ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	SetReNotifyForEntity(ctx context.Context, kind workflow.Kind, entityID string) error
}

// UserRepository reads portal accounts.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*entity.User, error)
	TeacherOf(ctx context.Context, studentUserID string) (string, error)
	ListClerkIDs(ctx context.Context) ([]string, error)
}

// HistoryRepository appends workflow transition audit rows.
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.StateHistory) error
	ListByEntity(ctx context.Context, kind workflow.Kind, entityID string) ([]*entity.StateHistory, error)
}

// TransactionManager runs a function within a database transaction carried
// on the context.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
