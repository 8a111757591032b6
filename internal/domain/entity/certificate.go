package entity

import (
	"errors"
	"time"

	"github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// Media is the delivery medium of an issued certificate.
type Media string

const (
	MediaPaper      Media = "PAPER"
	MediaElectronic Media = "ELECTRONIC"
	MediaMail       Media = "MAIL"
)

// IsValid returns true for a known media value.
func (m Media) IsValid() bool {
	return m == MediaPaper || m == MediaElectronic || m == MediaMail
}

// The four certificate types every request carries, in fixed order.
const (
	CertificateEnrollment         = "enrollment"
	CertificateTranscript         = "transcript"
	CertificateExpectedGraduation = "expected-graduation"
	CertificateHealthCheck        = "health-check"
)

// CertificateLineItems is the fixed item order of a request form.
var CertificateLineItems = []string{
	CertificateEnrollment,
	CertificateTranscript,
	CertificateExpectedGraduation,
	CertificateHealthCheck,
}

// MaxCopiesPerItem caps the copies of one certificate type per request.
const MaxCopiesPerItem = 10

// CertificateLineItem is one row of the request form.
type CertificateLineItem struct {
	CertificateID   string
	CertificateName string
	Count           int
}

// MailingAddress holds the recipient fields required for mail delivery.
type MailingAddress struct {
	LastName      string
	FirstName     string
	LastNameKana  string
	FirstNameKana string
	ZipCode       string // 7 digits
	Address       string
	AfterAddress  string
}

// CertificateRequest is one certificate-issuance application progressing
// through the approval workflow.
type CertificateRequest struct {
	CertificateIssueID string
	UserID             string
	OfficeUserID       string // clerk who received payment, "" before then
	CertificateList    []CertificateLineItem
	Media              Media
	State              workflow.State
	Mailing            *MailingAddress // nil unless Media == MediaMail
	TotalAmount        int
	ReNotifyFlag       bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

var (
	ErrLineItemCount    = errors.New("request must carry exactly four line items")
	ErrCopiesOutOfRange = errors.New("copies per certificate must be between 0 and 10")
	ErrNoCopies         = errors.New("at least one certificate must be requested")
	ErrMailingRequired  = errors.New("mailing address required for mail delivery")
	ErrInvalidMedia     = errors.New("unknown delivery media")
)

// Validate checks the request form invariants.
func (r *CertificateRequest) Validate() error {
	if !r.Media.IsValid() {
		return ErrInvalidMedia
	}
	if len(r.CertificateList) != len(CertificateLineItems) {
		return ErrLineItemCount
	}
	total := 0
	for _, item := range r.CertificateList {
		if item.Count < 0 || item.Count > MaxCopiesPerItem {
			return ErrCopiesOutOfRange
		}
		total += item.Count
	}
	if total == 0 {
		return ErrNoCopies
	}
	if r.Media == MediaMail && r.Mailing == nil {
		return ErrMailingRequired
	}
	return nil
}
