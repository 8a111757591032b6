package entity

import "time"

// Notification is one pending-action row shown on a user's alert list.
// Delivery is pull-only: the portal reads these, nothing is pushed.
type Notification struct {
	ID           int64
	Kind         string // job-search or certificate, workflow.Kind value
	EntityID     string // JobHuntID or CertificateIssueID
	UserID       string // recipient
	ReNotifyFlag bool   // set by the batch sweep when the item goes stale
	CreatedAt    time.Time
}
