package entity

import (
	"errors"
	"time"

	"github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// EventCategory classifies the job-search event a student applies for.
type EventCategory int

const (
	EventBriefingSingle EventCategory = iota // single-company briefing
	EventBriefingJoint                       // joint briefing
	EventInterviewExam
	EventAptitudeExam
	EventOtherExam
	EventInternship
	EventSeminar
	EventOfferCeremony
	EventTraining
	EventOther
)

// RequiresCourseOwnerApproval reports whether approvals for this event pass
// through the course owner before the report stage. Only exam-type events do.
func (c EventCategory) RequiresCourseOwnerApproval() bool {
	return c == EventInterviewExam || c == EventAptitudeExam || c == EventOtherExam
}

// RequiresExamReport reports whether the activity collects a structured exam
// report instead of the plain outcome report.
func (c EventCategory) RequiresExamReport() bool {
	return c.RequiresCourseOwnerApproval()
}

// LocationType is the coarse region bucket used by the activity statistics.
type LocationType int

const (
	LocationSapporo LocationType = iota
	LocationTokyo
	LocationOther
)

// TardinessAbsenceType records schedule deviations for the event.
type TardinessAbsenceType int

const (
	TardinessNone TardinessAbsenceType = iota
	TardinessLate
	TardinessEarlyLeave
	TardinessAbsent
)

// requiresTardyLeaveTime reports whether a tardy/leave timestamp must
// accompany the deviation type.
func (t TardinessAbsenceType) requiresTardyLeaveTime() bool {
	return t == TardinessLate || t == TardinessEarlyLeave
}

// Result is the reported outcome of a job-search event.
type Result int

const (
	ResultPending Result = iota
	ResultDeclined
	ResultPassed
	ResultFailed
	ResultOffer
	ResultOfferAccepted
	ResultOfferDeclined
	ResultOther
)

// JobHuntActivity is one job-search application progressing through the
// approval workflow.
type JobHuntActivity struct {
	JobHuntID            string
	UserID               string
	EventCategory        EventCategory
	Company              string
	Location             string
	LocationType         LocationType
	SchoolCheck          bool  // applied through the school; roster check gates approval
	SchoolCheckedFlag    *bool // nil until a teacher records the roster check
	StartTime            time.Time
	FinishTime           time.Time
	TardinessAbsenceType TardinessAbsenceType
	TardyLeaveTime       *time.Time
	State                workflow.State
	ReportContent        string
	Result               Result
	PredictedResult      string // staff-only model prediction, "" until reported
	Remarks              string
	ReNotifyFlag         bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

var (
	ErrTimeOrder       = errors.New("start time must not be after finish time")
	ErrTardyTimeNeeded = errors.New("tardy/leave time required for late or early-leave")
	ErrTardyTimeBounds = errors.New("tardy/leave time must fall within the event")
	ErrTardyTimeExtra  = errors.New("tardy/leave time only valid for late or early-leave")
)

// Validate checks the activity's time invariants.
func (a *JobHuntActivity) Validate() error {
	if a.StartTime.After(a.FinishTime) {
		return ErrTimeOrder
	}
	if a.TardinessAbsenceType.requiresTardyLeaveTime() {
		if a.TardyLeaveTime == nil {
			return ErrTardyTimeNeeded
		}
		if a.TardyLeaveTime.Before(a.StartTime) || a.TardyLeaveTime.After(a.FinishTime) {
			return ErrTardyTimeBounds
		}
	} else if a.TardyLeaveTime != nil {
		return ErrTardyTimeExtra
	}
	return nil
}

// RosterChecked reports whether the roster check, when required, has been
// confirmed by a teacher.
func (a *JobHuntActivity) RosterChecked() bool {
	if !a.SchoolCheck {
		return true
	}
	return a.SchoolCheckedFlag != nil && *a.SchoolCheckedFlag
}

// ExamReport is the structured report attached to exam-type activities.
type ExamReport struct {
	JobHuntID     string
	OpponentCount int
	OpponentTitle string
	ExamRound     int
	ExamCategory  string
	ExamContent   string
	Impressions   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
