package workflow

// State represents a workflow state in an application lifecycle.
type State string

// Job-hunting activity states. The numeric comments are the legacy state
// codes carried by the portal database (decade = stage, unit = step).
const (
	StateTeacherApprovalPending     State = "TEACHER_APPROVAL_PENDING"      // 11
	StateCourseOwnerApprovalPending State = "COURSE_OWNER_APPROVAL_PENDING" // 12
	StateApplicationReturned        State = "APPLICATION_RETURNED"          // 13
	StateExamReportPending          State = "EXAM_REPORT_PENDING"           // 21
	StateExamReportApprovalPending  State = "EXAM_REPORT_APPROVAL_PENDING"  // 22
	StateExamReportReturned         State = "EXAM_REPORT_RETURNED"          // 23
	StateReportPending              State = "REPORT_PENDING"                // 31
	StateReportApprovalPending      State = "REPORT_APPROVAL_PENDING"       // 32
	StateReportReturned             State = "REPORT_RETURNED"               // 34
)

// Certificate issuance states. TeacherApprovalPending, Completed and
// Withdrawn are shared with the job workflow.
const (
	StatePaymentPending  State = "PAYMENT_PENDING"
	StateReturned        State = "RETURNED"
	StateIssuancePending State = "ISSUANCE_PENDING"
	StateIssued          State = "ISSUED"
	StateReceivedPending State = "RECEIVED_PENDING"
)

// Terminal states common to both workflows.
const (
	StateCompleted State = "COMPLETED"
	StateWithdrawn State = "WITHDRAWN"
)

// Stage is the broad phase of a workflow spanning several role-specific
// sub-states. It replaces the portal's substring matching on state names
// ("contains ApprovalPending") with an explicit attribute.
type Stage string

const (
	StageApprovalPending Stage = "APPROVAL_PENDING"
	StageReportPending   Stage = "REPORT_PENDING"
	StageReturned        Stage = "RETURNED"
	StagePaymentPending  Stage = "PAYMENT_PENDING"
	StageIssuancePending Stage = "ISSUANCE_PENDING"
	StageIssued          Stage = "ISSUED"
	StageReceivedPending Stage = "RECEIVED_PENDING"
	StageCompleted       Stage = "COMPLETED"
	StageWithdrawn       Stage = "WITHDRAWN"
)

var stageByState = map[State]Stage{
	StateTeacherApprovalPending:     StageApprovalPending,
	StateCourseOwnerApprovalPending: StageApprovalPending,
	StateExamReportApprovalPending:  StageApprovalPending,
	StateReportApprovalPending:      StageApprovalPending,
	StateExamReportPending:          StageReportPending,
	StateReportPending:              StageReportPending,
	StateApplicationReturned:        StageReturned,
	StateExamReportReturned:         StageReturned,
	StateReportReturned:             StageReturned,
	StateReturned:                   StageReturned,
	StatePaymentPending:             StagePaymentPending,
	StateIssuancePending:            StageIssuancePending,
	StateIssued:                     StageIssued,
	StateReceivedPending:            StageReceivedPending,
	StateCompleted:                  StageCompleted,
	StateWithdrawn:                  StageWithdrawn,
}

// jobStates enumerates every state a job-hunting activity may occupy.
var jobStates = map[State]bool{
	StateTeacherApprovalPending:     true,
	StateCourseOwnerApprovalPending: true,
	StateApplicationReturned:        true,
	StateExamReportPending:          true,
	StateExamReportApprovalPending:  true,
	StateExamReportReturned:         true,
	StateReportPending:              true,
	StateReportApprovalPending:      true,
	StateReportReturned:             true,
	StateCompleted:                  true,
	StateWithdrawn:                  true,
}

// certificateStates enumerates every state a certificate request may occupy.
var certificateStates = map[State]bool{
	StateTeacherApprovalPending: true,
	StatePaymentPending:         true,
	StateReturned:               true,
	StateIssuancePending:        true,
	StateIssued:                 true,
	StateReceivedPending:        true,
	StateCompleted:              true,
	StateWithdrawn:              true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateWithdrawn: true,
}

// Stage returns the stage family of the state, or "" for unknown states.
func (s State) Stage() Stage {
	return stageByState[s]
}

// IsTerminal returns true if the state is excluded from active-item views
// and, aside from the withdrawal-after-completion quirk, ends the lifecycle.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValidJobState returns true if the state belongs to the job workflow.
func (s State) IsValidJobState() bool {
	return jobStates[s]
}

// IsValidCertificateState returns true if the state belongs to the
// certificate workflow.
func (s State) IsValidCertificateState() bool {
	return certificateStates[s]
}
