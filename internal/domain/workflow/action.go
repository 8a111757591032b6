package workflow

// Action is the small-integer code a client sends to request a transition.
// Codes 0-2 mean the same thing in both workflows; higher codes are specific
// to one workflow, so labels are resolved per workflow kind.
type Action int

// Job-hunting activity actions.
const (
	ActionApprove            Action = 0
	ActionWithdraw           Action = 1
	ActionReturn             Action = 2
	ActionCourseOwnerApprove Action = 3
)

// Certificate issuance actions. ActionReceivePayment reuses code 3; the two
// workflows never share a state machine so the overlap is harmless.
const (
	ActionReceivePayment Action = 3
	ActionIssue          Action = 4
	ActionSendElectronic Action = 5
	ActionMail           Action = 6
	ActionComplete       Action = 7
)

// Kind distinguishes the two workflow instances where an action code alone
// is ambiguous.
type Kind string

const (
	KindJobSearch   Kind = "JOB_SEARCH"
	KindCertificate Kind = "CERTIFICATE"
)

var jobActionNames = map[Action]string{
	ActionApprove:            "approve",
	ActionWithdraw:           "withdraw",
	ActionReturn:             "return",
	ActionCourseOwnerApprove: "course-owner approve",
}

var certificateActionNames = map[Action]string{
	ActionApprove:        "approve",
	ActionWithdraw:       "withdraw",
	ActionReturn:         "return",
	ActionReceivePayment: "receive payment",
	ActionIssue:          "issue",
	ActionSendElectronic: "send",
	ActionMail:           "mail",
	ActionComplete:       "complete",
}

// ActionName returns the human-readable label for an action within a
// workflow, or "" for an unknown code. The label names the operation in the
// confirmation prompt shown before the transition is dispatched.
func ActionName(kind Kind, a Action) string {
	switch kind {
	case KindJobSearch:
		return jobActionNames[a]
	case KindCertificate:
		return certificateActionNames[a]
	}
	return ""
}
