package workflow

import (
	"context"

	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// BuildJobSearchMachine creates a state machine configured for the given
// job-hunting activity. Guards close over the activity, so the machine is
// per-item and must be rebuilt after the activity changes.
func BuildJobSearchMachine(activity *entity.JobHuntActivity) domainwf.StateMachine {
	builder := domainwf.NewJobSearchBuilder()

	rosterOK := func(ctx context.Context) bool {
		return activity.RosterChecked()
	}
	examEvent := activity.EventCategory.RequiresCourseOwnerApproval()
	needsExamReport := activity.EventCategory.RequiresExamReport()

	cfg := builder.Configure(domainwf.StateTeacherApprovalPending)
	if examEvent {
		cfg.PermitIf(domainwf.RoleTeacher, domainwf.ActionApprove,
			domainwf.StateCourseOwnerApprovalPending, rosterOK)
	} else {
		cfg.PermitIf(domainwf.RoleTeacher, domainwf.ActionApprove,
			domainwf.StateReportPending, rosterOK)
	}
	cfg.
		Permit(domainwf.RoleTeacher, domainwf.ActionReturn, domainwf.StateApplicationReturned).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	courseOwnerTarget := domainwf.StateReportPending
	if needsExamReport {
		courseOwnerTarget = domainwf.StateExamReportPending
	}
	// The course owner can only approve; returning the application is the
	// homeroom teacher's call and that chance has already passed.
	builder.Configure(domainwf.StateCourseOwnerApprovalPending).
		Permit(domainwf.RoleTeacher, domainwf.ActionCourseOwnerApprove, courseOwnerTarget).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	// Report submission and resubmission move x1 states forward through the
	// service layer, not through an action here.
	builder.Configure(domainwf.StateExamReportPending).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	builder.Configure(domainwf.StateExamReportApprovalPending).
		PermitIf(domainwf.RoleTeacher, domainwf.ActionApprove, domainwf.StateReportPending, rosterOK).
		Permit(domainwf.RoleTeacher, domainwf.ActionReturn, domainwf.StateExamReportReturned).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	builder.Configure(domainwf.StateReportPending).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	// The roster guard holds on every approve, not just the first.
	builder.Configure(domainwf.StateReportApprovalPending).
		PermitIf(domainwf.RoleTeacher, domainwf.ActionApprove, domainwf.StateCompleted, rosterOK).
		Permit(domainwf.RoleTeacher, domainwf.ActionReturn, domainwf.StateReportReturned).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	// A completed activity can still be withdrawn. The legacy portal allowed
	// it and downstream statistics rely on the distinction.
	builder.Configure(domainwf.StateCompleted).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	// Returned states and WITHDRAWN have no outgoing actions; a returned
	// item re-enters the workflow through resubmission.

	return builder.Build(activity.State)
}

// BuildCertificateMachine creates a state machine configured for the given
// certificate request.
func BuildCertificateMachine(request *entity.CertificateRequest) domainwf.StateMachine {
	builder := domainwf.NewCertificateBuilder()

	mediaIs := func(m entity.Media) domainwf.GuardFunc {
		return func(ctx context.Context) bool { return request.Media == m }
	}

	builder.Configure(domainwf.StateTeacherApprovalPending).
		Permit(domainwf.RoleTeacher, domainwf.ActionApprove, domainwf.StatePaymentPending).
		Permit(domainwf.RoleTeacher, domainwf.ActionReturn, domainwf.StateReturned).
		Permit(domainwf.RoleStudent, domainwf.ActionWithdraw, domainwf.StateWithdrawn)

	// Once approved the request is committed; withdrawal is only open while
	// the teacher still holds it.
	builder.Configure(domainwf.StatePaymentPending).
		Permit(domainwf.RoleClerk, domainwf.ActionReceivePayment, domainwf.StateIssuancePending)

	// Paper certificates skip the delivery step and wait for pickup.
	builder.Configure(domainwf.StateIssuancePending).
		PermitIf(domainwf.RoleClerk, domainwf.ActionIssue, domainwf.StateReceivedPending,
			mediaIs(entity.MediaPaper)).
		PermitIf(domainwf.RoleClerk, domainwf.ActionIssue, domainwf.StateIssued,
			mediaIs(entity.MediaElectronic)).
		PermitIf(domainwf.RoleClerk, domainwf.ActionIssue, domainwf.StateIssued,
			mediaIs(entity.MediaMail))

	builder.Configure(domainwf.StateIssued).
		PermitIf(domainwf.RoleClerk, domainwf.ActionSendElectronic, domainwf.StateReceivedPending,
			mediaIs(entity.MediaElectronic)).
		PermitIf(domainwf.RoleClerk, domainwf.ActionMail, domainwf.StateReceivedPending,
			mediaIs(entity.MediaMail))

	builder.Configure(domainwf.StateReceivedPending).
		Permit(domainwf.RoleClerk, domainwf.ActionComplete, domainwf.StateCompleted)

	return builder.Build(request.State)
}
