package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateTeacherApprovalPending, false},
		{StateCourseOwnerApprovalPending, false},
		{StateApplicationReturned, false},
		{StateExamReportPending, false},
		{StateReportApprovalPending, false},
		{StatePaymentPending, false},
		{StateIssued, false},
		{StateCompleted, true},
		{StateWithdrawn, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_Stage(t *testing.T) {
	tests := []struct {
		state    State
		expected Stage
	}{
		{StateTeacherApprovalPending, StageApprovalPending},
		{StateCourseOwnerApprovalPending, StageApprovalPending},
		{StateExamReportApprovalPending, StageApprovalPending},
		{StateReportApprovalPending, StageApprovalPending},
		{StateExamReportPending, StageReportPending},
		{StateReportPending, StageReportPending},
		{StateApplicationReturned, StageReturned},
		{StateExamReportReturned, StageReturned},
		{StateReportReturned, StageReturned},
		{StateReturned, StageReturned},
		{StatePaymentPending, StagePaymentPending},
		{StateCompleted, StageCompleted},
		{StateWithdrawn, StageWithdrawn},
		{State("INVALID"), Stage("")},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Stage(); got != tt.expected {
				t.Errorf("State.Stage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_Validity(t *testing.T) {
	tests := []struct {
		name             string
		state            State
		validJob         bool
		validCertificate bool
	}{
		{"job-only state", StateExamReportPending, true, false},
		{"certificate-only state", StatePaymentPending, false, true},
		{"shared initial state", StateTeacherApprovalPending, true, true},
		{"shared terminal state", StateWithdrawn, true, true},
		{"invalid state", State("INVALID"), false, false},
		{"empty state", State(""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValidJobState(); got != tt.validJob {
				t.Errorf("State.IsValidJobState() = %v, want %v", got, tt.validJob)
			}
			if got := tt.state.IsValidCertificateState(); got != tt.validCertificate {
				t.Errorf("State.IsValidCertificateState() = %v, want %v", got, tt.validCertificate)
			}
		})
	}
}

func TestParseRoleClaim(t *testing.T) {
	tests := []struct {
		claim    string
		expected Role
		wantErr  bool
	}{
		{"0", RoleStudent, false},
		{"1", RoleTeacher, false},
		{"2", RoleAdmin, false},
		{"3", RoleClerk, false},
		{"4", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.claim, func(t *testing.T) {
			role, err := ParseRoleClaim(tt.claim)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRole) {
					t.Errorf("ParseRoleClaim(%q) error = %v, want ErrInvalidRole", tt.claim, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if role != tt.expected {
				t.Errorf("ParseRoleClaim(%q) = %v, want %v", tt.claim, role, tt.expected)
			}
			if role.ClaimID() != tt.claim {
				t.Errorf("Role.ClaimID() = %v, want %v", role.ClaimID(), tt.claim)
			}
		})
	}
}

func TestActionName(t *testing.T) {
	tests := []struct {
		kind     Kind
		action   Action
		expected string
	}{
		{KindJobSearch, ActionApprove, "approve"},
		{KindJobSearch, ActionCourseOwnerApprove, "course-owner approve"},
		{KindCertificate, ActionReceivePayment, "receive payment"},
		{KindCertificate, ActionMail, "mail"},
		{KindJobSearch, Action(99), ""},
		{Kind("OTHER"), ActionApprove, ""},
	}

	for _, tt := range tests {
		if got := ActionName(tt.kind, tt.action); got != tt.expected {
			t.Errorf("ActionName(%s, %d) = %q, want %q", tt.kind, tt.action, got, tt.expected)
		}
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewJobSearchBuilder()

	config := builder.Configure(StateTeacherApprovalPending)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewCertificateBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on a state outside the workflow")
		}
	}()

	builder.Configure(StateExamReportPending)
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewJobSearchBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestStateMachine_Permit(t *testing.T) {
	builder := NewJobSearchBuilder()
	builder.Configure(StateTeacherApprovalPending).
		Permit(RoleTeacher, ActionApprove, StateReportPending)

	machine := builder.Build(StateTeacherApprovalPending)
	ctx := context.Background()

	if !machine.CanFire(ctx, RoleTeacher, ActionApprove) {
		t.Error("CanFire() should return true for permitted action")
	}
	if machine.CanFire(ctx, RoleStudent, ActionApprove) {
		t.Error("CanFire() should return false for another role")
	}
	if machine.CanFire(ctx, RoleTeacher, ActionReturn) {
		t.Error("CanFire() should return false for an unconfigured action")
	}

	if err := machine.Fire(ctx, RoleTeacher, ActionApprove); err != nil {
		t.Fatalf("Fire() unexpected error: %v", err)
	}
	if machine.State() != StateReportPending {
		t.Errorf("State() = %v, want %v", machine.State(), StateReportPending)
	}
}

func TestStateMachine_FireInvalidTransition(t *testing.T) {
	builder := NewJobSearchBuilder()
	builder.Configure(StateTeacherApprovalPending).
		Permit(RoleTeacher, ActionApprove, StateReportPending)

	machine := builder.Build(StateTeacherApprovalPending)

	err := machine.Fire(context.Background(), RoleStudent, ActionApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
	if machine.State() != StateTeacherApprovalPending {
		t.Error("failed Fire() must not change state")
	}
}

func TestStateMachine_PermitIf(t *testing.T) {
	allowed := false
	builder := NewJobSearchBuilder()
	builder.Configure(StateTeacherApprovalPending).
		PermitIf(RoleTeacher, ActionApprove, StateReportPending,
			func(ctx context.Context) bool { return allowed })

	machine := builder.Build(StateTeacherApprovalPending)
	ctx := context.Background()

	if machine.CanFire(ctx, RoleTeacher, ActionApprove) {
		t.Error("CanFire() should return false while the guard rejects")
	}

	err := machine.Fire(ctx, RoleTeacher, ActionApprove)
	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want ErrGuardFailed", err)
	}

	allowed = true
	if !machine.CanFire(ctx, RoleTeacher, ActionApprove) {
		t.Error("CanFire() should return true once the guard passes")
	}
	if err := machine.Fire(ctx, RoleTeacher, ActionApprove); err != nil {
		t.Fatalf("Fire() unexpected error: %v", err)
	}
	if machine.State() != StateReportPending {
		t.Errorf("State() = %v, want %v", machine.State(), StateReportPending)
	}
}

func TestStateMachine_GuardSelectsTarget(t *testing.T) {
	// Two guarded rows on the same (role, action) choose the target.
	examEvent := true
	builder := NewJobSearchBuilder()
	builder.Configure(StateTeacherApprovalPending).
		PermitIf(RoleTeacher, ActionApprove, StateCourseOwnerApprovalPending,
			func(ctx context.Context) bool { return examEvent }).
		PermitIf(RoleTeacher, ActionApprove, StateReportPending,
			func(ctx context.Context) bool { return !examEvent })

	machine := builder.Build(StateTeacherApprovalPending)
	if err := machine.Fire(context.Background(), RoleTeacher, ActionApprove); err != nil {
		t.Fatalf("Fire() unexpected error: %v", err)
	}
	if machine.State() != StateCourseOwnerApprovalPending {
		t.Errorf("State() = %v, want %v", machine.State(), StateCourseOwnerApprovalPending)
	}

	examEvent = false
	machine = builder.Build(StateTeacherApprovalPending)
	if err := machine.Fire(context.Background(), RoleTeacher, ActionApprove); err != nil {
		t.Fatalf("Fire() unexpected error: %v", err)
	}
	if machine.State() != StateReportPending {
		t.Errorf("State() = %v, want %v", machine.State(), StateReportPending)
	}
}

func TestStateMachine_PermittedActions(t *testing.T) {
	builder := NewCertificateBuilder()
	builder.Configure(StateTeacherApprovalPending).
		Permit(RoleTeacher, ActionReturn, StateReturned).
		Permit(RoleTeacher, ActionApprove, StatePaymentPending).
		Permit(RoleStudent, ActionWithdraw, StateWithdrawn)

	machine := builder.Build(StateTeacherApprovalPending)
	ctx := context.Background()

	teacher := machine.PermittedActions(ctx, RoleTeacher)
	if len(teacher) != 2 || teacher[0] != ActionApprove || teacher[1] != ActionReturn {
		t.Errorf("PermittedActions(teacher) = %v, want [approve return]", teacher)
	}

	student := machine.PermittedActions(ctx, RoleStudent)
	if len(student) != 1 || student[0] != ActionWithdraw {
		t.Errorf("PermittedActions(student) = %v, want [withdraw]", student)
	}

	clerk := machine.PermittedActions(ctx, RoleClerk)
	if len(clerk) != 0 {
		t.Errorf("PermittedActions(clerk) = %v, want none", clerk)
	}
}

func TestBuilder_BuildIsolatesMachines(t *testing.T) {
	builder := NewJobSearchBuilder()
	builder.Configure(StateReportApprovalPending).
		Permit(RoleTeacher, ActionApprove, StateCompleted)

	first := builder.Build(StateReportApprovalPending)
	second := builder.Build(StateReportApprovalPending)

	if err := first.Fire(context.Background(), RoleTeacher, ActionApprove); err != nil {
		t.Fatalf("Fire() unexpected error: %v", err)
	}

	if second.State() != StateReportApprovalPending {
		t.Error("firing one machine must not move another built from the same builder")
	}
}
