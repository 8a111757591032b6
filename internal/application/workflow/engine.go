package workflow

import (
	"context"
	"errors"

	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

var (
	// ErrNotConfirmed is returned when a transition arrives without the
	// client-side confirmation acknowledgement.
	ErrNotConfirmed = errors.New("transition not confirmed")

	// ErrStaleState is returned when the state the client last saw no
	// longer matches the stored state.
	ErrStaleState = errors.New("item state changed since last viewed")
)

// TransitionCommand is one client request to move an item through its
// workflow.
type TransitionCommand struct {
	EntityID     string
	Action       domainwf.Action
	CurrentState domainwf.State // state the client last displayed
	Confirmed    bool           // confirmation prompt acknowledged
}

// Engine validates and executes workflow transitions for both item kinds,
// persisting the state change, its audit row and the notification rows in
// one transaction.
type Engine interface {
	// TransitionJobSearch executes a transition on a job-hunting activity
	// and returns the activity as stored afterwards.
	TransitionJobSearch(ctx context.Context, session *auth.Session, cmd TransitionCommand) (*entity.JobHuntActivity, error)

	// TransitionCertificate executes a transition on a certificate request
	// and returns the request as stored afterwards.
	TransitionCertificate(ctx context.Context, session *auth.Session, cmd TransitionCommand) (*entity.CertificateRequest, error)

	// PermittedJobSearchActions returns the actions the session's role may
	// invoke on the activity in its current state.
	PermittedJobSearchActions(ctx context.Context, session *auth.Session, jobHuntID string) ([]domainwf.Action, error)

	// PermittedCertificateActions returns the actions the session's role may
	// invoke on the certificate request in its current state.
	PermittedCertificateActions(ctx context.Context, session *auth.Session, certificateIssueID string) ([]domainwf.Action, error)
}
