package entity

import (
	"time"

	"github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// User is a portal account. Role lives on the account, never on the
// workflow entities it acts upon.
type User struct {
	UserID        string
	PasswordHash  string
	Name          string
	Role          workflow.Role
	Class         string
	ClassNumber   int
	SchoolNumber  int
	TeacherUserID string // homeroom teacher of a student account, "" otherwise
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
