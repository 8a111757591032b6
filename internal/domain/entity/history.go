package entity

import "time"

// StateHistory is an audit record of one workflow transition.
type StateHistory struct {
	ID            int64
	Kind          string // workflow.Kind value
	EntityID      string
	ActorUserID   string
	PreviousState string
	NewState      string
	ActionName    string
	Timestamp     time.Time
}
