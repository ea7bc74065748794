package session

// Status is the lifecycle state of an upload session. Transitions only
// move forward: PENDING -> IN_PROGRESS -> COMPLETED, with CANCELLED,
// EXPIRED and FAILED reachable from any non-terminal state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
	StatusFailed     Status = "FAILED"
)

// Active reports whether the session still accepts uploads.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired, StatusFailed:
		return true
	}
	return false
}
