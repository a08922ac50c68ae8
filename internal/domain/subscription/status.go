package subscription

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
	StatusDeleted Status = "DELETED"
)

var statusRank = map[Status]int{
	StatusCreated: 0,
	StatusActive:  1,
	StatusExpired: 2,
	StatusDeleted: 3,
}

func (s Status) String() string { return string(s) }

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo allows forward moves only; a status never goes back.
func (s Status) CanTransitionTo(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}
