package campaign

// Status is the lifecycle state of a campaign
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusDisputed   Status = "disputed"
	StatusCancelled  Status = "cancelled"
	StatusResolved   Status = "resolved"
)

// AllStatuses lists every campaign status
func AllStatuses() []Status {
	return []Status{
		StatusPending, StatusAccepted, StatusRejected, StatusInProgress,
		StatusCompleted, StatusDisputed, StatusCancelled, StatusResolved,
	}
}

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusInProgress,
		StatusCompleted, StatusDisputed, StatusCancelled, StatusResolved:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no participant event can move the campaign further
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled, StatusResolved:
		return true
	}
	return false
}

// IsActive reports whether the campaign still holds seller funds in escrow
func (s Status) IsActive() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusDisputed:
		return true
	}
	return false
}

// Event is something that happens to a campaign
type Event string

const (
	EventUpdate  Event = "update"
	EventAccept  Event = "accept"
	EventReject  Event = "reject"
	EventCancel  Event = "cancel"
	EventSubmit  Event = "submit"
	EventConfirm Event = "confirm"
	EventDispute Event = "dispute"
	EventResolve Event = "resolve"
)

// AllEvents lists every campaign event
func AllEvents() []Event {
	return []Event{
		EventUpdate, EventAccept, EventReject, EventCancel,
		EventSubmit, EventConfirm, EventDispute, EventResolve,
	}
}

type transition struct {
	from Status
	to   Status
}

// transitions is the complete state machine; anything not listed is illegal
var transitions = map[Event]transition{
	EventUpdate:  {from: StatusPending, to: StatusPending},
	EventAccept:  {from: StatusPending, to: StatusAccepted},
	EventReject:  {from: StatusPending, to: StatusRejected},
	EventCancel:  {from: StatusPending, to: StatusCancelled},
	EventSubmit:  {from: StatusAccepted, to: StatusInProgress},
	EventConfirm: {from: StatusInProgress, to: StatusCompleted},
	EventDispute: {from: StatusInProgress, to: StatusDisputed},
	EventResolve: {from: StatusDisputed, to: StatusResolved},
}

// RequiredStatus returns the status an event must start from
func RequiredStatus(event Event) Status {
	return transitions[event].from
}

// Next returns the status reached by applying event in status s
func (s Status) Next(event Event) (Status, bool) {
	t, ok := transitions[event]
	if !ok || t.from != s {
		return s, false
	}
	return t.to, true
}

// CanTransitionTo checks if some event moves s to target
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions {
		if t.from == s && t.to == target && t.from != t.to {
			return true
		}
	}
	return false
}
