package domain

type EventKind string

const (
	EventCreated               EventKind = "created"
	EventAssigned              EventKind = "assigned"
	EventCustomerStatusChanged EventKind = "customer_status_changed"
	EventEngineerStatusChanged EventKind = "engineer_status_changed"
)

type Event struct {
	Kind EventKind
	// Status is the display status for status events.
	Status string
}

// Classify returns the notable events of one ticket change in the order
// they are applied. A nil before is a creation, a nil after a deletion.
// Each rule is evaluated on its own; none suppresses another.
func Classify(before, after *Ticket) []Event {
	if after == nil {
		return nil
	}

	var events []Event
	if before == nil {
		events = append(events, Event{Kind: EventCreated})
	}
	if after.AssignedEmployee != "" && (before == nil || before.AssignedEmployee != after.AssignedEmployee) {
		events = append(events, Event{Kind: EventAssigned})
	}
	if before == nil {
		return events
	}

	if before.EngineerStatus != after.EngineerStatus || before.AdminStatus != after.AdminStatus {
		events = append(events, Event{Kind: EventCustomerStatusChanged, Status: after.DisplayStatus()})
	}
	if before.EngineerStatus != after.EngineerStatus {
		events = append(events, Event{Kind: EventEngineerStatusChanged, Status: after.EngineerStatus})
	}
	return events
}
