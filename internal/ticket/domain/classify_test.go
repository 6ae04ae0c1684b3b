package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		before *Ticket
		after  *Ticket
		want   []EventKind
		status string
	}{
		{
			name:  "creation without assignment",
			after: &Ticket{BookingID: "B1", CustomerName: "Bob"},
			want:  []EventKind{EventCreated},
		},
		{
			name:  "creation with assignment",
			after: &Ticket{AssignedEmployee: "alice", CustomerID: "cust1"},
			want:  []EventKind{EventCreated, EventAssigned},
		},
		{
			name:   "reassignment",
			before: &Ticket{AssignedEmployee: "alice"},
			after:  &Ticket{AssignedEmployee: "carol"},
			want:   []EventKind{EventAssigned},
		},
		{
			name:   "assignment cleared",
			before: &Ticket{AssignedEmployee: "alice"},
			after:  &Ticket{},
			want:   nil,
		},
		{
			name:   "engineer status change",
			before: &Ticket{EngineerStatus: "In Progress", AdminStatus: "Open"},
			after:  &Ticket{EngineerStatus: "Completed", AdminStatus: "Open"},
			want:   []EventKind{EventCustomerStatusChanged, EventEngineerStatusChanged},
			status: "Completed",
		},
		{
			name:   "admin status change only",
			before: &Ticket{AdminStatus: "Open"},
			after:  &Ticket{AdminStatus: "Closed"},
			want:   []EventKind{EventCustomerStatusChanged},
			status: "Closed",
		},
		{
			name:   "status cleared falls back to Updated",
			before: &Ticket{AdminStatus: "Open"},
			after:  &Ticket{},
			want:   []EventKind{EventCustomerStatusChanged},
			status: "Updated",
		},
		{
			name:   "assignment and status together",
			before: &Ticket{},
			after:  &Ticket{AssignedEmployee: "alice", EngineerStatus: "Accepted"},
			want:   []EventKind{EventAssigned, EventCustomerStatusChanged, EventEngineerStatusChanged},
			status: "Accepted",
		},
		{
			name:   "unrelated edit",
			before: &Ticket{CustomerName: "Bob", AssignedEmployee: "alice"},
			after:  &Ticket{CustomerName: "Robert", AssignedEmployee: "alice"},
			want:   nil,
		},
		{
			name:   "deletion",
			before: &Ticket{AssignedEmployee: "alice"},
			want:   nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := Classify(tc.before, tc.after)
			assert.Equal(t, tc.want, kindsOf(events))
			for _, evt := range events {
				if evt.Kind == EventCustomerStatusChanged {
					assert.Equal(t, tc.status, evt.Status)
				}
			}
		})
	}
}

func TestDisplayStatusPrecedence(t *testing.T) {
	assert.Equal(t, "Completed", Ticket{EngineerStatus: "Completed", AdminStatus: "Closed"}.DisplayStatus())
	assert.Equal(t, "Closed", Ticket{AdminStatus: "Closed"}.DisplayStatus())
	assert.Equal(t, "Updated", Ticket{}.DisplayStatus())
}

func kindsOf(events []Event) []EventKind {
	var kinds []EventKind
	for _, evt := range events {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}
