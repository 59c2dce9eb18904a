package conversation

import "testing"

func TestNextOnInbound(t *testing.T) {
	tests := []struct {
		name         string
		current      Status
		plain        string
		wantStatus   Status
		wantChanged  bool
		wantContinue bool
	}{
		{"new sender replies", StatusContacted, "sounds interesting, tell me more", StatusReplied, true, true},
		{"already replied", StatusReplied, "any update?", StatusReplied, true, true},
		{"booked is terminal", StatusBooked, "see you then", StatusBooked, false, false},
		{"cancelled is terminal", StatusCancelled, "sorry about that", StatusCancelled, false, false},
		{"rescheduled is terminal", StatusRescheduled, "new time works", StatusRescheduled, false, false},
		{"stopped stays stopped", StatusStopped, "please remove me", StatusStopped, false, false},
		{"out of office records without reply", StatusContacted, "I am Out of Office until Monday", StatusReplied, true, false},
		{"auto-reply detected", StatusContacted, "This is an auto-reply", StatusReplied, true, false},
		{"vacation detected", StatusContacted, "on vacation this week", StatusReplied, true, false},
		{"away until detected", StatusContacted, "away until the 3rd", StatusReplied, true, false},
		{"ooo case insensitive", StatusContacted, "OUT OF OFFICE", StatusReplied, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOnInbound(tt.current, tt.plain)
			if got.NewStatus != tt.wantStatus {
				t.Fatalf("status = %s, want %s", got.NewStatus, tt.wantStatus)
			}
			if got.StatusChanged != tt.wantChanged {
				t.Fatalf("statusChanged = %v, want %v", got.StatusChanged, tt.wantChanged)
			}
			if got.Continue != tt.wantContinue {
				t.Fatalf("continue = %v, want %v", got.Continue, tt.wantContinue)
			}
		})
	}
}

func TestIsOutOfOffice(t *testing.T) {
	positives := []string{
		"out of office",
		"OutOfOffice notification",
		"autoreply: away",
		"auto-reply enabled",
		"I'm on vacation",
		"away until next week",
	}
	for _, text := range positives {
		if !IsOutOfOffice(text) {
			t.Errorf("expected %q to match", text)
		}
	}

	negatives := []string{
		"happy to chat",
		"the office is downtown",
		"I will be away, until then ping my colleague", // "away," breaks the pattern
	}
	for _, text := range negatives {
		if IsOutOfOffice(text) {
			t.Errorf("expected %q not to match", text)
		}
	}
}

func TestNextOnBooking(t *testing.T) {
	tests := []struct {
		trigger   string
		want      Status
		wantField string
	}{
		{"BOOKING_CREATED", StatusBooked, "bookedAt"},
		{"BOOKING_CANCELLED", StatusCancelled, "cancelledAt"},
		{"BOOKING_RESCHEDULED", StatusRescheduled, "rescheduledAt"},
		{"booking_cancelled", StatusCancelled, "cancelledAt"},
		{"  BOOKING_RESCHEDULED  ", StatusRescheduled, "rescheduledAt"},
		{"MEETING_ENDED", StatusBooked, "bookedAt"},
		{"", StatusBooked, "bookedAt"},
	}
	for _, tt := range tests {
		status, field := NextOnBooking(tt.trigger)
		if status != tt.want || field != tt.wantField {
			t.Fatalf("NextOnBooking(%q) = (%s, %s), want (%s, %s)", tt.trigger, status, field, tt.want, tt.wantField)
		}
	}
}

func TestTerminalForAutomation(t *testing.T) {
	for _, s := range []Status{StatusBooked, StatusCancelled, StatusRescheduled} {
		if !s.TerminalForAutomation() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusNew, StatusContacted, StatusReplied, StatusStopped, StatusBounced} {
		if s.TerminalForAutomation() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
