package booking

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) Webhook {
	t.Helper()
	var hook Webhook
	if err := json.Unmarshal([]byte(raw), &hook); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return hook
}

func TestAttendeeEmailPayloadAttendees(t *testing.T) {
	hook := decode(t, `{"payload":{"attendees":[{"email":"Dana@Prospect.com","name":"Dana"}]}}`)
	if got := hook.AttendeeEmail(); got != "dana@prospect.com" {
		t.Fatalf("got %q", got)
	}
}

func TestAttendeeEmailTopLevelAttendees(t *testing.T) {
	hook := decode(t, `{"attendees":[{"email":"TOP@prospect.com"}]}`)
	if got := hook.AttendeeEmail(); got != "top@prospect.com" {
		t.Fatalf("got %q", got)
	}
}

func TestAttendeeEmailResponsesValue(t *testing.T) {
	hook := decode(t, `{"payload":{"responses":{"email":{"value":"Resp@prospect.com"}}}}`)
	if got := hook.AttendeeEmail(); got != "resp@prospect.com" {
		t.Fatalf("got %q", got)
	}
}

func TestAttendeeEmailInviteeResource(t *testing.T) {
	hook := decode(t, `{"payload":{"resource":{"invitee":{"email":"Inv@prospect.com"}}}}`)
	if got := hook.AttendeeEmail(); got != "inv@prospect.com" {
		t.Fatalf("got %q", got)
	}
}

func TestAttendeeEmailPrecedence(t *testing.T) {
	hook := decode(t, `{
		"payload": {
			"attendees": [{"email": "first@prospect.com"}],
			"responses": {"email": {"value": "second@prospect.com"}}
		},
		"attendees": [{"email": "third@prospect.com"}]
	}`)
	if got := hook.AttendeeEmail(); got != "first@prospect.com" {
		t.Fatalf("got %q, payload attendees must win", got)
	}
}

func TestAttendeeEmailMissing(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`{"payload":{}}`,
		`{"payload":{"attendees":[]}}`,
		`{"payload":{"attendees":[{"name":"no email"}]}}`,
		`{"payload":{"responses":{"email":{}}}}`,
	} {
		hook := decode(t, raw)
		if got := hook.AttendeeEmail(); got != "" {
			t.Fatalf("AttendeeEmail(%s) = %q, want empty", raw, got)
		}
	}
}

func TestTrigger(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"triggerEvent":"BOOKING_CANCELLED"}`, "BOOKING_CANCELLED"},
		{`{"event":"BOOKING_RESCHEDULED"}`, "BOOKING_RESCHEDULED"},
		{`{"triggerEvent":"A","event":"B"}`, "A"},
		{`{}`, "BOOKING_CREATED"},
	}
	for _, tt := range tests {
		if got := decode(t, tt.raw).Trigger(); got != tt.want {
			t.Fatalf("Trigger(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
