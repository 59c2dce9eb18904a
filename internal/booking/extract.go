package booking

import "strings"

// Webhook is the decoded scheduler payload. Providers disagree on shape, so
// everything beyond the trigger field is kept loose.
type Webhook struct {
	TriggerEvent string         `json:"triggerEvent"`
	Event        string         `json:"event"`
	Payload      map[string]any `json:"payload"`
	Attendees    []Attendee     `json:"attendees"`
}

// Attendee is a top-level attendee entry.
type Attendee struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Trigger returns the event type, defaulting to a created booking when the
// provider sends none.
func (w Webhook) Trigger() string {
	if w.TriggerEvent != "" {
		return w.TriggerEvent
	}
	if w.Event != "" {
		return w.Event
	}
	return "BOOKING_CREATED"
}

// AttendeeEmail walks the known provider shapes for the booker's address,
// in order: payload.attendees[0].email, attendees[0].email,
// payload.responses.email.value, payload.resource.invitee.email.
// Returns the lowercased address, or "" when no shape matches.
func (w Webhook) AttendeeEmail() string {
	if email := payloadAttendeeEmail(w.Payload); email != "" {
		return email
	}
	if len(w.Attendees) > 0 && w.Attendees[0].Email != "" {
		return strings.ToLower(w.Attendees[0].Email)
	}
	if email := digString(w.Payload, "responses", "email", "value"); email != "" {
		return strings.ToLower(email)
	}
	if email := digString(w.Payload, "resource", "invitee", "email"); email != "" {
		return strings.ToLower(email)
	}
	return ""
}

func payloadAttendeeEmail(payload map[string]any) string {
	attendees, ok := payload["attendees"].([]any)
	if !ok || len(attendees) == 0 {
		return ""
	}
	first, ok := attendees[0].(map[string]any)
	if !ok {
		return ""
	}
	email, _ := first["email"].(string)
	return strings.ToLower(email)
}

// digString follows a path of map keys and returns the string at the end.
func digString(m map[string]any, path ...string) string {
	current := m
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			return ""
		}
		if i == len(path)-1 {
			s, _ := value.(string)
			return s
		}
		current, ok = value.(map[string]any)
		if !ok {
			return ""
		}
	}
	return ""
}
