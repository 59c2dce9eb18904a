package mailrender

import "net/url"

// MeetingPrefill injects name/email query parameters into the booking link
// so the provider pre-fills the attendee form. An unparsable base URL is
// returned unchanged.
func MeetingPrefill(rawURL, name, email string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return rawURL
	}
	q := u.Query()
	q.Set("name", name)
	q.Set("email", email)
	u.RawQuery = q.Encode()
	return u.String()
}
