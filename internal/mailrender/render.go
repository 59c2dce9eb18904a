package mailrender

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// RenderHTML produces the HTML email body: sanitized content, a greeting
// when the client's name is known, the system-controlled CTA block with the
// meeting link, and the signature. The embedded timestamp marker exists for
// log correlation only; everything else is deterministic for identical
// inputs.
func RenderHTML(body, meetingURL string, sig Signature, clientName string, isReply bool, personaNames ...string) string {
	cleanBody := Sanitize(body, personaNames...)
	marker := time.Now().UnixMilli()

	greeting := ""
	if clientName != "" {
		greeting = fmt.Sprintf("Hi %s,<br/><br/>", html.EscapeString(clientName))
	}

	htmlBody := strings.ReplaceAll(html.EscapeString(cleanBody), "\n", "<br/>")

	ctaText := "Book a Meeting"
	linkText := "Or copy this link"
	if isReply {
		ctaText = "Schedule Your Meeting"
		linkText = "Click here to schedule"
	}
	escapedURL := html.EscapeString(meetingURL)
	cta := fmt.Sprintf(`
<!-- Message %d -->
<div style="margin: 30px 0;">
  <a href="%s" style="display:inline-block;background-color:#000;color:#fff;padding:12px 24px;text-decoration:none;border-radius:6px;font-weight:500;">%s</a>
</div>
<p style="font-size:14px;color:#666;">%s: <a href="%s">%s</a></p>`,
		marker, escapedURL, ctaText, linkText, escapedURL, escapedURL)

	return greeting + htmlBody + cta + signatureHTML(sig, marker)
}

// RenderText produces the plain-text projection: sanitized content, a
// greeting, the literal meeting URL, and the signature's text form.
func RenderText(body, meetingURL string, sig Signature, clientName string, personaNames ...string) string {
	cleanBody := Sanitize(body, personaNames...)

	greeting := ""
	if clientName != "" {
		greeting = fmt.Sprintf("Hi %s,\n\n", clientName)
	}

	cta := fmt.Sprintf("\n\nBook a meeting here: %s\n", meetingURL)

	sigText := signatureText(sig)
	if sigText != "" {
		sigText = "\n" + sigText
	}

	return greeting + cleanBody + cta + sigText
}
