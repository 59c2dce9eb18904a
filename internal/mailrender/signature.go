package mailrender

import (
	"fmt"
	"html"
	"strings"

	"outreach_backend/internal/tenant"
)

// Signature is the tagged union of an agent's signature configuration.
type Signature interface {
	isSignature()
}

// PlainTextSignature is a plain-text signature block.
type PlainTextSignature string

func (PlainTextSignature) isSignature() {}

// RichHTMLSignature is an HTML signature with an optional image URL
// substituted for the {imageUrl} token.
type RichHTMLSignature struct {
	HTML     string
	ImageURL string
}

func (RichHTMLSignature) isSignature() {}

// SignatureForAgent picks the configured signature variant.
func SignatureForAgent(agent tenant.Agent) Signature {
	if agent.UseHTMLSignature && agent.SignatureHTML != "" {
		return RichHTMLSignature{HTML: agent.SignatureHTML, ImageURL: agent.SignatureImageURL}
	}
	return PlainTextSignature(agent.Signature)
}

// signatureHTML renders the signature for the HTML projection. The marker is
// the same correlation token embedded in the CTA comment.
func signatureHTML(sig Signature, marker int64) string {
	switch s := sig.(type) {
	case PlainTextSignature:
		if s == "" {
			return ""
		}
		escaped := strings.ReplaceAll(html.EscapeString(string(s)), "\n", "<br/>")
		return fmt.Sprintf("<br/><br/><!-- Sig %d -->%s", marker, escaped)
	case RichHTMLSignature:
		if s.HTML == "" {
			return ""
		}
		rendered := s.HTML
		if s.ImageURL != "" {
			rendered = strings.ReplaceAll(rendered, "{imageUrl}", s.ImageURL)
		}
		return fmt.Sprintf("<br/><br/><!-- Sig %d -->%s", marker, rendered)
	}
	return ""
}

// signatureText renders the plain-text projection of the signature. The
// HTML variant falls back to its tag-stripped text.
func signatureText(sig Signature) string {
	switch s := sig.(type) {
	case PlainTextSignature:
		return string(s)
	case RichHTMLSignature:
		return strings.TrimSpace(htmlTagRe.ReplaceAllString(s.HTML, " "))
	}
	return ""
}
