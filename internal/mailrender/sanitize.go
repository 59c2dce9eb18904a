// Package mailrender turns AI-generated body text into deliverable email
// content: sanitization of untrusted model output, HTML/text projections
// with the system-controlled CTA block, and signature rendering.
package mailrender

import (
	"regexp"
	"strings"
)

// The model is instructed not to emit subjects, links, or sign-offs, but is
// not trusted to comply. Everything here strips what slipped through.
var (
	subjectEchoRe  = regexp.MustCompile(`(?im)^subject:\s*.+$`)
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	rawURLRe       = regexp.MustCompile(`https?://\S+`)
	schedulerRe    = regexp.MustCompile(`(?i)\b(cal\.com|calendly\.com)\S*`)
	signOffRe      = regexp.MustCompile(`(?im)^(best regards|kind regards|warm regards|thank you|best|thanks|regards|sincerely|cheers|talk soon|looking forward),?\s*$`)
	dashLineRe     = regexp.MustCompile(`(?m)^(—|–|-{2,})\s*$`)
	blankRunsRe    = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips subject-line echoes, links, scheduling-provider mentions,
// sign-off lines, and bare lines consisting only of one of the given
// persona names.
func Sanitize(text string, personaNames ...string) string {
	cleaned := subjectEchoRe.ReplaceAllString(text, "")
	cleaned = markdownLinkRe.ReplaceAllString(cleaned, "$1")
	cleaned = rawURLRe.ReplaceAllString(cleaned, "")
	cleaned = schedulerRe.ReplaceAllString(cleaned, "")
	cleaned = signOffRe.ReplaceAllString(cleaned, "")
	cleaned = dashLineRe.ReplaceAllString(cleaned, "")
	cleaned = stripNameLines(cleaned, personaNames)
	cleaned = blankRunsRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

func stripNameLines(text string, names []string) string {
	if len(names) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isBareName(line, names) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isBareName(line string, names []string) bool {
	trimmed := strings.TrimSpace(line)
	for _, name := range names {
		if name != "" && strings.EqualFold(trimmed, name) {
			return true
		}
	}
	return false
}
