package outbound

import (
	"regexp"
	"testing"
)

var messageIDRe = regexp.MustCompile(`^<[0-9a-z]+\.[0-9a-z]+@[^>]+>$`)

func TestBuildMessageIDFormat(t *testing.T) {
	id := BuildMessageID("mail.acme.io")
	if !messageIDRe.MatchString(id) {
		t.Fatalf("malformed message id: %q", id)
	}
}

func TestBuildMessageIDDefaultDomain(t *testing.T) {
	id := BuildMessageID("")
	if !messageIDRe.MatchString(id) {
		t.Fatalf("malformed message id: %q", id)
	}
	if got := id[len(id)-11:]; got != "@localhost>" {
		t.Fatalf("domain fallback = %q, want @localhost>", got)
	}
}

func TestBuildMessageIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := BuildMessageID("mail.acme.io")
		if seen[id] {
			t.Fatalf("duplicate id after %d iterations: %q", i, id)
		}
		seen[id] = true
	}
}
