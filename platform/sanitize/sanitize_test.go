package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>hello</p>", "hello"},
		{"no tags", "no tags"},
		{"a &amp; b", "a & b"},
		{"&lt;b&gt;sneaky&lt;/b&gt;", "sneaky"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Fatalf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextPrefersTextPart(t *testing.T) {
	if got := PlainText("plain body", "<p>html body</p>"); got != "plain body" {
		t.Fatalf("got %q", got)
	}
}

func TestPlainTextFallsBackToHTML(t *testing.T) {
	got := PlainText("  ", "<div>first line</div>\n<div>second   line</div>")
	if got != "first line second line" {
		t.Fatalf("got %q", got)
	}
}

func TestPlainTextEmpty(t *testing.T) {
	if got := PlainText("", ""); got != "" {
		t.Fatalf("got %q", got)
	}
}
