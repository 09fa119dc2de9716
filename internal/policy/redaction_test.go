package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +62 812-3456-7890 and use 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIIChatID(t *testing.T) {
	out, changed := RedactPII("from 6281234567890@c.us")
	if !changed || out != "from [REDACTED_CHAT_ID]" {
		t.Fatalf("RedactPII() = %q, %v", out, changed)
	}
}

func TestLogSafeClips(t *testing.T) {
	got := LogSafe("  ada sepatu lari ukuran 42?  ", 10)
	if got != "ada sepatu…" {
		t.Fatalf("LogSafe() = %q, want %q", got, "ada sepatu…")
	}
	if got := LogSafe("halo", 0); got != "halo" {
		t.Fatalf("LogSafe(no limit) = %q, want %q", got, "halo")
	}
}
