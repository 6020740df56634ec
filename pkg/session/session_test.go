package session

import (
	"testing"
	"time"
)

func TestGeneratorFormat(t *testing.T) {
	g := &Generator{
		now:    func() time.Time { return time.UnixMilli(1700000000123) },
		random: func() string { return "abc123xyz" },
	}
	if got, want := g.NewID(), "session_1700000000123_abc123xyz"; got != want {
		t.Fatalf("NewID() = %q, want %q", got, want)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if !Valid(id) {
			t.Fatalf("NewID() produced invalid id %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d calls", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{id: "session_1700000000123_abc123xyz", want: true},
		{id: "session_1700000000123_", want: false},
		{id: "session_abc_def", want: false},
		{id: "sess_1700000000123_abc", want: false},
		{id: "session_1700000000123_ABC", want: false},
		{id: "", want: false},
	}
	for _, tt := range tests {
		if got := Valid(tt.id); got != tt.want {
			t.Fatalf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
