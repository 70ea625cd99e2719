package config

import (
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TREADWISE_TEST_ROOT", "/srv/treadwise")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "  ", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/data/leads.jsonl", want: filepath.Join(home, "data", "leads.jsonl")},
		{name: "env var", in: "$TREADWISE_TEST_ROOT/logs", want: "/srv/treadwise/logs"},
		{name: "relative", in: "me/./Business_summary.txt", want: "me/Business_summary.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
