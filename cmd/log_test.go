package cmd

import "testing"

func TestShortDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2026-08-25T10:00:00Z", "2026-08-25"},
		{"2026-08-25", "2026-08-25"},
		{"", "?"},
		{"short", "short"},
	}
	for _, tt := range tests {
		if got := shortDate(tt.in); got != tt.want {
			t.Errorf("shortDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
