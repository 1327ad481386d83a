package domain

import "testing"

func TestStripControlMarkers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain text, no markers.", "Plain text, no markers."},
		{"Before [ESCALATE: reason] after", "Before  after"},
		{"Text [QUICK_REPLIES: A | B]", "Text"},
		{"  [ESCALATE: x] [QUICK_REPLIES: y]  ", ""},
	}
	for _, tt := range tests {
		if got := StripControlMarkers(tt.in); got != tt.want {
			t.Errorf("StripControlMarkers(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
