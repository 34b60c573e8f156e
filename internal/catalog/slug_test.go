package catalog

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Web  Apprentice!!", "web-apprentice"},
		{"", "award"},
		{"!!!", "award"},
		{"Go Pro", "go-pro"},
		{"  Trim Me  ", "trim-me"},
		{"already-sluggy", "already-sluggy"},
		{"MIXED Case 123", "mixed-case-123"},
		{"--edge--case--", "edge-case"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
