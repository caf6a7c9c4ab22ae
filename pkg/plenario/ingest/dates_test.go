package ingest

import "testing"

func TestFormatDate(t *testing.T) {
	cases := map[string]string{
		"2025-03-05":           "2025-03-05",
		"2025-03-05T14:22:01":  "2025-03-05",
		"2025-03-05 14:22:01":  "2025-03-05",
		"2025-03-05T14:22:01Z": "2025-03-05",
		"05/03/2025":           "2025-03-05",
		"  2025-03-05  ":       "2025-03-05",
		"":                     "",
		"   ":                  "",
		"não informada":        "",
		"2025-13-45":           "",
	}
	for in, want := range cases {
		if got := FormatDate(in); got != want {
			t.Errorf("FormatDate(%q) = %q, want %q", in, got, want)
		}
	}
}
