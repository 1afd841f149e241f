package ingest

import (
	"testing"
	"time"
)

func TestParseTimestampVariants(t *testing.T) {
	cases := []string{
		"2025-01-01T00:00:00Z",
		"2025-01-01T00:00:00.123456Z",
		"2025-01-01T00:00:00",
		"2025-01-01 00:00:00",
	}
	for _, s := range cases {
		got, err := parseTimestamp(s)
		if err != nil {
			t.Fatalf("parseTimestamp(%q): %v", s, err)
		}
		if got.Location() != time.UTC {
			t.Fatalf("parseTimestamp(%q): not normalised to UTC: %v", s, got.Location())
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	if _, err := parseTimestamp("not-a-timestamp"); err == nil {
		t.Fatal("expected an error for a malformed timestamp")
	}
}
