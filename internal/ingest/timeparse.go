package ingest

import (
	"fmt"
	"time"
)

// timestampLayouts are tried in order; the zoneless layouts are assumed UTC,
// matching the "missing zones are UTC" convention used throughout the data
// model.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp parses an ISO-8601 timestamp, normalising the result to
// UTC. A timestamp lacking a zone is assumed to already be UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q", s)
}
