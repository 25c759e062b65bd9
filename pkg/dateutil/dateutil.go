// Package dateutil normalises the date formats accepted on the wire into the
// canonical YYYY-MM-DD form stored in the database.
package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// Canonical is the storage layout for calendar dates.
const Canonical = "2006-01-02"

// Normalize converts an incoming date string into canonical YYYY-MM-DD form.
// Accepted inputs: DD-MM-YYYY, YYYY-MM-DD, or an ISO timestamp whose date
// prefix is used. Normalising an already canonical value returns it unchanged.
func Normalize(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty date")
	}

	// ISO timestamps keep only the date part.
	if idx := strings.IndexAny(value, "T "); idx == len(Canonical) {
		value = value[:idx]
	}

	if t, err := time.Parse(Canonical, value); err == nil {
		return t.Format(Canonical), nil
	}
	if t, err := time.Parse("02-01-2006", value); err == nil {
		return t.Format(Canonical), nil
	}

	return "", fmt.Errorf("unsupported date format: %q", raw)
}

// NormalizeTime parses the raw value like Normalize and returns the UTC time.
func NormalizeTime(raw string) (time.Time, error) {
	canonical, err := Normalize(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(Canonical, canonical)
}
