// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the layout for protocol timestamps: ISO 8601 in UTC
// with millisecond precision and a literal Z designator.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t as a protocol timestamp, converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a protocol timestamp. Any RFC 3339 precision is
// accepted, but the zone must be the literal Z designator; numeric offsets
// are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, fmt.Errorf("timestamp %q must use the Z designator", s)
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}

	return t.UTC(), nil
}
