package model

import (
	"regexp"
	"strings"
)

// Contact validators. Invalid values are rejected at the API boundary, never
// silently coerced.

var (
	// Turkish numbers: mobile 5XXXXXXXXX or landline area codes 2xx-4xx,
	// with optional +90 or leading 0.
	phoneRe = regexp.MustCompile(`^(\+90|0)?[2-5][0-9]{9}$`)

	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// One or more HH:MM-HH:MM ranges, optionally prefixed with day labels,
	// separated by commas. "09:00-18:00" or "Mon-Fri 09:00-18:00, Sat 10:00-14:00".
	hoursRangeRe = regexp.MustCompile(`([01][0-9]|2[0-3]):[0-5][0-9]\s*-\s*([01][0-9]|2[0-3]):[0-5][0-9]`)
)

// ValidPhone reports whether raw looks like a valid Turkish phone number.
// Spaces, dashes and parentheses are ignored.
func ValidPhone(raw string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	return phoneRe.MatchString(cleaned)
}

// ValidEmail reports whether raw looks like a deliverable email address.
func ValidEmail(raw string) bool {
	return emailRe.MatchString(strings.TrimSpace(raw))
}

// ValidWorkingHours reports whether raw contains at least one HH:MM-HH:MM
// range. Free-form day labels around the ranges are allowed.
func ValidWorkingHours(raw string) bool {
	return hoursRangeRe.MatchString(strings.TrimSpace(raw))
}
