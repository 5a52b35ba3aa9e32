package flow

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneSeparators   = regexp.MustCompile(`[\s\-\(\)\.]`)
	phonePattern      = regexp.MustCompile(`^\+?\d{10,}$`)
	coordinatePattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*$`)
)

func validEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func validPhone(phone string) bool {
	cleaned := phoneSeparators.ReplaceAllString(phone, "")
	return phonePattern.MatchString(cleaned)
}

// validAddress is a plausibility check, not a postal one: the geocoder
// does the real verification later.
func validAddress(address string) bool {
	trimmed := strings.TrimSpace(address)
	return len(trimmed) >= 10 && strings.Contains(trimmed, " ")
}

// parseCoordinates reads "lat, lng" from an applicant message.
func parseCoordinates(text string) (lat, lng float64, ok bool) {
	m := coordinatePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lng, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

func isSkip(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "skip" || t == "no" || t == "no thanks" || t == "pass"
}

// affirmative is the keyword fallback when the classifier is
// unavailable.
func affirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, word := range []string{"yes", "y", "yep", "yeah", "sure", "ok", "okay", "ready", "let's go", "lets go", "go"} {
		if t == word {
			return true
		}
	}
	return strings.Contains(t, "yes") || strings.Contains(t, "ready")
}
