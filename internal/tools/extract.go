package tools

import "strings"

// KnownCities is scanned in order; the first city found in the step wins.
var KnownCities = []string{"Delhi", "Mumbai", "Bangalore", "London", "Paris", "New York", "Tokyo"}

// DefaultCity is used when a weather step names none of KnownCities.
const DefaultCity = "London"

var queryMarkers = map[string]bool{"for": true, "about": true}

// ExtractCity returns the canonical name of the first known city mentioned
// in step, compared case-insensitively.
func ExtractCity(step string) string {
	lower := strings.ToLower(step)
	for _, city := range KnownCities {
		if strings.Contains(lower, strings.ToLower(city)) {
			return city
		}
	}
	return DefaultCity
}

// ExtractQuery returns the words following the first "for"/"about" marker.
// Without a marker, or with nothing after it, the whole step is the query.
func ExtractQuery(step string) string {
	words := strings.Fields(step)
	for i, w := range words {
		if queryMarkers[strings.ToLower(w)] {
			if rest := words[i+1:]; len(rest) > 0 {
				return strings.Join(rest, " ")
			}
			break
		}
	}
	return step
}
