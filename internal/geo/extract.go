// Package geo extracts location text from call transcripts. Geocoding is an
// external collaborator; everything extracted here is marked pending until a
// downstream resolver fills in coordinates.
package geo

import (
	"regexp"
	"strings"

	"github.com/ShayCichocki/beacon/pkg/models"
)

// Phrases a caller uses when volunteering a location.
var locationCues = []string{
	"address is", "location is", "i'm at", "we're at",
	"at ", "in ", "near ", "on ",
}

// streetAddress matches "123 Main Street" style fragments.
var streetAddress = regexp.MustCompile(`\b\d{1,5}\s+[A-Za-z][A-Za-z' ]*\s+(?:street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr|lane|ln|way|court|ct|place|pl)\b`)

// Extract scans caller utterance texts for a plausible location fragment.
// Returns nil when nothing usable was found. Keyword scanning keeps the
// longer cues ("address is") ahead of prepositions so they win ties.
func Extract(callerTexts []string) *models.Location {
	joined := strings.Join(callerTexts, " ")

	// A street address is the strongest signal.
	if addr := streetAddress.FindString(strings.ToLower(joined)); addr != "" {
		return &models.Location{
			RawText: addr,
			Address: addr,
			Geocode: models.GeocodePending,
		}
	}

	for _, text := range callerTexts {
		lower := strings.ToLower(text)
		for _, cue := range locationCues {
			idx := strings.Index(lower, cue)
			if idx == -1 {
				continue
			}
			fragment := strings.TrimSpace(text[idx+len(cue):])
			fragment = firstClause(fragment)
			if len(fragment) > 5 {
				return &models.Location{
					RawText:  fragment,
					Landmark: fragment,
					Geocode:  models.GeocodePending,
				}
			}
		}
	}

	return nil
}

// firstClause truncates at the first sentence/clause delimiter.
func firstClause(s string) string {
	if idx := strings.IndexAny(s, ".,!?"); idx != -1 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
