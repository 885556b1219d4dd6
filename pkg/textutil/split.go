package textutil

import "strings"

// DefaultSegmentLimit is the longest reply segment handed to speech
// synthesis in one shot.
const DefaultSegmentLimit = 200

// SplitResponse breaks text into segments no longer than limit, splitting at
// the last space before the limit. A single word longer than the limit is cut
// at the limit. Segments are trimmed and never empty.
func SplitResponse(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSegmentLimit
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	for len(text) > limit {
		at := strings.LastIndex(text[:limit+1], " ")
		if at <= 0 {
			at = limit
		}
		part := strings.TrimSpace(text[:at])
		if part != "" {
			parts = append(parts, part)
		}
		text = strings.TrimSpace(text[at:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
