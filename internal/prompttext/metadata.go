package prompttext

import (
	"encoding/json"
	"strings"
)

// Required top-level keys for the metadata blocks that ride at the end of a
// prompt.
const (
	ContentFlagsKey = "content_flags"
	VideoStyleKey   = "video_style"
)

// DetachMetadataBlock locates a balanced {...} region near the end of the
// text whose JSON parse carries requiredKey at the top level, removes it,
// and returns the whitespace-normalized remainder together with the exact
// block text. Candidate closing braces are tried from the end of the string
// backward; brace depth is counted character by character so nested objects
// are matched structurally rather than by a greedy pattern. Brace characters
// inside JSON string literals are not accounted for; such blocks fail the
// parse step and the scan simply moves on.
//
// When no matching block exists the trimmed input is returned unchanged with
// an empty block.
func DetachMetadataBlock(text, requiredKey string) (remaining, block string) {
	text = strings.TrimSpace(text)
	searchEnd := len(text) - 1

	for searchEnd >= 0 {
		endIdx := strings.LastIndex(text[:searchEnd+1], "}")
		if endIdx == -1 {
			break
		}

		depth := 0
		startIdx := -1
		for i := endIdx; i >= 0; i-- {
			switch text[i] {
			case '}':
				depth++
			case '{':
				depth--
				if depth == 0 {
					startIdx = i
				}
			}
			if startIdx != -1 {
				break
			}
		}

		if startIdx == -1 {
			searchEnd = endIdx - 1
			continue
		}

		candidate := text[startIdx : endIdx+1]
		if hasTopLevelKey(candidate, requiredKey) {
			remaining = strings.Join(strings.Fields(text[:startIdx]+" "+text[endIdx+1:]), " ")
			return remaining, candidate
		}
		searchEnd = startIdx - 1
	}

	return text, ""
}

func hasTopLevelKey(candidate, key string) bool {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return false
	}
	_, ok := parsed[key]
	return ok
}
