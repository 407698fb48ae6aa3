package prompttext

import (
	"regexp"
	"sort"
	"strings"
)

var nonTermChars = regexp.MustCompile(`[^A-Za-z0-9\-\s]`)

// priorityTerms are symbol words the transformations should fight to keep.
var priorityTerms = map[string]bool{
	"cherry": true, "blossom": true, "blossoms": true,
	"lantern": true, "lanterns": true, "temple": true,
	"shrine": true, "garden": true, "tea": true,
	"bamboo": true, "maple": true, "zen": true,
	"wabi": true, "sabi": true, "imperfection": true,
	"architecture": true, "wood": true, "paper": true,
	"stone": true, "bridge": true, "pond": true,
	"kimono": true, "tatami": true, "shoji": true,
	"bonsai": true,
}

var thematicSubstrings = []string{
	"garden", "temple", "shrine", "lantern", "blossom",
	"bamboo", "maple", "tea", "zen",
}

// ExtractAnchorTerms pulls the salient words out of a text: alphanumeric or
// hyphenated tokens of at least 3 characters, scored 1 base, +3 when in the
// priority vocabulary, +1 when carrying a thematic substring. The result is
// sorted by descending score (stable, so earlier tokens win ties),
// deduplicated case-insensitively, and capped at maxTerms.
func ExtractAnchorTerms(text string, maxTerms int) []string {
	if maxTerms <= 0 {
		return nil
	}

	cleaned := nonTermChars.ReplaceAllString(text, " ")
	fields := strings.Fields(cleaned)

	type scoredTerm struct {
		score int
		term  string
	}
	scored := make([]scoredTerm, 0, len(fields))
	for _, f := range fields {
		term := strings.Trim(f, "-")
		if len(term) < 3 {
			continue
		}
		score := 1
		lowered := strings.ToLower(term)
		if priorityTerms[lowered] {
			score += 3
		}
		for _, sub := range thematicSubstrings {
			if strings.Contains(lowered, sub) {
				score++
				break
			}
		}
		scored = append(scored, scoredTerm{score: score, term: term})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	anchors := make([]string, 0, maxTerms)
	seen := make(map[string]bool, len(scored))
	for _, s := range scored {
		lowered := strings.ToLower(s.term)
		if !seen[lowered] {
			anchors = append(anchors, s.term)
			seen[lowered] = true
		}
		if len(anchors) >= maxTerms {
			break
		}
	}
	return anchors
}
