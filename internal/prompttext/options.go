// Package prompttext holds the pure text manipulation helpers for the
// generation prompt format: trailing option tokens, embedded metadata
// blocks, anchor terms, and hybrid cue synthesis. Nothing here performs
// I/O or holds state, so every function is safe to call from any goroutine.
package prompttext

import "strings"

// optionKeywords is the fixed vocabulary of trailing option tokens. Each
// keyword may be followed by a single non-flag value token.
var optionKeywords = map[string]bool{
	"--ar":    true,
	"--s":     true,
	"--chaos": true,
	"--q":     true,
	"--weird": true,
}

// SplitOptions separates a prompt into its main body and the trailing option
// run. The run must be internally well-formed (every token is a keyword or
// the single value directly following one); otherwise the whole trimmed text
// is returned as the main body with ok=false. Malformed input is never an
// error, the absence of a clean parse is itself the signal.
func SplitOptions(text string) (mainText, optionsTail string, ok bool) {
	tokens := strings.Fields(strings.TrimSpace(text))
	if len(tokens) == 0 {
		return "", "", false
	}

	// The run start is the leftmost keyword whose suffix parses cleanly,
	// which is the longest valid trailing run.
	for start := 0; start < len(tokens); start++ {
		if !optionKeywords[tokens[start]] || !wellFormedRun(tokens[start:]) {
			continue
		}
		mainText = strings.Join(tokens[:start], " ")
		optionsTail = " " + strings.Join(tokens[start:], " ")
		return mainText, optionsTail, true
	}
	return strings.TrimSpace(text), "", false
}

func wellFormedRun(tokens []string) bool {
	for j := 0; j < len(tokens); {
		if !optionKeywords[tokens[j]] {
			return false
		}
		j++
		if j < len(tokens) && !strings.HasPrefix(tokens[j], "--") {
			j++
		}
	}
	return true
}

// StripOptions removes every recognized option keyword and its following
// non-flag value wherever it appears, then collapses whitespace. Stripping
// an already-stripped text is a no-op.
func StripOptions(text string) string {
	tokens := strings.Fields(text)
	kept := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if optionKeywords[tokens[i]] {
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				i++
			}
			continue
		}
		kept = append(kept, tokens[i])
	}
	return strings.Join(kept, " ")
}

// InheritOptions reattaches the original text's option tail to the candidate
// text. When the original has no parseable tail, the candidate is returned
// with any options of its own stripped.
func InheritOptions(original, candidate string) string {
	_, origTail, hasOptions := SplitOptions(original)
	if hasOptions {
		candidateMain, _, _ := SplitOptions(candidate)
		return candidateMain + origTail
	}
	return StripOptions(candidate)
}
