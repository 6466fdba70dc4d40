package intake

import (
	"strings"
	"unicode"
)

var affirmativeWords = map[string]bool{
	"si": true, "sí": true, "ok": true, "acepto": true, "quiero": true, "confirmo": true,
}

// Spoken replies are matched as substrings.
var affirmativePhrases = []string{"está bien", "esta bien", "perfecto", "de acuerdo", "claro"}

// IsAffirmative reports whether a reply accepts the assistant's proposal.
// Matching is literal: "no quiero" still contains "quiero".
func IsAffirmative(reply string, voice bool) bool {
	r := strings.ToLower(strings.TrimSpace(reply))
	if r == "" {
		return false
	}
	words := strings.FieldsFunc(r, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	for _, w := range words {
		if affirmativeWords[w] {
			return true
		}
	}
	if voice {
		for _, p := range affirmativePhrases {
			if strings.Contains(r, p) {
				return true
			}
		}
	}
	return false
}
