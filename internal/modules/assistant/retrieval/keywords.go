package retrieval

import (
	"strings"
	"unicode"
)

const maxKeywords = 8

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again all also am an and any are as at be because been
		before being below between both but by can could did do does doing down
		during each explain few for from further get give had has have having help
		her here hers him his how i if in into is it its just me more most my no
		nor not now of off on once only or other our out over own please same she
		should show so some such tell than that the their them then there these
		they this those through to too under until up use using very was we were
		what when where which while who whom why will with would you your`) {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords picks the distinctive terms of a query for hybrid
// reranking: lowercased tokens of three or more runes, stop words removed,
// first occurrence order, at most eight.
func ExtractKeywords(query string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '.'
	})
	out := make([]string, 0, maxKeywords)
	seen := map[string]bool{}
	for _, tok := range tokens {
		tok = strings.Trim(tok, "-_.")
		if len([]rune(tok)) < 3 || seen[tok] {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
