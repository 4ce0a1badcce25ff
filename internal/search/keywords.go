package search

import "strings"

var stopWords = map[string]bool{
	"the": true, "is": true, "are": true, "was": true, "were": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "and": true, "an": true, "has": true, "have": true,
	"it": true, "its": true, "this": true, "that": true, "with": true,
	"be": true, "been": true, "being": true, "by": true, "from": true,
	"or": true, "but": true, "not": true, "also": true, "can": true,
	"you": true, "your": true, "they": true, "their": true, "our": true,
	"all": true, "any": true, "only": true, "very": true, "really": true,
	"does": true, "did": true, "will": true, "would": true, "should": true,
	"true": true, "false": true, "myth": true, "fact": true,
}

const maxKeywords = 8

// extractKeywords reduces a claim to search terms. Capitalized words
// (likely names) come first and keep their case.
func extractKeywords(claim string) string {
	var keywords, priorityKeywords []string

	for _, word := range strings.Fields(claim) {
		isProperNoun := word[0] >= 'A' && word[0] <= 'Z'

		cleanWord := strings.Trim(word, ".,!?;:\"'()[]“”‘’")
		lowerWord := strings.ToLower(cleanWord)

		if len(lowerWord) <= 2 || stopWords[lowerWord] {
			continue
		}
		if isProperNoun {
			priorityKeywords = append(priorityKeywords, cleanWord)
		} else {
			keywords = append(keywords, lowerWord)
		}
	}

	all := append(priorityKeywords, keywords...)
	if len(all) > maxKeywords {
		all = all[:maxKeywords]
	}
	return strings.Join(all, " ")
}
