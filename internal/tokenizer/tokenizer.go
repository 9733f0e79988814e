// Package tokenizer turns free-form feedback text into normalized keyword tokens.
package tokenizer

import (
	"iter"
	"strings"
)

// stripped are removed before splitting so "prices!" and "prices" count as one token.
var stripped = strings.NewReplacer(".", "", ",", "", "?", "", "!", "")

// Tokens yields the lowercase, punctuation-free, non-stopword tokens of text in order.
// The sequence is lazy and may be ranged over any number of times.
func Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		normalized := stripped.Replace(strings.ToLower(text))

		for token := range strings.FieldsSeq(normalized) {
			if IsStopword(token) {
				continue
			}

			if !yield(token) {
				return
			}
		}
	}
}

// Collect returns the tokens of text as a slice.
func Collect(text string) []string {
	var out []string
	for token := range Tokens(text) {
		out = append(out, token)
	}

	return out
}

// Counts returns how many times each distinct token occurs in seq.
func Counts(seq iter.Seq[string]) map[string]int64 {
	counts := make(map[string]int64)
	for token := range seq {
		counts[token]++
	}

	return counts
}

// IsStopword reports whether token is in the fixed English stopword set.
func IsStopword(token string) bool {
	_, ok := stopwords[token]

	return ok
}

var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {}, "all": {}, "am": {},
	"an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {}, "because": {},
	"been": {}, "before": {}, "being": {}, "below": {}, "between": {}, "both": {}, "but": {}, "by": {},
	"can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "doing": {}, "down": {}, "during": {},
	"each": {}, "few": {}, "for": {}, "from": {}, "further": {}, "had": {}, "has": {}, "have": {},
	"having": {}, "he": {}, "her": {}, "here": {}, "hers": {}, "herself": {}, "him": {}, "himself": {},
	"his": {}, "how": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"its": {}, "itself": {}, "just": {}, "me": {}, "more": {}, "most": {}, "my": {}, "myself": {},
	"no": {}, "nor": {}, "not": {}, "now": {}, "of": {}, "off": {}, "on": {}, "once": {},
	"only": {}, "or": {}, "other": {}, "our": {}, "ours": {}, "ourselves": {}, "out": {}, "over": {},
	"own": {}, "same": {}, "she": {}, "should": {}, "so": {}, "some": {}, "such": {}, "than": {},
	"that": {}, "the": {}, "their": {}, "theirs": {}, "them": {}, "themselves": {}, "then": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "those": {}, "through": {}, "to": {}, "too": {}, "under": {},
	"until": {}, "up": {}, "very": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "who": {}, "whom": {}, "why": {}, "will": {}, "with": {},
	"would": {}, "you": {}, "your": {}, "yours": {}, "yourself": {}, "yourselves": {},
}
