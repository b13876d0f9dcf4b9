package moderation

import (
	"bufio"
	_ "embed"
	"strings"
	"unicode"
)

//go:embed lexicon.txt
var defaultLexicon string

// Lexicon answers whether a single lower-cased token is disallowed.
type Lexicon interface {
	IsListed(token string) bool
}

// WordList is a static set of disallowed terms.
type WordList map[string]struct{}

func NewWordList(terms ...string) WordList {
	w := WordList{}
	w.Add(terms...)
	return w
}

// DefaultWordList returns the embedded term list plus any extra terms.
func DefaultWordList(extra ...string) WordList {
	w := NewWordList(extra...)
	scanner := bufio.NewScanner(strings.NewReader(defaultLexicon))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w.Add(line)
	}
	return w
}

func (w WordList) Add(terms ...string) {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			w[term] = struct{}{}
		}
	}
}

func (w WordList) IsListed(token string) bool {
	_, ok := w[strings.ToLower(token)]
	return ok
}

// Tokenize splits text on every rune that is neither a letter nor a digit and
// lower-cases the pieces. "Bad_Word.PNG" -> [bad word png].
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}
