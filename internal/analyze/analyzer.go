// Package analyze derives a prose profile from extracted text: document type
// classification, language, readability and topic keywords. The profile
// feeds the content-analysis chunks emitted for word-processing documents.
package analyze

import (
	"sort"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	"github.com/bull/docindex/internal/document"
)

// maxKeywords caps the keyword list on a profile.
const maxKeywords = 10

// docTypeCues maps a document type to the words that suggest it. First type
// whose cue count clears the threshold wins, in declaration order.
var docTypeCues = []struct {
	docType string
	cues    []string
}{
	{"invoice", []string{"invoice", "amount due", "bill to", "payment", "subtotal", "tax"}},
	{"report", []string{"report", "analysis", "summary", "findings", "conclusion", "methodology"}},
	{"letter", []string{"dear", "sincerely", "regards", "yours truly"}},
	{"manual", []string{"manual", "instructions", "step", "procedure", "warning", "caution"}},
	{"article", []string{"abstract", "introduction", "references", "published"}},
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "with": true, "this": true,
	"that": true, "from": true, "they": true, "have": true, "has": true,
	"was": true, "were": true, "will": true, "can": true, "its": true,
	"their": true, "which": true, "been": true, "than": true, "then": true,
	"there": true, "these": true, "those": true, "when": true, "what": true,
	"into": true, "more": true, "some": true, "such": true, "only": true,
	"other": true, "also": true, "your": true, "each": true, "about": true,
}

// Analyze profiles the given text. It is a pure function; empty input yields
// a zero-signal "general" profile.
func Analyze(text string) document.Profile {
	profile := document.Profile{
		DocType:     "general",
		Language:    "eng",
		Readability: "standard",
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return profile
	}

	lower := strings.ToLower(trimmed)
	profile.DocType = classifyDocType(lower)

	if info := whatlanggo.Detect(trimmed); info.Confidence > 0 {
		if code := whatlanggo.LangToString(info.Lang); code != "" {
			profile.Language = code
		}
	}

	words := strings.Fields(trimmed)
	sentences := countSentences(trimmed)
	if sentences > 0 {
		profile.AvgWordsPerSentence = float64(len(words)) / float64(sentences)
	}

	profile.Complexity = fleschScore(words, sentences)
	switch {
	case profile.Complexity >= 70:
		profile.Readability = "simple"
	case profile.Complexity >= 40:
		profile.Readability = "standard"
	default:
		profile.Readability = "advanced"
	}

	profile.Keywords = topKeywords(words)
	return profile
}

func classifyDocType(lower string) string {
	for _, entry := range docTypeCues {
		hits := 0
		for _, cue := range entry.cues {
			if strings.Contains(lower, cue) {
				hits++
			}
		}
		if hits >= 2 {
			return entry.docType
		}
	}
	return "general"
}

func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return count
}

// fleschScore computes a Flesch reading-ease estimate using a vowel-group
// syllable approximation. Higher is easier to read.
func fleschScore(words []string, sentences int) float64 {
	if len(words) == 0 || sentences == 0 {
		return 0
	}

	syllables := 0
	for _, w := range words {
		syllables += syllableCount(w)
	}

	wordsPerSentence := float64(len(words)) / float64(sentences)
	syllablesPerWord := float64(syllables) / float64(len(words))

	score := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func syllableCount(word string) int {
	count := 0
	prevVowel := false
	for _, r := range strings.ToLower(word) {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}
	if count == 0 {
		count = 1
	}
	return count
}

func topKeywords(words []string) []string {
	freq := make(map[string]int)
	for _, w := range words {
		cleaned := strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(cleaned) < 4 || stopwords[cleaned] {
			continue
		}
		freq[cleaned]++
	}

	type wc struct {
		word  string
		count int
	}
	ranked := make([]wc, 0, len(freq))
	for w, c := range freq {
		ranked = append(ranked, wc{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	n := min(maxKeywords, len(ranked))
	keywords := make([]string, 0, n)
	for _, entry := range ranked[:n] {
		keywords = append(keywords, entry.word)
	}
	return keywords
}
