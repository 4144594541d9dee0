package sources

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gaixen/credtech-ingest/app/model"
)

// Entity extraction and tag generation are pure functions of the raw
// text, invoked inline by each adapter before the save call. They are
// coarse heuristics with fixed confidence values, not calibrated
// classifiers; false positives are expected and acceptable.

const (
	confidenceOrg    = 0.7
	confidenceTicker = 0.8
	confidenceMoney  = 0.9

	moneySpanWidth = 8
)

var orgSuffixes = []string{
	"Corp", "Corp.", "Inc", "Inc.", "Ltd", "Ltd.", "LLC", "Plc",
	"Group", "Company", "Bank", "Fund", "Holdings",
}

var wellKnownOrgs = map[string]bool{
	"apple":     true,
	"microsoft": true,
	"google":    true,
	"alphabet":  true,
	"amazon":    true,
	"tesla":     true,
	"goldman":   true,
	"jpmorgan":  true,
	"citigroup": true,
	"moody's":   true,
	"fitch":     true,
}

var titleCaser = cases.Title(language.English)

type token struct {
	text  string
	start int
	end   int
}

// tokenize splits on whitespace and trims surrounding punctuation,
// keeping the position of the trimmed token in the original text.
func tokenize(text string) []token {
	var tokens []token

	pos := 0
	for pos < len(text) {
		for pos < len(text) && isSpace(text[pos]) {
			pos++
		}
		if pos >= len(text) {
			break
		}

		start := pos
		for pos < len(text) && !isSpace(text[pos]) {
			pos++
		}
		end := pos

		for start < end && isPunct(text[start]) {
			start++
		}
		for end > start && isPunct(text[end-1]) {
			end--
		}
		if start < end {
			tokens = append(tokens, token{text: text[start:end], start: start, end: end})
		}
	}

	return tokens
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isPunct(b byte) bool {
	switch b {
	case '.', ',', '!', '?', ';', ':', '(', ')', '"', '\'', '[', ']':
		return true
	}
	return false
}

// ExtractEntities flags probable organizations, ticker symbols and the
// first currency amount in the text.
func ExtractEntities(text string) []model.Entity {
	var entities []model.Entity

	tokens := tokenize(text)
	for i, tok := range tokens {
		if suffix := matchOrgSuffix(tok.text); suffix {
			name := tok.text
			start := tok.start
			// An org suffix usually trails the actual name: fold in the
			// preceding capitalized token ("XYZ Corp", "Deutsche Bank").
			if i > 0 && isCapitalized(tokens[i-1].text) {
				name = tokens[i-1].text + " " + tok.text
				start = tokens[i-1].start
			}
			entities = append(entities, model.Entity{
				Name:       name,
				Type:       "ORG",
				Confidence: confidenceOrg,
				StartPos:   start,
				EndPos:     tok.end,
			})
			continue
		}

		if wellKnownOrgs[strings.ToLower(tok.text)] {
			entities = append(entities, model.Entity{
				Name:       titleCaser.String(strings.ToLower(tok.text)),
				Type:       "ORG",
				Confidence: confidenceOrg,
				StartPos:   tok.start,
				EndPos:     tok.end,
			})
			continue
		}

		if looksLikeTicker(tok.text) {
			entities = append(entities, model.Entity{
				Name:       tok.text,
				Type:       "TICKER",
				Confidence: confidenceTicker,
				StartPos:   tok.start,
				EndPos:     tok.end,
			})
		}
	}

	if idx := strings.IndexByte(text, '$'); idx >= 0 {
		end := idx + moneySpanWidth
		if end > len(text) {
			end = len(text)
		}
		// Keep the cut on a rune boundary.
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}
		entities = append(entities, model.Entity{
			Name:       strings.TrimSpace(text[idx:end]),
			Type:       "MONEY",
			Confidence: confidenceMoney,
			StartPos:   idx,
			EndPos:     end,
		})
	}

	return entities
}

func matchOrgSuffix(word string) bool {
	for _, suffix := range orgSuffixes {
		if word == suffix || strings.HasSuffix(word, suffix) && len(word) > len(suffix) {
			return true
		}
	}
	return false
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// looksLikeTicker reports whether a token matches the short all-caps
// ticker pattern. The lowercase comparison filters out numbers and
// punctuation-only tokens.
func looksLikeTicker(word string) bool {
	if len(word) < 2 || len(word) > 5 {
		return false
	}
	return strings.ToUpper(word) == word && strings.ToLower(word) != word
}

var topicKeywords = []struct {
	tag   string
	words []string
}{
	{"credit_rating", []string{"credit", "rating", "downgrade", "downgraded", "default", "debt"}},
	{"earnings", []string{"earnings", "profit", "revenue"}},
	{"m_and_a", []string{"merger", "acquisition"}},
	{"monetary_policy", []string{"federal reserve", "interest rate", "central bank", "fed "}},
	{"stock_market", []string{"stock", "share"}},
}

var negativeWords = []string{"loss", "decline", "drop", "fall", "bankruptcy", "crisis", "downgrade", "default"}
var positiveWords = []string{"gain", "rise", "growth", "profit", "success", "breakthrough", "upgrade"}

// GenerateTags derives topic and sentiment-polarity tags from the text.
// Output order is fixed so repeated calls yield identical tag sets.
func GenerateTags(text string) []string {
	content := strings.ToLower(text)

	var tags []string
	for _, topic := range topicKeywords {
		for _, word := range topic.words {
			if strings.Contains(content, word) {
				tags = append(tags, topic.tag)
				break
			}
		}
	}

	for _, word := range negativeWords {
		if strings.Contains(content, word) {
			tags = append(tags, "negative_sentiment")
			break
		}
	}

	for _, word := range positiveWords {
		if strings.Contains(content, word) {
			tags = append(tags, "positive_sentiment")
			break
		}
	}

	return tags
}
