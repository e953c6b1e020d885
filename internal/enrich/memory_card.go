// Package enrich generates memory cards from session data using
// deterministic text heuristics. No network calls, no models: the same
// session always yields the same card.
package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/lumera-labs/cascade-memory/internal/model"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "was": true, "are": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "should": true, "could": true,
	"may": true, "might": true, "must": true, "can": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "for": true, "with": true, "from": true,
	"by": true, "as": true, "it": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "you": true, "he": true, "she": true, "they": true,
	"we": true, "what": true, "when": true, "where": true, "why": true, "how": true,
	"which": true,
}

var (
	sentenceRe = regexp.MustCompile(`[.!?]+\s+`)
	wordRe     = regexp.MustCompile(`\b[a-z]{3,}\b`)
	orgRe      = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}\b`)
	domainRe   = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9-]+\b`)
	quoteRe    = regexp.MustCompile(`["']([^"']*)["']`)
	titleCutRe = regexp.MustCompile(`[.!?]`)
)

var decisionRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:decided|chose|selected|picked)\s+(?:to\s+)?([^.!?]{10,100})`),
	regexp.MustCompile(`(?i)(?:will|going to)\s+([^.!?]{10,100})`),
	regexp.MustCompile(`(?i)(?:approved|rejected|accepted)\s+([^.!?]{10,100})`),
}

var todoRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:TODO|FIXME|ACTION):\s*([^.\n]{5,100})`),
	regexp.MustCompile(`(?i)(?:need to|must|should)\s+([^.!?]{10,100})`),
	regexp.MustCompile(`(?i)(?:next steps?|action items?):\s*([^.!?]{10,100})`),
}

// GenerateMemoryCard builds a card from a session's text fields.
func GenerateMemoryCard(s *model.Session) model.MemoryCard {
	text := strings.Join([]string{s.Summary, s.ToolName}, " ")

	return model.MemoryCard{
		Title:          generateTitle(s),
		SummaryBullets: summaryBullets(s),
		Decisions:      extractByPatterns(text, decisionRes, 10, 5),
		Todos:          extractByPatterns(text, todoRes, 5, 7),
		Entities:       extractEntities(text),
		Keywords:       extractKeywords(text, 20),
		NotableQuotes:  extractQuotes(text),
	}
}

func generateTitle(s *model.Session) string {
	if s.Summary != "" {
		first := strings.TrimSpace(titleCutRe.Split(s.Summary, 2)[0])
		if len(first) < 60 {
			return first
		}
		cut := s.Summary[:60]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		return cut + "..."
	}
	id := s.SessionID
	if id == "" {
		id = "unknown"
	}
	if s.ToolName != "" {
		return s.ToolName + ": " + id
	}
	return "Session " + id
}

func summaryBullets(s *model.Session) []string {
	var bullets []string

	if s.ToolName != "" {
		status := "failed"
		if s.Success {
			status = "succeeded"
		}
		bullets = append(bullets, fmt.Sprintf("Tool: %s (%s)", s.ToolName, status))
	}
	bullets = append(bullets, extractSentences(s.Summary, 3)...)
	if len(s.Tags) > 0 {
		n := len(s.Tags)
		if n > 5 {
			n = 5
		}
		bullets = append(bullets, "Tags: "+strings.Join(s.Tags[:n], ", "))
	}
	if len(bullets) < 3 {
		id := s.SessionID
		if id == "" {
			id = "unknown"
		}
		ts := s.Timestamp
		if ts == "" {
			ts = "unknown"
		}
		bullets = append(bullets, "Session ID: "+id, "Timestamp: "+ts)
	}
	if len(bullets) > 7 {
		bullets = bullets[:7]
	}
	return bullets
}

func extractSentences(text string, max int) []string {
	var out []string
	for _, s := range sentenceRe.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) > 10 {
			out = append(out, s)
		}
		if len(out) == max {
			break
		}
	}
	return out
}

func extractKeywords(text string, max int) []string {
	freq := map[string]int{}
	order := map[string]int{}
	for i, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if stopwords[w] {
			continue
		}
		if _, seen := freq[w]; !seen {
			order[w] = i
		}
		freq[w]++
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	// Frequency descending; first occurrence breaks ties so output is stable.
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})
	if len(words) > max {
		words = words[:max]
	}
	return words
}

func extractEntities(text string) []string {
	var candidates []string
	orgs := orgRe.FindAllString(text, -1)
	if len(orgs) > 5 {
		orgs = orgs[:5]
	}
	candidates = append(candidates, orgs...)

	var domains []string
	for _, d := range domainRe.FindAllString(text, -1) {
		if len(d) > 3 {
			domains = append(domains, d)
		}
		if len(domains) == 5 {
			break
		}
	}
	candidates = append(candidates, domains...)

	seen := map[string]bool{}
	var out []string
	for _, e := range candidates {
		if !seen[e] && len(e) > 2 {
			seen[e] = true
			out = append(out, e)
		}
	}
	if len(out) > 15 {
		out = out[:15]
	}
	return out
}

func extractByPatterns(text string, patterns []*regexp.Regexp, minLen, max int) []string {
	var out []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			s := strings.TrimSpace(m[1])
			if len(s) > minLen {
				out = append(out, s)
			}
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func extractQuotes(text string) []string {
	var out []string
	for _, m := range quoteRe.FindAllStringSubmatch(text, -1) {
		if q := m[1]; len(q) >= 10 && len(q) <= 160 {
			out = append(out, q)
		}
		if len(out) == 5 {
			break
		}
	}
	return out
}
