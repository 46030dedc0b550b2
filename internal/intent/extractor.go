// Package intent turns free text into search criteria, remotely when a
// language service is reachable and with deterministic rules otherwise.
package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// Extractor is the rule-based criteria extractor. It is stateless and safe
// for concurrent use.
type Extractor struct{}

// NewExtractor creates a rule-based extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract derives criteria from text using the static keyword tables. It
// never fails; when nothing matches it returns the universal default.
func (e *Extractor) Extract(text string) model.Criteria {
	query := strings.ToLower(strings.TrimSpace(text))

	var c model.Criteria
	if category, ok := firstMatch(query, categoryRules); ok {
		c.Category = category
		if sub, ok := firstMatch(query, subcategoryRules[category]); ok {
			c.Subcategory = sub
		}
	}
	c.DateRange = extractDateRange(query)
	c.City = extractLocation(query)
	c.PriceRange = extractPriceRange(query)
	if age, ok := firstMatch(query, ageRules); ok {
		c.AgeRestriction = age
	}

	c.ApplyDefault()
	c.Source = model.SourceRule
	return c
}

func firstMatch[T any](query string, rules []rule[T]) (T, bool) {
	for _, r := range rules {
		if containsAny(query, r.synonyms) {
			return r.value, true
		}
	}
	var zero T
	return zero, false
}

func containsAny(query string, synonyms []string) bool {
	for _, s := range synonyms {
		if strings.Contains(query, s) {
			return true
		}
	}
	return false
}

func extractDateRange(query string) model.DateRange {
	if d, ok := firstMatch(query, dateRules); ok {
		return d
	}
	if specificDatePattern.MatchString(query) {
		return model.DateSpecificDate
	}
	return ""
}

func extractLocation(query string) string {
	if containsAny(query, nearMeSynonyms) {
		return model.CityNearMe
	}
	if containsAny(query, downtownSynonyms) {
		return "downtown"
	}
	for _, city := range cities {
		if strings.Contains(query, city) {
			return city
		}
	}
	if m := venuePattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractPriceRange(query string) model.PriceRange {
	if p, ok := firstMatch(query, priceRules); ok {
		return p
	}
	if m := priceRangePattern.FindStringSubmatch(query); m != nil {
		if upper, err := strconv.Atoi(m[2]); err == nil {
			return bucketPrice(upper)
		}
	}
	if m := priceCeilingPattern.FindStringSubmatch(query); m != nil {
		if ceiling, err := strconv.Atoi(m[1]); err == nil {
			return bucketPrice(ceiling)
		}
	}
	return ""
}

func bucketPrice(upper int) model.PriceRange {
	switch {
	case upper <= lowPriceCeiling:
		return model.PriceLow
	case upper <= mediumPriceCeiling:
		return model.PriceMedium
	default:
		return model.PriceHigh
	}
}

var greetingPattern = phrasePattern(greetingPhrases)
var helpPattern = phrasePattern(helpPhrases)

// phrasePattern matches any phrase on word boundaries so that "hi" does not
// fire inside "this".
func phrasePattern(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// IsGreetingOrHelp reports whether text contains a greeting or a request
// for help.
func IsGreetingOrHelp(text string) bool {
	query := strings.ToLower(strings.TrimSpace(text))
	return greetingPattern.MatchString(query) || helpPattern.MatchString(query)
}

// HelpMessage returns the static introduction sent for greetings and help
// requests.
func HelpMessage() string {
	return `Hi! I can help you find events, places and deals around you.

Try asking things like:
• "What music events are happening this weekend in Boston?"
• "Free family events near me"
• "Comedy shows tonight under $30"
• "Any restaurant deals downtown?"

Tell me what you're in the mood for and I'll find some suggestions.`
}

// SearchSummary describes criteria in one line, e.g.
// "Searching for music events, happening weekend, in boston".
func SearchSummary(c model.Criteria) string {
	var b strings.Builder
	b.WriteString("Searching for")
	if c.Category != "" && c.Category != model.CategoryGeneral {
		fmt.Fprintf(&b, " %s", c.Category)
	}
	b.WriteString(" events")

	var parts []string
	if c.DateRange != "" {
		parts = append(parts, "happening "+strings.ReplaceAll(string(c.DateRange), "_", " "))
	}
	switch {
	case c.City == model.CityNearMe:
		parts = append(parts, "near you")
	case c.City != "":
		parts = append(parts, "in "+c.City)
	}
	if c.PriceRange != "" {
		parts = append(parts, string(c.PriceRange)+" price")
	}
	if c.AgeRestriction != "" {
		parts = append(parts, strings.ReplaceAll(string(c.AgeRestriction), "_", " "))
	}
	if len(parts) > 0 {
		b.WriteString(", ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}
