package nlu

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func extractionPrompt(text string) string {
	return fmt.Sprintf(`Analyze this user query about local events, businesses and offers and extract structured information.

Query: %q

Respond with a single JSON object with these keys (omit a key or use null when unknown):
- intent: a short description of what the user wants, e.g. "search_events"
- search_types: any of [%s]
- category: one of [%s]
- subcategory: a more specific genre, e.g. jazz, football, painting
- date_range: one of [%s]
- city: a city name, or "%s" when the user asks for something nearby
- location: a venue or neighbourhood, if mentioned
- price_range: one of [%s]
- age_restriction: one of [%s]
- keywords: important words from the query

Respond only with the JSON object.`,
		text,
		joinEnum(model.SearchTypes),
		joinEnum(model.Categories),
		joinEnum(model.DateRanges),
		model.CityNearMe,
		joinEnum(model.PriceRanges),
		joinEnum(model.AgeRestrictions),
	)
}

// ReplyPrompt builds the generative reply prompt from the user's text and a
// numbered listing of the suggestions.
func ReplyPrompt(text string, suggestions []model.SuggestedItem) string {
	var b strings.Builder
	b.WriteString("You are a friendly local concierge chatting with a user.\n\n")
	fmt.Fprintf(&b, "The user asked: %q\n\n", text)
	if len(suggestions) == 0 {
		b.WriteString("Nothing in the catalog matched the request.\n")
		b.WriteString("\nWrite a short, conversational reply (under 120 words) that says so and asks the user to try different dates or places. ")
		b.WriteString(`Respond with a JSON object of the form {"response": "<your reply>"}.`)
		return b.String()
	}
	b.WriteString("These suggestions were found:\n")
	for i, s := range suggestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.String())
	}
	b.WriteString("\nWrite a short, conversational reply (under 120 words) that presents these suggestions. ")
	b.WriteString(`Respond with a JSON object of the form {"response": "<your reply>"}.`)
	return b.String()
}
