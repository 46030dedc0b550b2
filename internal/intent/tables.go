package intent

import (
	"regexp"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// rule maps a value to the synonyms that select it. Tables are slices so
// that declaration order is the tie-break when several rules match.
type rule[T any] struct {
	value    T
	synonyms []string
}

var categoryRules = []rule[model.Category]{
	{model.CategoryMusic, []string{"music", "concert", "band", "live music", "jazz", "rock", "pop", "classical", "gig", "performance"}},
	{model.CategorySports, []string{"sports", "game", "match", "tournament", "football", "basketball", "soccer", "baseball", "tennis", "golf"}},
	{model.CategoryFamily, []string{"family", "family-friendly", "kids", "children", "family fun", "kid-friendly", "all ages"}},
	{model.CategoryArt, []string{"art", "art gallery", "exhibition", "museum", "painting", "sculpture", "gallery", "art show"}},
	{model.CategoryFood, []string{"food", "restaurant", "dining", "food festival", "taste", "culinary", "cooking", "wine"}},
	{model.CategoryEducation, []string{"education", "workshop", "seminar", "class", "learning", "training", "course", "lecture"}},
	{model.CategoryEntertainment, []string{"entertainment", "show", "comedy", "theater", "drama", "movie", "film", "cinema"}},
	{model.CategoryOutdoor, []string{"outdoor", "hiking", "nature", "park", "beach", "camping", "outdoor activity"}},
}

var subcategoryRules = map[model.Category][]rule[string]{
	model.CategoryMusic: {
		{"jazz", []string{"jazz"}},
		{"rock", []string{"rock"}},
		{"pop", []string{"pop"}},
		{"classical", []string{"classical"}},
		{"country", []string{"country"}},
		{"hip_hop", []string{"hip hop", "rap"}},
	},
	model.CategorySports: {
		{"football", []string{"football"}},
		{"basketball", []string{"basketball"}},
		{"soccer", []string{"soccer"}},
		{"baseball", []string{"baseball"}},
		{"tennis", []string{"tennis"}},
		{"golf", []string{"golf"}},
	},
	model.CategoryArt: {
		{"painting", []string{"painting"}},
		{"sculpture", []string{"sculpture"}},
		{"photography", []string{"photography"}},
		{"digital_art", []string{"digital art"}},
	},
}

// next_week is declared ahead of this_week: the bare "week" synonym would
// otherwise shadow it.
var dateRules = []rule[model.DateRange]{
	{model.DateToday, []string{"today", "tonight", "this evening"}},
	{model.DateTomorrow, []string{"tomorrow", "tomorrow night"}},
	{model.DateWeekend, []string{"weekend", "this weekend", "saturday", "sunday", "sat", "sun"}},
	{model.DateNextWeek, []string{"next week"}},
	{model.DateThisWeek, []string{"this week", "week"}},
	{model.DateThisMonth, []string{"this month", "month"}},
}

var (
	nearMeSynonyms   = []string{"near me", "close to me", "local", "nearby", "around here"}
	downtownSynonyms = []string{"downtown", "city center", "center city"}
)

var cities = []string{
	"boston", "new york", "los angeles", "chicago", "houston", "phoenix", "philadelphia",
	"san antonio", "san diego", "dallas", "san jose", "austin", "jacksonville", "fort worth",
	"columbus", "charlotte", "san francisco", "indianapolis", "seattle", "denver", "washington",
	"el paso", "nashville", "detroit", "oklahoma city", "portland", "las vegas", "memphis",
	"louisville", "baltimore", "milwaukee", "albuquerque",
}

var priceRules = []rule[model.PriceRange]{
	{model.PriceFree, []string{"free", "no cost"}},
	{model.PriceLow, []string{"cheap", "affordable", "budget"}},
	{model.PriceHigh, []string{"expensive", "premium", "luxury"}},
}

var ageRules = []rule[model.AgeRestriction]{
	{model.AgeAllAges, []string{"family", "kids", "children", "all ages", "family-friendly"}},
	{model.AgeAdultsOnly, []string{"adult", "18+", "21+"}},
	{model.AgeTeensAndUp, []string{"teen", "teenager", "13+"}},
}

var greetingPhrases = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}

var helpPhrases = []string{"help", "what can you do", "how does this work", "commands", "options"}

var (
	specificDatePattern = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-]?(\d{2,4})?\b`)
	venuePattern        = regexp.MustCompile(`\b(?:at|in)\s+([a-z][a-z\s'&-]*?)\s*(?:[.,!?;]|$)`)
	priceRangePattern   = regexp.MustCompile(`\$?(\d+)(?:-|\s+to\s+)\$?(\d+)`)
	priceCeilingPattern = regexp.MustCompile(`(?:under|below|less than)\s+\$?(\d+)`)
)

// Upper bounds for numeric price buckets, inclusive.
const (
	lowPriceCeiling    = 25
	mediumPriceCeiling = 75
)
