package model

import (
	"strings"
	"time"
)

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryMusic         Category = "music"
	CategorySports        Category = "sports"
	CategoryFamily        Category = "family"
	CategoryArt           Category = "art"
	CategoryFood          Category = "food"
	CategoryEducation     Category = "education"
	CategoryEntertainment Category = "entertainment"
	CategoryOutdoor       Category = "outdoor"
	CategoryGeneral       Category = "general"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryMusic, CategorySports, CategoryFamily, CategoryArt, CategoryFood,
	CategoryEducation, CategoryEntertainment, CategoryOutdoor, CategoryGeneral,
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// DateRange is the closed set of date buckets.
type DateRange string

const (
	DateToday        DateRange = "today"
	DateTomorrow     DateRange = "tomorrow"
	DateWeekend      DateRange = "weekend"
	DateThisWeek     DateRange = "this_week"
	DateNextWeek     DateRange = "next_week"
	DateThisMonth    DateRange = "this_month"
	DateSpecificDate DateRange = "specific_date"
	DateUpcoming     DateRange = "upcoming"
)

// DateRanges lists every valid date range.
var DateRanges = []DateRange{
	DateToday, DateTomorrow, DateWeekend, DateThisWeek,
	DateNextWeek, DateThisMonth, DateSpecificDate, DateUpcoming,
}

// Valid reports whether d is a member of the closed date range set.
func (d DateRange) Valid() bool {
	for _, v := range DateRanges {
		if d == v {
			return true
		}
	}
	return false
}

// PriceRange is the closed set of price buckets.
type PriceRange string

const (
	PriceFree   PriceRange = "free"
	PriceLow    PriceRange = "low"
	PriceMedium PriceRange = "medium"
	PriceHigh   PriceRange = "high"
)

// PriceRanges lists every valid price range.
var PriceRanges = []PriceRange{PriceFree, PriceLow, PriceMedium, PriceHigh}

// Valid reports whether p is a member of the closed price range set.
func (p PriceRange) Valid() bool {
	for _, v := range PriceRanges {
		if p == v {
			return true
		}
	}
	return false
}

// AgeRestriction is the closed set of audience restrictions.
type AgeRestriction string

const (
	AgeAllAges    AgeRestriction = "all_ages"
	AgeTeensAndUp AgeRestriction = "teens_and_up"
	AgeAdultsOnly AgeRestriction = "adults_only"
)

// AgeRestrictions lists every valid age restriction.
var AgeRestrictions = []AgeRestriction{AgeAllAges, AgeTeensAndUp, AgeAdultsOnly}

// Valid reports whether a is a member of the closed age restriction set.
func (a AgeRestriction) Valid() bool {
	for _, v := range AgeRestrictions {
		if a == v {
			return true
		}
	}
	return false
}

// SearchType selects a catalog source.
type SearchType string

const (
	SearchEvents     SearchType = "events"
	SearchBusinesses SearchType = "businesses"
	SearchOffers     SearchType = "offers"
)

// SearchTypes lists the catalog sources in their canonical query order.
var SearchTypes = []SearchType{SearchEvents, SearchBusinesses, SearchOffers}

// Valid reports whether s names a catalog source.
func (s SearchType) Valid() bool {
	for _, v := range SearchTypes {
		if s == v {
			return true
		}
	}
	return false
}

// CityNearMe is the sentinel city meaning "wherever the user is".
const CityNearMe = "near_me"

// CriteriaSource records which extractor produced a Criteria.
type CriteriaSource string

const (
	SourceRule   CriteriaSource = "rule"
	SourceRemote CriteriaSource = "remote"
)

// Criteria holds structured search constraints derived from free text.
// Every field is optional; the zero value means unconstrained.
type Criteria struct {
	Intent         string         `json:"intent,omitempty"`
	Category       Category       `json:"category,omitempty"`
	Subcategory    string         `json:"subcategory,omitempty"`
	DateRange      DateRange      `json:"date_range,omitempty"`
	City           string         `json:"city,omitempty"`
	Location       string         `json:"location,omitempty"`
	PriceRange     PriceRange     `json:"price_range,omitempty"`
	AgeRestriction AgeRestriction `json:"age_restriction,omitempty"`
	SearchTypes    []SearchType   `json:"search_types,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`

	// Set by intent resolution.
	ConversationID string         `json:"conversation_id,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	Source         CriteriaSource `json:"source,omitempty"`
}

// IsEmpty reports whether no extractable field is populated.
// Resolution annotations are ignored.
func (c *Criteria) IsEmpty() bool {
	return c.Intent == "" &&
		c.Category == "" &&
		c.Subcategory == "" &&
		c.DateRange == "" &&
		c.City == "" &&
		c.Location == "" &&
		c.PriceRange == "" &&
		c.AgeRestriction == "" &&
		len(c.SearchTypes) == 0 &&
		len(c.Keywords) == 0
}

// IsDefault reports whether c carries only the universal default of
// category general and date range upcoming.
func (c *Criteria) IsDefault() bool {
	rest := *c
	rest.Category, rest.DateRange = "", ""
	return c.Category == CategoryGeneral && c.DateRange == DateUpcoming && rest.IsEmpty()
}

// ApplyDefault fills the universal default when nothing was extracted.
func (c *Criteria) ApplyDefault() {
	if c.IsEmpty() {
		c.Category = CategoryGeneral
		c.DateRange = DateUpcoming
	}
}

// Sanitize drops every enum value outside its closed set and returns the
// names of the dropped fields.
func (c *Criteria) Sanitize() []string {
	var dropped []string
	if c.Category != "" && !c.Category.Valid() {
		c.Category = ""
		dropped = append(dropped, "category")
	}
	if c.DateRange != "" && !c.DateRange.Valid() {
		c.DateRange = ""
		dropped = append(dropped, "date_range")
	}
	if c.PriceRange != "" && !c.PriceRange.Valid() {
		c.PriceRange = ""
		dropped = append(dropped, "price_range")
	}
	if c.AgeRestriction != "" && !c.AgeRestriction.Valid() {
		c.AgeRestriction = ""
		dropped = append(dropped, "age_restriction")
	}
	if len(c.SearchTypes) > 0 {
		kept := make([]SearchType, 0, len(c.SearchTypes))
		for _, st := range c.SearchTypes {
			if st.Valid() {
				kept = append(kept, st)
			}
		}
		if len(kept) != len(c.SearchTypes) {
			dropped = append(dropped, "search_types")
		}
		if len(kept) == 0 {
			kept = nil
		}
		c.SearchTypes = kept
	}
	return dropped
}

// HasSearchType reports whether st is among the explicit search types.
func (c *Criteria) HasSearchType(st SearchType) bool {
	for _, v := range c.SearchTypes {
		if v == st {
			return true
		}
	}
	return false
}

// Blob returns the lower-cased text used to infer search types: category,
// intent and keywords joined by spaces.
func (c *Criteria) Blob() string {
	parts := make([]string, 0, len(c.Keywords)+2)
	if c.Category != "" {
		parts = append(parts, string(c.Category))
	}
	if c.Intent != "" {
		parts = append(parts, c.Intent)
	}
	parts = append(parts, c.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}
