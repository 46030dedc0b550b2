package store

import (
	"context"
	"fmt"
	"time"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

type seedEvent struct {
	id, title, description, location, city string
	category                               model.Category
	subcategory                            string
	price                                  model.PriceRange
	age                                    model.AgeRestriction
	inDays, hours                          int
	organizer                              string
}

var seedEvents = []seedEvent{
	{"evt-jazz-night", "Jazz Night at Blue Note", "An evening of smooth jazz with local saxophone, piano and bass players.",
		"Blue Note Jazz Club, 123 Music Street", "Boston", model.CategoryMusic, "jazz", model.PriceMedium, model.AgeAdultsOnly, 2, 3, "Blue Note Jazz Club"},
	{"evt-rock-festival", "Summer Rock Festival", "Local and regional bands with food trucks and merchandise.",
		"Central Park Amphitheater, 456 Park Avenue", "Boston", model.CategoryMusic, "rock", model.PriceMedium, model.AgeAllAges, 5, 6, "Boston Music Events"},
	{"evt-symphony", "Symphony Orchestra Performance", "Beethoven's 9th Symphony. Formal attire recommended.",
		"Symphony Hall, 301 Massachusetts Avenue", "Boston", model.CategoryMusic, "classical", model.PriceHigh, model.AgeAllAges, 7, 2, "Boston Symphony Orchestra"},
	{"evt-basketball", "Celtics vs Lakers", "Regular season home game.",
		"TD Garden, 100 Legends Way", "Boston", model.CategorySports, "basketball", model.PriceHigh, model.AgeAllAges, 3, 2, "Boston Celtics"},
	{"evt-spring-run", "Spring 10K", "A 5K and 10K run through the historic center. Includes t-shirt and medal.",
		"Boston Common, 139 Tremont Street", "Boston", model.CategorySports, "running", model.PriceMedium, model.AgeAllAges, 10, 4, "Boston Running Club"},
	{"evt-science-day", "Interactive Science Day", "Hands-on experiments and a dinosaur exhibit for kids.",
		"Children's Museum, 308 Congress Street", "Boston", model.CategoryFamily, "", model.PriceLow, model.AgeAllAges, 1, 5, "Children's Museum"},
	{"evt-park-picnic", "Family Picnic in the Park", "Free games, face painting and live storytelling.",
		"Riverside Park", "Cambridge", model.CategoryFamily, "", model.PriceFree, model.AgeAllAges, 6, 4, "Cambridge Parks"},
	{"evt-modern-art", "Modern Art Exhibition Opening", "Opening night with the artists and a guided tour.",
		"Institute of Contemporary Art, 25 Harbor Shore Drive", "Boston", model.CategoryArt, "painting", model.PriceLow, model.AgeAllAges, 4, 3, "ICA"},
	{"evt-food-festival", "Harbor Food Festival", "Tastings from thirty local restaurants and food trucks.",
		"Seaport Lawn", "Boston", model.CategoryFood, "", model.PriceMedium, model.AgeAllAges, 8, 6, "Seaport Events"},
	{"evt-wine-tasting", "Wine Tasting Evening", "Guided tasting of six regional wines.",
		"Vine Street Cellars", "Providence", model.CategoryFood, "wine", model.PriceHigh, model.AgeAdultsOnly, 12, 2, "Vine Street Cellars"},
	{"evt-python-workshop", "Intro to Python Workshop", "A beginner-friendly coding workshop. Bring a laptop.",
		"Public Library, 700 Boylston Street", "Boston", model.CategoryEducation, "", model.PriceFree, model.AgeTeensAndUp, 9, 3, "Code Boston"},
	{"evt-comedy", "Stand-up Comedy Night", "Five comedians, one stage.",
		"Laugh Box, 12 Tremont Street", "Boston", model.CategoryEntertainment, "", model.PriceLow, model.AgeAdultsOnly, 0, 2, "Laugh Box"},
}

var seedBusinesses = []model.Business{
	{ID: "biz-blue-note", Name: "Blue Note Jazz Club", Description: "Live jazz every night.", Phone: "+1-617-555-0101",
		Website: "https://example.com/bluenote", Address: "123 Music Street", City: "Boston", Category: "music venue"},
	{ID: "biz-harbor-grill", Name: "Harbor Grill", Description: "Seafood restaurant on the waterfront.", Phone: "+1-617-555-0102",
		Website: "https://example.com/harborgrill", Address: "1 Seaport Blvd", City: "Boston", Category: "restaurant"},
	{ID: "biz-corner-cafe", Name: "Corner Cafe", Description: "Coffee, pastries and sandwiches.", Phone: "+1-617-555-0103",
		Website: "https://example.com/cornercafe", Address: "45 Main Street", City: "Cambridge", Category: "cafe"},
	{ID: "biz-vine-street", Name: "Vine Street Cellars", Description: "Wine shop and tasting room.", Phone: "+1-401-555-0104",
		Website: "https://example.com/vinestreet", Address: "9 Vine Street", City: "Providence", Category: "shop"},
	{ID: "biz-laugh-box", Name: "Laugh Box", Description: "Comedy club with nightly shows.", Phone: "+1-617-555-0105",
		Website: "https://example.com/laughbox", Address: "12 Tremont Street", City: "Boston", Category: "venue"},
	{ID: "biz-city-books", Name: "City Books", Description: "Independent bookstore with author events.", Phone: "+1-617-555-0106",
		Website: "https://example.com/citybooks", Address: "88 Newbury Street", City: "Boston", Category: "store"},
}

type seedOffer struct {
	id, title, description, code, businessID, eventID string
	validDays                                         int
}

var seedOffers = []seedOffer{
	{"off-jazz-drink", "Free drink with jazz ticket", "Show your Jazz Night ticket at the bar.", "JAZZDRINK", "biz-blue-note", "evt-jazz-night", 3},
	{"off-harbor-lunch", "20% off weekday lunch", "Valid Monday to Friday before 3pm.", "LUNCH20", "biz-harbor-grill", "", 30},
	{"off-cafe-loyalty", "Buy 5 coffees, get 1 free", "Loyalty card available at the counter.", "", "biz-corner-cafe", "", 60},
	{"off-wine-tasting", "Two-for-one tasting", "Bring a friend to the Wine Tasting Evening.", "TASTE2", "biz-vine-street", "evt-wine-tasting", 12},
}

// Seed loads a sample catalog unless the catalog already has events.
// Times are relative to now. It reports whether anything was written.
func Seed(ctx context.Context, w CatalogWriter, now time.Time) (bool, error) {
	n, err := w.CountEvents(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	for _, se := range seedEvents {
		start := now.Add(time.Duration(se.inDays)*24*time.Hour + 2*time.Hour)
		end := start.Add(time.Duration(se.hours) * time.Hour)
		e := &model.Event{
			ID:             se.id,
			Title:          se.title,
			Description:    se.description,
			Location:       se.location,
			City:           se.city,
			Category:       se.category,
			Subcategory:    se.subcategory,
			PriceRange:     se.price,
			AgeRestriction: se.age,
			StartTime:      start,
			EndTime:        &end,
			TicketURL:      "https://example.com/tickets/" + se.id,
			Organizer:      se.organizer,
			Active:         true,
		}
		if err := w.AddEvent(ctx, e); err != nil {
			return false, fmt.Errorf("seed event %s: %w", se.id, err)
		}
	}

	for i := range seedBusinesses {
		if err := w.AddBusiness(ctx, &seedBusinesses[i]); err != nil {
			return false, fmt.Errorf("seed business %s: %w", seedBusinesses[i].ID, err)
		}
	}

	for _, so := range seedOffers {
		start := now.Add(-time.Hour)
		end := now.AddDate(0, 0, so.validDays)
		o := &model.Offer{
			ID:           so.id,
			Title:        so.title,
			Description:  so.description,
			DiscountCode: so.code,
			BusinessID:   so.businessID,
			EventID:      so.eventID,
			StartDate:    &start,
			EndDate:      &end,
			Active:       true,
		}
		if err := w.AddOffer(ctx, o); err != nil {
			return false, fmt.Errorf("seed offer %s: %w", so.id, err)
		}
	}
	return true, nil
}
