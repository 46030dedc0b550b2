package store

import (
	"strings"
	"time"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// DateWindow converts a date range bucket into a start-time window relative
// to now. A zero end means the window is open. Unknown buckets, including
// specific_date whose actual date is not carried in the criteria, mean
// "upcoming".
func DateWindow(now time.Time, dr model.DateRange) (from, to time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	daysToMonday := (8 - int(today.Weekday())) % 7
	if daysToMonday == 0 {
		daysToMonday = 7
	}
	nextMonday := today.AddDate(0, 0, daysToMonday)

	switch dr {
	case model.DateToday:
		return now, today.AddDate(0, 0, 1)
	case model.DateTomorrow:
		return today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)
	case model.DateWeekend:
		saturday := nextMonday.AddDate(0, 0, -2)
		if now.After(saturday) {
			return now, nextMonday
		}
		return saturday, nextMonday
	case model.DateThisWeek:
		return now, nextMonday
	case model.DateNextWeek:
		return nextMonday, nextMonday.AddDate(0, 0, 7)
	case model.DateThisMonth:
		firstOfNext := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		return now, firstOfNext
	default:
		return now, time.Time{}
	}
}

// cityFilter returns the lower-cased city to filter on, or "" when the
// criteria do not constrain the city.
func cityFilter(c model.Criteria) string {
	city := strings.ToLower(strings.TrimSpace(c.City))
	if city == model.CityNearMe {
		return ""
	}
	return city
}

// categoryFilter returns the category to filter on, or "" for general.
func categoryFilter(c model.Criteria) model.Category {
	if c.Category == model.CategoryGeneral {
		return ""
	}
	return c.Category
}

// matchEvent applies the same filters as the SQL event query. Events
// without a price or age tag are not excluded by those filters.
func matchEvent(e model.Event, c model.Criteria, now time.Time) bool {
	if !e.Active {
		return false
	}
	from, to := DateWindow(now, c.DateRange)
	if e.StartTime.Before(from) || (!to.IsZero() && !e.StartTime.Before(to)) {
		return false
	}
	if city := cityFilter(c); city != "" {
		if strings.ToLower(e.City) != city && !strings.Contains(strings.ToLower(e.Location), city) {
			return false
		}
	}
	if cat := categoryFilter(c); cat != "" && e.Category != cat {
		return false
	}
	if c.Subcategory != "" && !strings.EqualFold(e.Subcategory, c.Subcategory) {
		return false
	}
	if c.PriceRange != "" && e.PriceRange != "" && e.PriceRange != c.PriceRange {
		return false
	}
	if c.AgeRestriction != "" && e.AgeRestriction != "" && e.AgeRestriction != c.AgeRestriction {
		return false
	}
	return true
}
