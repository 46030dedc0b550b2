package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// QueryEvents returns active events matching the criteria's city, category,
// subcategory, price, age and date window, ordered by start time.
func (s *SQLiteStore) QueryEvents(ctx context.Context, c model.Criteria, limit int) ([]model.Event, error) {
	from, to := DateWindow(s.now(), c.DateRange)

	var where []string
	args := []any{}

	where = append(where, "active = 1", "start_time >= ?")
	args = append(args, from.UnixMilli())
	if !to.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, to.UnixMilli())
	}
	if city := cityFilter(c); city != "" {
		where = append(where, "(LOWER(city) = ? OR LOWER(location) LIKE ?)")
		args = append(args, city, "%"+city+"%")
	}
	if cat := categoryFilter(c); cat != "" {
		where = append(where, "category = ?")
		args = append(args, string(cat))
	}
	if c.Subcategory != "" {
		where = append(where, "LOWER(subcategory) = ?")
		args = append(args, strings.ToLower(c.Subcategory))
	}
	if c.PriceRange != "" {
		where = append(where, "(price_range = '' OR price_range = ?)")
		args = append(args, string(c.PriceRange))
	}
	if c.AgeRestriction != "" {
		where = append(where, "(age_restriction = '' OR age_restriction = ?)")
		args = append(args, string(c.AgeRestriction))
	}

	query := `SELECT id, title, description, location, city, category, subcategory,
			price_range, age_restriction, start_time, end_time, ticket_url, organizer, active
		FROM events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_time ASC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: events: %v", model.ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	events := make([]model.Event, 0, limit)
	for rows.Next() {
		var e model.Event
		var category, priceRange, ageRestriction string
		var startTime int64
		var endTime sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.City, &category, &e.Subcategory,
			&priceRange, &ageRestriction, &startTime, &endTime, &e.TicketURL, &e.Organizer, &e.Active); err != nil {
			return nil, fmt.Errorf("%w: scan event row: %v", model.ErrCatalogQueryFailed, err)
		}
		e.Category = model.Category(category)
		e.PriceRange = model.PriceRange(priceRange)
		e.AgeRestriction = model.AgeRestriction(ageRestriction)
		e.StartTime = time.UnixMilli(startTime)
		e.EndTime = millisPtr(endTime)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate events: %v", model.ErrCatalogQueryFailed, err)
	}
	return events, nil
}

// ListBusinesses returns businesses ordered by name.
func (s *SQLiteStore) ListBusinesses(ctx context.Context, limit int) ([]model.Business, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, phone, website, address, city, category
		FROM businesses
		ORDER BY name
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: businesses: %v", model.ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	businesses := make([]model.Business, 0, limit)
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Phone, &b.Website, &b.Address, &b.City, &b.Category); err != nil {
			return nil, fmt.Errorf("%w: scan business row: %v", model.ErrCatalogQueryFailed, err)
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate businesses: %v", model.ErrCatalogQueryFailed, err)
	}
	return businesses, nil
}

// ListOffers returns active offers whose validity window contains now.
func (s *SQLiteStore) ListOffers(ctx context.Context, limit int) ([]model.Offer, error) {
	now := s.now().UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, discount_code, business_id, event_id, start_date, end_date, active
		FROM offers
		WHERE active = 1
		  AND (start_date IS NULL OR start_date <= ?)
		  AND (end_date IS NULL OR end_date > ?)
		ORDER BY COALESCE(end_date, 9223372036854775807), title
		LIMIT ?`, now, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: offers: %v", model.ErrCatalogQueryFailed, err)
	}
	defer rows.Close()

	offers := make([]model.Offer, 0, limit)
	for rows.Next() {
		var o model.Offer
		var startDate, endDate sql.NullInt64
		if err := rows.Scan(&o.ID, &o.Title, &o.Description, &o.DiscountCode, &o.BusinessID, &o.EventID,
			&startDate, &endDate, &o.Active); err != nil {
			return nil, fmt.Errorf("%w: scan offer row: %v", model.ErrCatalogQueryFailed, err)
		}
		o.StartDate = millisPtr(startDate)
		o.EndDate = millisPtr(endDate)
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate offers: %v", model.ErrCatalogQueryFailed, err)
	}
	return offers, nil
}

// AddEvent inserts or replaces an event.
func (s *SQLiteStore) AddEvent(ctx context.Context, e *model.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, location, city, category, subcategory,
			price_range, age_restriction, start_time, end_time, ticket_url, organizer, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			city = excluded.city,
			category = excluded.category,
			subcategory = excluded.subcategory,
			price_range = excluded.price_range,
			age_restriction = excluded.age_restriction,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			ticket_url = excluded.ticket_url,
			organizer = excluded.organizer,
			active = excluded.active`,
		e.ID, e.Title, e.Description, e.Location, e.City, string(e.Category), e.Subcategory,
		string(e.PriceRange), string(e.AgeRestriction), e.StartTime.UnixMilli(), timeMillis(e.EndTime),
		e.TicketURL, e.Organizer, e.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

// AddBusiness inserts or replaces a business.
func (s *SQLiteStore) AddBusiness(ctx context.Context, b *model.Business) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, description, phone, website, address, city, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			phone = excluded.phone,
			website = excluded.website,
			address = excluded.address,
			city = excluded.city,
			category = excluded.category`,
		b.ID, b.Name, b.Description, b.Phone, b.Website, b.Address, b.City, b.Category,
	)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

// AddOffer inserts or replaces an offer.
func (s *SQLiteStore) AddOffer(ctx context.Context, o *model.Offer) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offers (id, title, description, discount_code, business_id, event_id, start_date, end_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			discount_code = excluded.discount_code,
			business_id = excluded.business_id,
			event_id = excluded.event_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active`,
		o.ID, o.Title, o.Description, o.DiscountCode, o.BusinessID, o.EventID,
		timeMillis(o.StartDate), timeMillis(o.EndDate), o.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert offer: %w", err)
	}
	return nil
}

// CountEvents returns the number of events in the catalog.
func (s *SQLiteStore) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func timeMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
