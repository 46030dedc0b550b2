package model

import (
	"fmt"
	"time"
)

// Event is a scheduled catalog entry.
type Event struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Location       string         `json:"location,omitempty"`
	City           string         `json:"city,omitempty"`
	Category       Category       `json:"category,omitempty"`
	Subcategory    string         `json:"subcategory,omitempty"`
	PriceRange     PriceRange     `json:"price_range,omitempty"`
	AgeRestriction AgeRestriction `json:"age_restriction,omitempty"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	TicketURL      string         `json:"ticket_url,omitempty"`
	Organizer      string         `json:"organizer,omitempty"`
	Active         bool           `json:"active"`
}

// Business is a venue or service provider.
type Business struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Offer is a promotion attached to a business or event.
type Offer struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DiscountCode string     `json:"discount_code,omitempty"`
	BusinessID   string     `json:"business_id,omitempty"`
	EventID      string     `json:"event_id,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Active       bool       `json:"active"`
}

// ItemType tags the catalog kind a suggestion was projected from.
type ItemType string

const (
	ItemEvent    ItemType = "event"
	ItemBusiness ItemType = "business"
	ItemOffer    ItemType = "offer"
)

// SuggestedItem is a lightweight projection of a catalog entity.
type SuggestedItem struct {
	Type        ItemType `json:"type"`
	ItemID      string   `json:"item_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// String renders the item for prompts.
func (s SuggestedItem) String() string {
	if s.Description == "" {
		return fmt.Sprintf("%s: %s", s.Type, s.Title)
	}
	return fmt.Sprintf("%s: %s - %s", s.Type, s.Title, s.Description)
}

// EventSuggestion projects an event.
func EventSuggestion(e Event) SuggestedItem {
	return SuggestedItem{Type: ItemEvent, ItemID: e.ID, Title: e.Title, Description: e.Description, Link: e.TicketURL}
}

// BusinessSuggestion projects a business.
func BusinessSuggestion(b Business) SuggestedItem {
	return SuggestedItem{Type: ItemBusiness, ItemID: b.ID, Title: b.Name, Description: b.Description, Link: b.Website}
}

// OfferSuggestion projects an offer.
func OfferSuggestion(o Offer) SuggestedItem {
	return SuggestedItem{Type: ItemOffer, ItemID: o.ID, Title: o.Title, Description: o.Description}
}

// ListSuggestionsResponse is the response for listing stored suggestions.
type ListSuggestionsResponse struct {
	Suggestions []SuggestedItem `json:"suggestions"`
}
