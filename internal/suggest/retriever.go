// Package suggest turns resolved criteria into a short list of catalog
// suggestions.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/internal/store"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/metrics"
	"github.com/capitalize-ai/event-concierge/pkg/tracing"
)

const (
	// MaxSuggestions caps the list returned by Retrieve.
	MaxSuggestions = 5
	// DefaultEventQueryLimit is the number of events fetched before truncation.
	DefaultEventQueryLimit = 20
	listLimit              = 5
)

var (
	businessKeywords = []string{
		"business", "businesses", "restaurant", "restaurants", "store", "stores",
		"shop", "shops", "cafe", "bar", "service", "services", "company",
		"companies", "venue", "venues", "place", "places", "establishment",
	}
	eventKeywords = []string{
		"event", "events", "concert", "concerts", "show", "shows", "exhibition",
		"exhibitions", "festival", "festivals", "tournament", "tournaments",
		"meeting", "meetings", "conference", "conferences", "workshop", "workshops",
		"performance", "performances", "gig", "gigs", "party", "parties",
	}
	offerKeywords = []string{
		"offer", "offers", "deal", "deals", "discount", "discounts",
		"promotion", "promotions", "sale", "sales", "special", "specials",
	}
)

// Retriever queries the catalog for the sources a criteria calls for.
type Retriever struct {
	catalog      store.Catalog
	eventLimit   int
	queryTimeout time.Duration
	logger       *logger.Logger
}

// NewRetriever creates a retriever. A non-positive eventLimit uses
// DefaultEventQueryLimit.
func NewRetriever(catalog store.Catalog, eventLimit int, log *logger.Logger) *Retriever {
	if eventLimit <= 0 {
		eventLimit = DefaultEventQueryLimit
	}
	return &Retriever{
		catalog:    catalog,
		eventLimit: eventLimit,
		logger:     log.With(zap.String("component", "suggest")),
	}
}

// WithQueryTimeout bounds each catalog query. Zero disables the bound.
func (r *Retriever) WithQueryTimeout(d time.Duration) *Retriever {
	r.queryTimeout = d
	return r
}

// SearchTypes returns the sources to query for c, in canonical order.
// Explicit search types win; otherwise the category, intent and keywords
// are scanned for source keywords, defaulting to events and businesses.
func SearchTypes(c model.Criteria) []model.SearchType {
	selected := make(map[model.SearchType]bool, len(model.SearchTypes))

	if len(c.SearchTypes) > 0 {
		for _, st := range c.SearchTypes {
			selected[st] = true
		}
	} else {
		blob := c.Blob()
		selected[model.SearchBusinesses] = containsAny(blob, businessKeywords)
		selected[model.SearchEvents] = containsAny(blob, eventKeywords)
		selected[model.SearchOffers] = containsAny(blob, offerKeywords)
		if !selected[model.SearchBusinesses] && !selected[model.SearchEvents] && !selected[model.SearchOffers] {
			selected[model.SearchEvents] = true
			selected[model.SearchBusinesses] = true
		}
	}

	types := make([]model.SearchType, 0, len(model.SearchTypes))
	for _, st := range model.SearchTypes {
		if selected[st] {
			types = append(types, st)
		}
	}
	return types
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Retrieve returns at most MaxSuggestions items for c. Sources are queried
// concurrently and their results concatenated in canonical order. A failed
// source contributes nothing.
func (r *Retriever) Retrieve(ctx context.Context, c model.Criteria) []model.SuggestedItem {
	ctx, span := tracing.Tracer().Start(ctx, "suggest.Retrieve")
	defer span.End()

	types := SearchTypes(c)
	span.SetAttributes(attribute.Int("search_types", len(types)))

	results := make([][]model.SuggestedItem, len(types))
	var g errgroup.Group
	for i, st := range types {
		g.Go(func() error {
			results[i] = r.query(ctx, st, c)
			return nil
		})
	}
	_ = g.Wait()

	var items []model.SuggestedItem
	for _, res := range results {
		items = append(items, res...)
	}

	if len(items) == 0 && hasType(types, model.SearchEvents) && !hasType(types, model.SearchBusinesses) {
		r.logger.Debug("no results, trying businesses",
			zap.String("conversation_id", c.ConversationID),
		)
		items = r.query(ctx, model.SearchBusinesses, c)
	}

	if len(items) > MaxSuggestions {
		items = items[:MaxSuggestions]
	}
	if items == nil {
		items = []model.SuggestedItem{}
	}

	metrics.SuggestionsReturned.Observe(float64(len(items)))
	span.SetAttributes(attribute.Int("suggestions", len(items)))
	return items
}

func hasType(types []model.SearchType, want model.SearchType) bool {
	for _, st := range types {
		if st == want {
			return true
		}
	}
	return false
}

// query runs one source and projects its rows. Failures are logged and
// yield nil.
func (r *Retriever) query(ctx context.Context, st model.SearchType, c model.Criteria) []model.SuggestedItem {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	var items []model.SuggestedItem
	var err error

	switch st {
	case model.SearchEvents:
		var events []model.Event
		if events, err = r.catalog.QueryEvents(ctx, c, r.eventLimit); err == nil {
			for _, e := range events {
				items = append(items, model.EventSuggestion(e))
			}
		}
	case model.SearchBusinesses:
		var businesses []model.Business
		if businesses, err = r.catalog.ListBusinesses(ctx, listLimit); err == nil {
			for _, b := range businesses {
				items = append(items, model.BusinessSuggestion(b))
			}
		}
	case model.SearchOffers:
		var offers []model.Offer
		if offers, err = r.catalog.ListOffers(ctx, listLimit); err == nil {
			for _, o := range offers {
				items = append(items, model.OfferSuggestion(o))
			}
		}
	default:
		return nil
	}

	if err != nil {
		err = fmt.Errorf("%w: %s: %w", model.ErrCatalogQueryFailed, st, err)
		metrics.CatalogQueryFailures.WithLabelValues(string(st)).Inc()
		r.logger.Warn("catalog query failed",
			zap.String("search_type", string(st)),
			zap.String("conversation_id", c.ConversationID),
			zap.Error(err),
		)
		return nil
	}
	return items
}
