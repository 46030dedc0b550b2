package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

type fakeCatalog struct {
	QueryEventsFunc    func(ctx context.Context, c model.Criteria, limit int) ([]model.Event, error)
	ListBusinessesFunc func(ctx context.Context, limit int) ([]model.Business, error)
	ListOffersFunc     func(ctx context.Context, limit int) ([]model.Offer, error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeCatalog) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeCatalog) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeCatalog) QueryEvents(ctx context.Context, c model.Criteria, limit int) ([]model.Event, error) {
	f.record("events")
	if f.QueryEventsFunc == nil {
		return nil, nil
	}
	return f.QueryEventsFunc(ctx, c, limit)
}

func (f *fakeCatalog) ListBusinesses(ctx context.Context, limit int) ([]model.Business, error) {
	f.record("businesses")
	if f.ListBusinessesFunc == nil {
		return nil, nil
	}
	return f.ListBusinessesFunc(ctx, limit)
}

func (f *fakeCatalog) ListOffers(ctx context.Context, limit int) ([]model.Offer, error) {
	f.record("offers")
	if f.ListOffersFunc == nil {
		return nil, nil
	}
	return f.ListOffersFunc(ctx, limit)
}

func events(n int) func(context.Context, model.Criteria, int) ([]model.Event, error) {
	return func(_ context.Context, _ model.Criteria, limit int) ([]model.Event, error) {
		out := make([]model.Event, 0, n)
		for i := range min(n, limit) {
			out = append(out, model.Event{ID: fmt.Sprintf("e%d", i+1), Title: fmt.Sprintf("Event %d", i+1)})
		}
		return out, nil
	}
}

func businesses(n int) func(context.Context, int) ([]model.Business, error) {
	return func(_ context.Context, limit int) ([]model.Business, error) {
		out := make([]model.Business, 0, n)
		for i := range min(n, limit) {
			out = append(out, model.Business{ID: fmt.Sprintf("b%d", i+1), Name: fmt.Sprintf("Business %d", i+1)})
		}
		return out, nil
	}
}

func offers(n int) func(context.Context, int) ([]model.Offer, error) {
	return func(_ context.Context, limit int) ([]model.Offer, error) {
		out := make([]model.Offer, 0, n)
		for i := range min(n, limit) {
			out = append(out, model.Offer{ID: fmt.Sprintf("o%d", i+1), Title: fmt.Sprintf("Offer %d", i+1)})
		}
		return out, nil
	}
}

func itemIDs(items []model.SuggestedItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	return ids
}

func TestSearchTypes(t *testing.T) {
	tests := []struct {
		name     string
		criteria model.Criteria
		want     []model.SearchType
	}{
		{
			name:     "explicit types are canonicalized",
			criteria: model.Criteria{SearchTypes: []model.SearchType{model.SearchOffers, model.SearchEvents}},
			want:     []model.SearchType{model.SearchEvents, model.SearchOffers},
		},
		{
			name:     "explicit types ignore keywords",
			criteria: model.Criteria{Intent: "find restaurant deals", SearchTypes: []model.SearchType{model.SearchEvents}},
			want:     []model.SearchType{model.SearchEvents},
		},
		{
			name:     "business keyword",
			criteria: model.Criteria{Category: model.CategoryFood, Keywords: []string{"restaurant"}},
			want:     []model.SearchType{model.SearchBusinesses},
		},
		{
			name:     "event and offer keywords",
			criteria: model.Criteria{Intent: "concert discounts"},
			want:     []model.SearchType{model.SearchEvents, model.SearchOffers},
		},
		{
			name:     "no keywords defaults to events and businesses",
			criteria: model.Criteria{Category: model.CategoryMusic},
			want:     []model.SearchType{model.SearchEvents, model.SearchBusinesses},
		},
		{
			name:     "empty criteria",
			criteria: model.Criteria{},
			want:     []model.SearchType{model.SearchEvents, model.SearchBusinesses},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchTypes(tt.criteria))
		})
	}
}

func TestRetrieveConcatenatesInCanonicalOrder(t *testing.T) {
	catalog := &fakeCatalog{
		QueryEventsFunc:    events(3),
		ListBusinessesFunc: businesses(4),
	}
	r := NewRetriever(catalog, 20, logger.NewNop())

	got := r.Retrieve(context.Background(), model.Criteria{Category: model.CategoryMusic})

	assert.Equal(t, []string{"e1", "e2", "e3", "b1", "b2"}, itemIDs(got))
	assert.Equal(t, model.ItemEvent, got[0].Type)
	assert.Equal(t, model.ItemBusiness, got[3].Type)
}

func TestRetrieveNeverExceedsMax(t *testing.T) {
	catalog := &fakeCatalog{
		QueryEventsFunc:    events(30),
		ListBusinessesFunc: businesses(5),
		ListOffersFunc:     offers(5),
	}
	r := NewRetriever(catalog, 0, logger.NewNop())

	all := []model.SearchType{model.SearchEvents, model.SearchBusinesses, model.SearchOffers}
	got := r.Retrieve(context.Background(), model.Criteria{SearchTypes: all})

	assert.Len(t, got, MaxSuggestions)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5"}, itemIDs(got))
}

func TestRetrieveEventLimit(t *testing.T) {
	var gotLimit int
	catalog := &fakeCatalog{QueryEventsFunc: func(_ context.Context, _ model.Criteria, limit int) ([]model.Event, error) {
		gotLimit = limit
		return nil, nil
	}}
	r := NewRetriever(catalog, 0, logger.NewNop())

	r.Retrieve(context.Background(), model.Criteria{SearchTypes: []model.SearchType{model.SearchEvents}})

	assert.Equal(t, DefaultEventQueryLimit, gotLimit)
}

func TestRetrieveAllEmpty(t *testing.T) {
	catalog := &fakeCatalog{}
	r := NewRetriever(catalog, 20, logger.NewNop())

	got := r.Retrieve(context.Background(), model.Criteria{})

	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, catalog.count("businesses"), "businesses was selected, so no supplementary query")
}

func TestRetrieveSupplementaryBusinesses(t *testing.T) {
	catalog := &fakeCatalog{ListBusinessesFunc: businesses(2)}
	r := NewRetriever(catalog, 20, logger.NewNop())

	got := r.Retrieve(context.Background(), model.Criteria{SearchTypes: []model.SearchType{model.SearchEvents}})

	assert.Equal(t, []string{"b1", "b2"}, itemIDs(got))
	assert.Equal(t, 1, catalog.count("businesses"))
}

func TestRetrieveNoSupplementWithoutEvents(t *testing.T) {
	catalog := &fakeCatalog{ListBusinessesFunc: businesses(2)}
	r := NewRetriever(catalog, 20, logger.NewNop())

	got := r.Retrieve(context.Background(), model.Criteria{SearchTypes: []model.SearchType{model.SearchOffers}})

	assert.Empty(t, got)
	assert.Zero(t, catalog.count("businesses"))
}

func TestRetrieveIsolatesFailures(t *testing.T) {
	catalog := &fakeCatalog{
		QueryEventsFunc: func(context.Context, model.Criteria, int) ([]model.Event, error) {
			return nil, errors.New("disk I/O error")
		},
		ListBusinessesFunc: businesses(2),
		ListOffersFunc:     offers(1),
	}
	r := NewRetriever(catalog, 20, logger.NewNop())

	all := []model.SearchType{model.SearchEvents, model.SearchBusinesses, model.SearchOffers}
	got := r.Retrieve(context.Background(), model.Criteria{SearchTypes: all})

	assert.Equal(t, []string{"b1", "b2", "o1"}, itemIDs(got))
}

func TestRetrieveAllSourcesFail(t *testing.T) {
	boom := func(context.Context, int) ([]model.Business, error) { return nil, errors.New("boom") }
	catalog := &fakeCatalog{
		QueryEventsFunc: func(context.Context, model.Criteria, int) ([]model.Event, error) {
			return nil, errors.New("boom")
		},
		ListBusinessesFunc: boom,
	}
	r := NewRetriever(catalog, 20, logger.NewNop())

	got := r.Retrieve(context.Background(), model.Criteria{})

	assert.Empty(t, got)
}

func TestRetrievePassesCriteriaToEvents(t *testing.T) {
	var seen model.Criteria
	catalog := &fakeCatalog{QueryEventsFunc: func(_ context.Context, c model.Criteria, _ int) ([]model.Event, error) {
		seen = c
		return []model.Event{{ID: "jazz", Title: "Jazz Night", TicketURL: "https://example.com/t"}}, nil
	}}
	r := NewRetriever(catalog, 20, logger.NewNop())

	criteria := model.Criteria{Category: model.CategoryMusic, City: "boston", SearchTypes: []model.SearchType{model.SearchEvents}}
	got := r.Retrieve(context.Background(), criteria)

	assert.Equal(t, criteria, seen)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/t", got[0].Link)
}

func TestRetrieveQueryTimeout(t *testing.T) {
	catalog := &fakeCatalog{
		QueryEventsFunc: func(ctx context.Context, _ model.Criteria, _ int) ([]model.Event, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		ListBusinessesFunc: businesses(2),
	}
	r := NewRetriever(catalog, 0, logger.NewNop()).WithQueryTimeout(20 * time.Millisecond)

	items := r.Retrieve(context.Background(), model.Criteria{
		SearchTypes: []model.SearchType{model.SearchEvents, model.SearchBusinesses},
	})

	require.Len(t, items, 2)
	assert.Equal(t, model.ItemBusiness, items[0].Type)
}
