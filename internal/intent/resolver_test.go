package intent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/event-concierge/internal/model"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
)

type fakeRemote struct {
	ExtractFunc func(ctx context.Context, text string) (model.Criteria, error)
	calls       int
}

func (f *fakeRemote) Extract(ctx context.Context, text string) (model.Criteria, error) {
	f.calls++
	return f.ExtractFunc(ctx, text)
}

func failingRemote(err error) *fakeRemote {
	return &fakeRemote{ExtractFunc: func(context.Context, string) (model.Criteria, error) {
		return model.Criteria{}, err
	}}
}

var fixedNow = time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)

func newTestResolver(remote RemoteExtractor) (*Resolver, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewResolver(remote, NewExtractor(), logger.Wrap(zap.New(core)))
	r.now = func() time.Time { return fixedNow }
	return r, logs
}

func TestResolveFallsBackToRules(t *testing.T) {
	failures := []error{
		fmt.Errorf("%w: dial tcp: connection refused", model.ErrRemoteUnavailable),
		fmt.Errorf("%w: context deadline exceeded", model.ErrRemoteUnavailable),
		fmt.Errorf("%w: no JSON object", model.ErrMalformedResponse),
		fmt.Errorf("%w: category", model.ErrInvalidFields),
		errors.New("unexpected"),
	}
	texts := []string{
		"What music events are happening this weekend in Boston?",
		"free family events",
		"blorp",
	}

	for _, failure := range failures {
		for _, text := range texts {
			t.Run(failure.Error()+"/"+text, func(t *testing.T) {
				remote := failingRemote(failure)
				r, logs := newTestResolver(remote)

				got := r.Resolve(context.Background(), text, "conv-1")

				want := NewExtractor().Extract(text)
				want.ConversationID = "conv-1"
				want.ResolvedAt = &fixedNow

				assert.Equal(t, want, got.Criteria)
				assert.True(t, got.UsedFallback())
				assert.ErrorIs(t, got.Fallback, failure)
				assert.Equal(t, 1, remote.calls, "exactly one remote attempt")
				assert.Equal(t, 1, logs.FilterMessage("intent resolution fell back to rules").Len())
			})
		}
	}
}

func TestResolveUsesRemoteResult(t *testing.T) {
	remote := &fakeRemote{ExtractFunc: func(context.Context, string) (model.Criteria, error) {
		return model.Criteria{
			Intent:      "search_offers",
			Category:    model.CategoryFood,
			SearchTypes: []model.SearchType{model.SearchOffers},
			Source:      model.SourceRemote,
		}, nil
	}}
	r, logs := newTestResolver(remote)

	got := r.Resolve(context.Background(), "any restaurant deals?", "conv-2")

	require.False(t, got.UsedFallback())
	assert.Equal(t, model.CategoryFood, got.Criteria.Category)
	assert.Equal(t, model.SourceRemote, got.Criteria.Source)
	assert.Equal(t, "conv-2", got.Criteria.ConversationID)
	require.NotNil(t, got.Criteria.ResolvedAt)
	assert.Equal(t, fixedNow, *got.Criteria.ResolvedAt)
	assert.Zero(t, logs.FilterMessage("intent resolution fell back to rules").Len())
}

func TestResolveWithoutRemote(t *testing.T) {
	r, logs := newTestResolver(nil)

	got := r.Resolve(context.Background(), "free family events", "conv-3")

	assert.ErrorIs(t, got.Fallback, model.ErrRemoteUnavailable)
	assert.Equal(t, model.CategoryFamily, got.Criteria.Category)
	assert.Equal(t, model.SourceRule, got.Criteria.Source)
	assert.Equal(t, 1, logs.FilterMessage("intent resolution fell back to rules").Len())
}
