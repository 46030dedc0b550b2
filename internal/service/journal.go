package service

import (
	"context"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

// Journal receives an append-only record of pipeline activity. Publish
// failures never fail the pipeline.
type Journal interface {
	RecordMessage(ctx context.Context, msg *model.Message) error
	RecordEvent(ctx context.Context, event *model.PipelineEvent) error
}

type nopJournal struct{}

func (nopJournal) RecordMessage(context.Context, *model.Message) error     { return nil }
func (nopJournal) RecordEvent(context.Context, *model.PipelineEvent) error { return nil }
