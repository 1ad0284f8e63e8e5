package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes each event at debug level.
type LogPublisher struct {
	log *zap.SugaredLogger
}

func NewLogPublisher(log *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, events ...Event) {
	for _, e := range events {
		p.log.Debugw("invalidate", "kind", e.Kind, "id", e.ID, "action", e.Action, "tags", e.Tags())
	}
}
