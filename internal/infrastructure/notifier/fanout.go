package notifier

import (
	"context"
	"log/slog"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/pkg/logx"
)

// Sink один канал доставки событий.
type Sink interface {
	SendEvent(ctx context.Context, event entity.DealEvent) error
}

// Fanout читает события движка из канала и раздаёт их по всем приёмникам.
// Отказ одного приёмника не мешает остальным: доставка best-effort, сам
// движок события не теряет, пока канал жив.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Run запускает обработку событий из канала.
func (f *Fanout) Run(ctx context.Context, events <-chan entity.DealEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}

			for _, sink := range f.sinks {
				if err := sink.SendEvent(ctx, event); err != nil {
					logger(ctx).Error("failed to send event",
						slog.String(logx.FieldDealID, event.DealID),
						slog.String(logx.FieldStatus, event.Status.String()),
						logx.Error(err),
					)
				}
			}
		}
	}
}
