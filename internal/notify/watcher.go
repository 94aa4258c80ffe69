package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/solwatch/arbedge/internal/domain"
)

// transitionEvent mirrors the payload the lifecycle manager publishes on the
// edges.transitions channel.
type transitionEvent struct {
	EdgeID string `json:"edge_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	At     string `json:"at"`
}

// Watcher subscribes to edge transition events on the bus and turns them
// into operator alerts.
type Watcher struct {
	bus      domain.EventBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher over the given bus and notifier.
func NewWatcher(bus domain.EventBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run consumes transition events until the context is cancelled. Malformed
// payloads are logged and skipped.
func (w *Watcher) Run(ctx context.Context) error {
	ch, err := w.bus.Subscribe(ctx, "edges.transitions")
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}

	w.logger.InfoContext(ctx, "transition watcher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}

			var ev transitionEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				w.logger.WarnContext(ctx, "malformed transition event",
					slog.String("error", err.Error()),
				)
				continue
			}

			title := fmt.Sprintf("edge %s", ev.To)
			message := fmt.Sprintf("edge %s moved %s -> %s at %s", ev.EdgeID, ev.From, ev.To, ev.At)
			if err := w.notifier.Notify(ctx, ev.To, title, message); err != nil {
				w.logger.WarnContext(ctx, "alert delivery failed",
					slog.String("edge_id", ev.EdgeID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
