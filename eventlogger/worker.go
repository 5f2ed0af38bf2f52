package eventlogger

import (
	"context"
	"log/slog"
	"sync"
)

// Worker saves events in the background so that request handlers never
// wait on the audit table.
type Worker struct {
	eventCh chan Event
	logger  EventLogger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorker(logger EventLogger, bufferSize int) *Worker {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining events before shutdown", "remaining_events", len(w.eventCh))
				for {
					select {
					case event := <-w.eventCh:
						w.save(context.Background(), event)
					default:
						return
					}
				}
			case event := <-w.eventCh:
				w.save(w.ctx, event)
			}
		}
	})
}

func (w *Worker) save(ctx context.Context, event Event) {
	if err := w.logger.Save(ctx, event); err != nil {
		slog.Error("failed to save event", "error", err, "event_type", event.Type, "trip_id", event.TripID)
	}
}

// Log queues an event, dropping it if the buffer is full.
func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		slog.Warn("event channel full, dropping event", "event_type", event.Type)
	}
}

// Record queues a ledger change. The trip is taken from the payload when it
// carries one, and metadata from ctx (see ContextWithMetadata).
func (w *Worker) Record(ctx context.Context, eventType string, data any) {
	opts := []EventOption{WithType(eventType), WithData(data)}
	if scoped, ok := data.(tripScoped); ok {
		opts = append(opts, WithTrip(scoped.Trip()))
	}
	for key, value := range metadataFrom(ctx) {
		opts = append(opts, WithMetadata(key, value))
	}
	w.Log(NewEvent(opts...))
}

// Shutdown stops the worker after saving whatever is still queued.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
