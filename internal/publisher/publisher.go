// Package publisher fans session snapshots out to sinks without blocking the session.
package publisher

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Event names published by the session.
const (
	EventHubConfig    = "HubConfig"
	EventPlayers      = "Players"
	EventPackInfo     = "PackInfo"
	EventRound        = "Round"
	EventQuestion     = "Question"
	EventGameState    = "GameState"
	EventRoundStats   = "RoundStats"
	EventFinalResults = "FinalResults"
)

// Event carries a full snapshot, so the latest event of a name is enough to render it.
type Event struct {
	Name        string    `json:"event"`
	Seq         uint64    `json:"seq"`
	Payload     any       `json:"payload"`
	PublishedAt time.Time `json:"publishedAt"`
}

type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (that SinkFunc) Deliver(ctx context.Context, event Event) error {
	return that(ctx, event)
}

type Publisher struct {
	logger *slog.Logger
	queue  chan Event

	mu      sync.Mutex
	seq     uint64
	latest  map[string]Event
	dropped uint64

	sinksMutex sync.RWMutex
	sinks      []Sink
}

func New(logger *slog.Logger, bufferSize int, sinks ...Sink) *Publisher {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &Publisher{
		logger: logger.With("component", "publisher"),
		queue:  make(chan Event, bufferSize),
		latest: make(map[string]Event),
		sinks:  sinks,
	}
}

func (that *Publisher) AddSink(sink Sink) {
	that.sinksMutex.Lock()
	defer that.sinksMutex.Unlock()

	that.sinks = append(that.sinks, sink)
}

// Publish never blocks: when the queue is full the oldest queued event is dropped.
// The latest event of each name is always kept for late subscribers.
func (that *Publisher) Publish(name string, payload any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.seq++
	event := Event{
		Name:        name,
		Seq:         that.seq,
		Payload:     payload,
		PublishedAt: time.Now(),
	}
	that.latest[name] = event

	for {
		select {
		case that.queue <- event:
			return
		default:
		}

		select {
		case old := <-that.queue:
			that.dropped++
			that.logger.Warn("queue full, dropped oldest event", "event", old.Name, "seq", old.Seq)
		default:
		}
	}
}

// Latest returns the most recent event of every name, in publish order.
func (that *Publisher) Latest() []Event {
	that.mu.Lock()
	events := make([]Event, 0, len(that.latest))
	for _, event := range that.latest {
		events = append(events, event)
	}
	that.mu.Unlock()

	sort.Slice(events, func(i, j int) bool {
		return events[i].Seq < events[j].Seq
	})

	return events
}

func (that *Publisher) LatestByName(name string) (Event, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	event, ok := that.latest[name]

	return event, ok
}

func (that *Publisher) Dropped() uint64 {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.dropped
}

// Run delivers queued events to every sink until ctx is canceled.
func (that *Publisher) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")

	for {
		select {
		case <-ctx.Done():
			log.Info("publisher stopped")
			return
		case event := <-that.queue:
			that.deliver(ctx, event)
		}
	}
}

func (that *Publisher) deliver(ctx context.Context, event Event) {
	that.sinksMutex.RLock()
	sinks := append([]Sink(nil), that.sinks...)
	that.sinksMutex.RUnlock()

	for _, sink := range sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			that.logger.Error("failed to deliver event", "event", event.Name, "seq", event.Seq, "error", err)
		}
	}
}
