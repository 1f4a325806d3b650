package ingest

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/railcontrol/sectiontwin/internal/events"
	"github.com/railcontrol/sectiontwin/internal/feed"
)

// Ingestor receives decoded feed snapshots. Implemented by twin.Twin.
type Ingestor interface {
	Ingest(snap feed.Snapshot) int
}

// FeedSubscriber manages the subscription to the snapshot feed topic.
// It ensures idempotent subscription handling across reconnects.
type FeedSubscriber struct {
	mu         sync.RWMutex
	client     *Client
	ingestor   Ingestor
	bus        *events.Bus
	subscribed map[string]bool // topic -> subscribed
}

// NewFeedSubscriber creates a feed subscriber. bus may be nil.
func NewFeedSubscriber(client *Client, ingestor Ingestor, bus *events.Bus) *FeedSubscriber {
	return &FeedSubscriber{
		client:     client,
		ingestor:   ingestor,
		bus:        bus,
		subscribed: make(map[string]bool),
	}
}

// SubscribeFeed subscribes to the snapshot topic if not already subscribed.
// This is idempotent - calling multiple times for the same topic is safe.
func (s *FeedSubscriber) SubscribeFeed(topic string) error {
	if topic == "" {
		return nil
	}

	s.mu.Lock()
	if s.subscribed[topic] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.client.Subscribe(topic, s.handleMessage); err != nil {
		return err
	}

	s.mu.Lock()
	s.subscribed[topic] = true
	s.mu.Unlock()

	s.emit("info", "feed.connected", "subscribed to snapshot feed", map[string]interface{}{
		"topic": topic,
	})
	return nil
}

// handleMessage decodes one snapshot payload and hands it to the ingestor.
// Undecodable payloads are reported and dropped; a lost snapshot is
// recovered by the next one.
func (s *FeedSubscriber) handleMessage(_ paho.Client, msg paho.Message) {
	snap, err := feed.Parse(msg.Payload())
	if err != nil {
		s.emit("warn", "feed.malformed", err.Error(), map[string]interface{}{
			"topic": msg.Topic(),
			"bytes": len(msg.Payload()),
		})
		return
	}

	applied := s.ingestor.Ingest(snap)
	s.emit("debug", "feed.snapshot", "", map[string]interface{}{
		"topic":  msg.Topic(),
		"trains": applied,
	})
}

// IsSubscribed returns true if the topic is already subscribed.
func (s *FeedSubscriber) IsSubscribed(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed[topic]
}

// ClearSubscriptions clears the subscription tracking.
// Call this on disconnect to allow re-subscription on reconnect.
func (s *FeedSubscriber) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = make(map[string]bool)

	s.emit("info", "feed.disconnected", "subscription tracking cleared", nil)
}

func (s *FeedSubscriber) emit(level, name, msg string, fields map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(level, name, msg, fields)
}
