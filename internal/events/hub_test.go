package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/config"
)

func testWebSocketConfig() *config.WebSocketConfig {
	cfg := &config.WebSocketConfig{Enabled: true}
	cfg.Events.BroadcastPreprocess = true
	cfg.Events.BroadcastReloads = true
	cfg.Events.BroadcastSystem = true
	cfg.Events.BroadcastConnections = true
	return cfg
}

func newTestClient() *Client {
	return &Client{
		ID:          "test-client",
		Send:        make(chan Event, 8),
		ConnectedAt: time.Now(),
	}
}

func TestShouldBroadcastEvent(t *testing.T) {
	t.Run("nil config drops everything", func(t *testing.T) {
		h := NewHub(nil, zap.NewNop())
		assert.False(t, h.shouldBroadcastEvent(EventTypePreprocess))
	})

	t.Run("config toggles per type", func(t *testing.T) {
		cfg := testWebSocketConfig()
		cfg.Events.BroadcastPreprocess = false
		h := NewHub(cfg, zap.NewNop())

		assert.False(t, h.shouldBroadcastEvent(EventTypePreprocess))
		assert.True(t, h.shouldBroadcastEvent(EventTypeRulesReload))
		assert.True(t, h.shouldBroadcastEvent(EventTypeSystemStatus))
		assert.True(t, h.shouldBroadcastEvent(EventTypeConnection))
	})

	t.Run("unknown type dropped", func(t *testing.T) {
		h := NewHub(testWebSocketConfig(), zap.NewNop())
		assert.False(t, h.shouldBroadcastEvent(EventType("unknown")))
	})
}

func TestShouldSendToClient(t *testing.T) {
	h := NewHub(testWebSocketConfig(), zap.NewNop())
	event := Event{Type: EventTypePreprocess}

	t.Run("no subscription receives all", func(t *testing.T) {
		assert.True(t, h.shouldSendToClient(newTestClient(), event))
	})

	t.Run("matching subscription", func(t *testing.T) {
		c := newTestClient()
		c.Subscription = &SubscriptionRequest{Events: []EventType{EventTypePreprocess}}
		assert.True(t, h.shouldSendToClient(c, event))
	})

	t.Run("non matching subscription", func(t *testing.T) {
		c := newTestClient()
		c.Subscription = &SubscriptionRequest{Events: []EventType{EventTypeRulesReload}}
		assert.False(t, h.shouldSendToClient(c, event))
	})
}

func TestBroadcastDelivery(t *testing.T) {
	h := NewHub(testWebSocketConfig(), zap.NewNop())

	c1 := newTestClient()
	c2 := newTestClient()
	c2.ID = "test-client-2"
	c2.Subscription = &SubscriptionRequest{Events: []EventType{EventTypeRulesReload}}

	h.mu.Lock()
	h.clients[c1] = true
	h.clients[c2] = true
	h.mu.Unlock()

	event := Event{Type: EventTypePreprocess, Timestamp: time.Now(), Data: PreprocessEvent{RequestID: "r1"}}
	h.broadcastEvent(event)

	require.Len(t, c1.Send, 1)
	got := <-c1.Send
	assert.Equal(t, EventTypePreprocess, got.Type)
	assert.Empty(t, c2.Send)

	stats := h.GetStats()
	assert.Equal(t, int64(1), stats.TotalBroadcasts)
	assert.Equal(t, int64(1), stats.TotalMessages)
	assert.Equal(t, int64(2), stats.ActiveConnections)
}

func TestBroadcastEvictsFullClient(t *testing.T) {
	h := NewHub(testWebSocketConfig(), zap.NewNop())

	c := newTestClient()
	c.Send = make(chan Event, 1)
	c.Send <- Event{Type: EventTypeSystemStatus} // fill the channel

	h.mu.Lock()
	h.clients[c] = true
	h.stats.ActiveConnections = 1
	h.mu.Unlock()

	h.broadcastEvent(Event{Type: EventTypePreprocess})

	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Empty(t, h.clients)

	// The channel was closed on eviction; it still drains its buffered event.
	<-c.Send
	_, open := <-c.Send
	assert.False(t, open)
}

func TestBroadcastToOthersExcludesSource(t *testing.T) {
	h := NewHub(testWebSocketConfig(), zap.NewNop())

	c1 := newTestClient()
	c2 := newTestClient()
	c2.ID = "test-client-2"

	h.mu.Lock()
	h.clients[c1] = true
	h.clients[c2] = true
	h.mu.Unlock()

	h.broadcastToOthers(Event{Type: EventTypeConnection}, c1)

	assert.Empty(t, c1.Send)
	assert.Len(t, c2.Send, 1)
}

func TestRegisterUnregisterViaRun(t *testing.T) {
	h := NewHub(testWebSocketConfig(), zap.NewNop())
	go h.Run()

	c := newTestClient()
	h.register <- c

	require.Eventually(t, func() bool {
		return h.GetStats().ActiveConnections == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), h.GetStats().TotalConnections)

	h.unregister <- c
	require.Eventually(t, func() bool {
		return h.GetStats().ActiveConnections == 0
	}, time.Second, 10*time.Millisecond)
}
