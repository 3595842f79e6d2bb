package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	channelPrefix = "notifications:"
	channelSuffix = ":broadcast"
)

// Hub fans notification payloads out to websocket clients grouped by audience.
// With Redis configured, every payload goes through pub/sub so all instances deliver it.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	log     zerolog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Audience string
	Send     chan []byte
}

func NewHub(redisClient *redis.Client, log zerolog.Logger) *Hub {
	h := &Hub{
		redis:   redisClient,
		log:     log,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		h.pubsub = redisClient.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
		if _, err := h.pubsub.Receive(ctx); err != nil {
			log.Warn().Err(err).Msg("redis subscribe failed, delivering locally only")
			_ = h.pubsub.Close()
			h.pubsub = nil
		} else {
			go h.forward(h.pubsub)
		}
	}
	return h
}

func (h *Hub) Register(audience string) *Client {
	client := &Client{
		Audience: audience,
		Send:     make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[audience] == nil {
		h.clients[audience] = map[*Client]struct{}{}
	}
	h.clients[audience][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if audienceClients, ok := h.clients[client.Audience]; ok {
		if _, ok := audienceClients[client]; !ok {
			return
		}
		delete(audienceClients, client)
		if len(audienceClients) == 0 {
			delete(h.clients, client.Audience)
		}
		close(client.Send)
	}
}

// Broadcast delivers payload to every client of audience, across instances when Redis is up.
func (h *Hub) Broadcast(ctx context.Context, audience string, payload []byte) error {
	if h.pubsub != nil {
		if err := h.redis.Publish(ctx, redisChannel(audience), payload).Err(); err != nil {
			h.log.Error().Err(err).Str("audience", audience).Msg("redis publish failed, delivering locally")
			h.deliver(audience, payload)
			return err
		}
		return nil
	}
	h.deliver(audience, payload)
	return nil
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(audience string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[audience] {
		select {
		case client.Send <- payload:
		default:
			// slow consumer
		}
	}
}

func (h *Hub) forward(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		audience := audienceFromChannel(msg.Channel)
		if audience == "" {
			continue
		}
		h.deliver(audience, []byte(msg.Payload))
	}
}

func redisChannel(audience string) string {
	return channelPrefix + audience + channelSuffix
}

func audienceFromChannel(ch string) string {
	// notifications:{audience}:broadcast
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
