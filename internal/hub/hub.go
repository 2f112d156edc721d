// Package hub fans job events out to connected dashboard clients.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"autoflow/workshop-service/internal/models"
)

const (
	EventJobCreated = "job.created"
	EventJobUpdated = "job.updated"
	EventJobDeleted = "job.deleted"
)

// Subscription scopes a client to one branch. An empty branch receives
// every event.
type Subscription struct {
	Branch string
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Event struct {
	Type      string     `json:"type"`
	Job       models.Job `json:"job"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	now     func() time.Time
}

type SubscribeMessage struct {
	Action string `json:"action"`
	Branch string `json:"branch"`
}

func New() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

// Clients returns how many clients are connected.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends a job event to every client subscribed to the job's branch.
func (h *Hub) Publish(eventType string, job models.Job) {
	payload, err := json.Marshal(Event{Type: eventType, Job: job, CreatedAt: h.now()})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("encode event")
		return
	}
	h.Broadcast(payload, job.Branch)
}

func (h *Hub) Broadcast(payload []byte, branch string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client.Subscription, branch) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			log.Warn().Str("client_id", client.ID).Msg("drop message for slow client")
		}
	}
}

func match(sub Subscription, branch string) bool {
	return models.IsAllBranches(sub.Branch) || sub.Branch == branch
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
