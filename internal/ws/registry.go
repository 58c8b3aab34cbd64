package ws

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client is one connected dashboard page.
type Client struct {
	ID          string    `json:"id"`
	UserAgent   string    `json:"user_agent,omitempty"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

func NewClient() *Client {
	return &Client{
		ID:          uuid.New().String(),
		ConnectedAt: time.Now().UTC(),
	}
}

type Stats struct {
	Connected int
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
	log.Printf("Session connected: %s (total: %d)", c.ID, len(r.clients))
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	log.Printf("Session disconnected: %s (total: %d)", id, len(r.clients))
}

func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Connected: len(r.clients)}
}

// List returns the connected clients, oldest first.
func (r *Registry) List() []Client {
	r.mu.RLock()
	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, *c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}
