// Package sse streams recorded protocol events to monitoring clients over
// Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// WriteTimeout bounds writes to a single client so a stale connection
// cannot stall a broadcast.
const WriteTimeout = 2 * time.Second

// Client is one connected event stream consumer.
type Client struct {
	ID      string
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
}

// Broadcaster fans recorded events out to connected clients.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*Client
	nextID  int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*Client)}
}

// AddClient registers a new stream consumer.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	client := &Client{
		ID:      fmt.Sprintf("client-%d", b.nextID),
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[client.ID] = client
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Int("totalClients", count).Msg("event stream client connected")
	return client, nil
}

// RemoveClient unregisters a consumer and closes its Done channel.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	if _, ok := b.clients[client.ID]; ok {
		delete(b.clients, client.ID)
		close(client.Done)
	}
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Int("totalClients", count).Msg("event stream client disconnected")
}

// Broadcast sends one recorded event to every connected client. Writes
// that fail or exceed WriteTimeout drop the client.
func (b *Broadcaster) Broadcast(sessionID string, eventIndex int64, payload json.RawMessage) {
	frame, err := json.Marshal(map[string]any{
		"session_id":  sessionID,
		"event_index": eventIndex,
		"payload":     payload,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event frame")
		return
	}
	message := fmt.Sprintf("data: %s\n\n", frame)

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		if !b.write(client, message) {
			b.RemoveClient(client)
		}
	}
}

// write delivers one frame to one client, reporting false on failure or
// timeout.
func (b *Broadcaster) write(client *Client, message string) bool {
	done := make(chan bool, 1)
	go func() {
		if _, err := client.Writer.Write([]byte(message)); err != nil {
			log.Debug().Str("clientId", client.ID).Err(err).Msg("event stream write failed")
			done <- false
			return
		}
		client.Flusher.Flush()
		done <- true
	}()

	select {
	case ok := <-done:
		return ok
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", client.ID).Dur("timeout", WriteTimeout).Msg("event stream write timed out")
		return false
	case <-client.Done:
		return true
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// HandleSSE serves one event stream connection until the client goes away.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"clientId\":%q}\n\n", client.ID)
	client.Flusher.Flush()

	<-r.Context().Done()
}
