package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Message is the shape of a real-time event pushed to a connected client.
// Type mirrors the notification categories (event, group, volunteer, system).
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Broker is the central hub for managing SSE client connections.
type Broker struct {
	// One channel per connected user; NotifyUser writes into it and the SSE
	// handler drains it.
	clients map[int64]chan []byte
	mu      sync.RWMutex
}

func NewBroker() *Broker {
	return &Broker{
		clients: make(map[int64]chan []byte),
	}
}

// AddClient registers a connection for the user. A second connection (another
// tab) simply replaces the first; the old one times out on its own.
func (b *Broker) AddClient(userID int64) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []byte, 10)
	b.clients[userID] = ch
	log.Printf("SSE client connected for user %d", userID)
	return ch
}

// RemoveClient unregisters a client from the broker.
func (b *Broker) RemoveClient(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[userID]; ok {
		delete(b.clients, userID)
		close(ch)
		log.Printf("SSE client disconnected for user %d", userID)
	}
}

// NotifyUser pushes a message to the user if they are connected. The send is
// non-blocking so a stalled client cannot hold up the caller.
func (b *Broker) NotifyUser(userID int64, message Message) {
	b.mu.RLock()
	clientChan, ok := b.clients[userID]
	b.mu.RUnlock()

	if !ok {
		return
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		log.Printf("ERROR: could not marshal SSE message for user %d: %v", userID, err)
		return
	}

	select {
	case clientChan <- jsonMsg:
	default:
		log.Printf("WARN: SSE channel for user %d is full. Dropping message.", userID)
	}
}
