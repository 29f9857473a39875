package socket

import (
	"encoding/json"

	"notedesk/pkg/logger"
)

const (
	CreatedType = "CREATED" // A document was created
	UpdatedType = "UPDATED" // A document's fields changed
	DeletedType = "DELETED" // A document was removed
)

// ChangeEvent is broadcast to every subscriber after a successful
// mutation. Subscribers re-fetch what they care about; the event carries
// only the coordinates of the change.
type ChangeEvent struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Rev    string `json:"rev"`
}

// Hub fans mutation events out to all connected websocket clients.
// All client bookkeeping happens inside Run, so no lock is needed.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan ChangeEvent
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan ChangeEvent),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
			logger.Sugar.Infof("Changes subscriber connected (%d active)", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
			}

		case event := <-h.Broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling change event: %v", err)
				continue
			}
			for client := range h.Clients {
				select {
				case client.Send <- payload:
				default:
					// Full send buffer means the client is lagging.
					// Drop it rather than blocking the hub.
					logger.Sugar.Warnf("Changes subscriber send buffer full, dropping client")
					delete(h.Clients, client)
					close(client.Send)
				}
			}
		}
	}
}
