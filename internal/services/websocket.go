package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client represents one websocket connection for an authenticated user. A
// user may hold several connections (multiple tabs/devices).
type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
	hub    *Hub
}

// Hub fans parcel status updates out to the connections of the parcel's
// sender and receiver.
type Hub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	updates    chan ParcelUpdate
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		updates:    make(chan ParcelUpdate, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true

		case client := <-h.unregister:
			if conns, ok := h.clients[client.UserID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.Send)
					if len(conns) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}

		case update := <-h.updates:
			data, err := json.Marshal(map[string]interface{}{
				"type": "parcel_update",
				"data": update,
			})
			if err != nil {
				continue
			}
			h.sendToUser(update.SenderID, data)
			if update.ReceiverID != update.SenderID {
				h.sendToUser(update.ReceiverID, data)
			}
		}
	}
}

// Broadcast queues a parcel update for delivery to its sender and receiver.
func (h *Hub) Broadcast(update ParcelUpdate) {
	select {
	case h.updates <- update:
	default:
		log.Printf("websocket hub: update channel full, dropping parcel %d update", update.ParcelID)
	}
}

func (h *Hub) sendToUser(userID uint, data []byte) {
	for client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			// Slow consumer, drop the connection.
			delete(h.clients[userID], client)
			close(client.Send)
		}
	}
}

// NewClient registers a connection with the hub and starts its pumps.
func (h *Hub) NewClient(userID uint, conn *websocket.Conn) *Client {
	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
		hub:    h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients never send application messages; reading just keeps
		// the connection alive and detects closes.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
