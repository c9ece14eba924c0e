// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"evimap/internal/dataset"
	"evimap/internal/worker"
)

// WebSocketClient represents a connected map client
type WebSocketClient struct {
	conn              *websocket.Conn
	send              chan []byte
	worker            *worker.Worker
	natsConn          *nats.Conn
	natsSubscriptions []*nats.Subscription
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// MapWebSocketHandler streams map results and dataset changes to the
// client and accepts viewport messages back.
func MapWebSocketHandler(natsConn *nats.Conn, w *worker.Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := &WebSocketClient{
			conn:     conn,
			send:     make(chan []byte, 256),
			worker:   w,
			natsConn: natsConn,
		}

		go client.writePump()
		go client.readPump()

		if err := client.subscribe(); err != nil {
			log.Printf("Failed to subscribe to map subjects: %v", err)
			client.closeConnection()
			return
		}

		// Push the latest result immediately so a fresh client does not
		// wait for the next recomputation.
		if latest := w.Latest(); latest != nil {
			if payload, err := json.Marshal(latest); err == nil {
				client.send <- payload
			}
		}

		log.Printf("New map WebSocket connection from %s", r.RemoteAddr)
	}
}

// subscribe forwards map results and dataset change events to the client
func (c *WebSocketClient) subscribe() error {
	resultSub, err := c.natsConn.Subscribe(worker.ResultSubject, func(msg *nats.Msg) {
		c.send <- msg.Data
	})
	if err != nil {
		return err
	}
	c.natsSubscriptions = append(c.natsSubscriptions, resultSub)

	changeSub, err := c.natsConn.Subscribe(dataset.ChangeSubject, func(msg *nats.Msg) {
		c.send <- msg.Data
	})
	if err != nil {
		return err
	}
	c.natsSubscriptions = append(c.natsSubscriptions, changeSub)

	return nil
}

// readPump pumps viewport messages from the WebSocket connection to the
// worker
func (c *WebSocketClient) readPump() {
	config := DefaultWebSocketConfig()

	defer func() {
		c.closeConnection()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.processIncomingMessage(message)
	}
}

// writePump pumps queued payloads to the WebSocket connection
func (c *WebSocketClient) writePump() {
	config := DefaultWebSocketConfig()
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued payloads to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processIncomingMessage handles one client message. The vocabulary
// mirrors the worker protocol: only viewport updates are accepted over
// the socket, everything else goes through the REST surface.
func (c *WebSocketClient) processIncomingMessage(message []byte) {
	var msg struct {
		Type string `json:"type"`
		Zoom int    `json:"zoom"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Failed to parse WebSocket message: %v", err)
		return
	}

	switch msg.Type {
	case "set-zoom-level":
		if msg.Zoom < 0 || msg.Zoom > 22 {
			log.Printf("Ignoring out-of-range zoom %d", msg.Zoom)
			return
		}
		c.worker.Send(worker.Message{Type: worker.MsgSetZoomLevel, Zoom: msg.Zoom})

	default:
		log.Printf("Unknown WebSocket message type: %s", msg.Type)
	}
}

// closeConnection closes the WebSocket connection and cleans up resources
func (c *WebSocketClient) closeConnection() {
	for _, sub := range c.natsSubscriptions {
		sub.Unsubscribe()
	}

	c.conn.Close()
}
