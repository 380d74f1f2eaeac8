package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	realtimeWriteWait  = 10 * time.Second
	realtimePongWait   = 60 * time.Second
	realtimePingPeriod = 50 * time.Second
	realtimeSendBuffer = 16
)

// Event is a message fanned out to realtime subscribers of a channel.
type Event struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func roomChannel(roomID string) string {
	return "room:" + roomID
}

func emotionChannel(category string) string {
	return "emotion:" + category
}

type realtimeConn struct {
	channel string
	conn    *websocket.Conn
	send    chan []byte
}

// RealtimeHub fans room and category events out to connected WebSocket
// clients. Registration and broadcast run on a single goroutine; handlers
// only push onto channels.
type RealtimeHub struct {
	connections map[*realtimeConn]struct{}
	channels    map[string]map[*realtimeConn]struct{}

	register   chan *realtimeConn
	unregister chan *realtimeConn
	broadcast  chan channelMessage

	logger *slog.Logger
}

type channelMessage struct {
	channel string
	data    []byte
}

// NewRealtimeHub constructs a hub. Call Run on its own goroutine.
func NewRealtimeHub(logger *slog.Logger) *RealtimeHub {
	return &RealtimeHub{
		connections: make(map[*realtimeConn]struct{}),
		channels:    make(map[string]map[*realtimeConn]struct{}),
		register:    make(chan *realtimeConn),
		unregister:  make(chan *realtimeConn),
		broadcast:   make(chan channelMessage, 256),
		logger:      defaultLogger(logger),
	}
}

// Run processes registrations and broadcasts until the registration channel
// is drained by process shutdown.
func (h *RealtimeHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = struct{}{}
			if h.channels[conn.channel] == nil {
				h.channels[conn.channel] = make(map[*realtimeConn]struct{})
			}
			h.channels[conn.channel][conn] = struct{}{}

		case conn := <-h.unregister:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				if listeners := h.channels[conn.channel]; listeners != nil {
					delete(listeners, conn)
					if len(listeners) == 0 {
						delete(h.channels, conn.channel)
					}
				}
				close(conn.send)
			}

		case msg := <-h.broadcast:
			for conn := range h.channels[msg.channel] {
				select {
				case conn.send <- msg.data:
				default:
					// Slow consumer; drop it rather than stalling the hub.
					delete(h.connections, conn)
					delete(h.channels[msg.channel], conn)
					close(conn.send)
				}
			}
		}
	}
}

// BroadcastEvent delivers the event to every subscriber of the channel.
func (h *RealtimeHub) BroadcastEvent(channel string, event Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode realtime event", "error", err)
		return
	}
	select {
	case h.broadcast <- channelMessage{channel: channel, data: data}:
	default:
		h.logger.Warn("realtime broadcast queue full, dropping event", "channel", channel)
	}
}

// RealtimeHandler upgrades HTTP requests to WebSocket subscriptions on a
// room or category channel.
type RealtimeHandler struct {
	hub       *RealtimeHub
	upgrader  websocket.Upgrader
	responder responder
	logger    *slog.Logger
}

// NewRealtimeHandler constructs a realtime handler bound to the hub.
func NewRealtimeHandler(hub *RealtimeHub, allowedOrigins []string, logger *slog.Logger) *RealtimeHandler {
	base := defaultLogger(logger)
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
		responder: newResponder(base),
		logger:    base,
	}
}

// Subscribe handles GET /api/realtime?roomId= or ?emotion=.
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var channel string
	if roomID := strings.TrimSpace(r.URL.Query().Get("roomId")); roomID != "" {
		channel = roomChannel(roomID)
	} else if category := strings.TrimSpace(r.URL.Query().Get("emotion")); category != "" {
		channel = emotionChannel(category)
	} else {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errUnsupportedRealtime)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		handlerLogger(r.Context(), h.logger, "RealtimeHandler", "Subscribe").ErrorContext(r.Context(), errRealtimeUpgradeFailed.Error(), "error", err)
		return
	}

	conn := &realtimeConn{channel: channel, conn: ws, send: make(chan []byte, realtimeSendBuffer)}
	h.hub.register <- conn

	go h.writePump(conn)
	go h.readPump(conn)
}

func (h *RealtimeHandler) readPump(conn *realtimeConn) {
	defer func() {
		h.hub.unregister <- conn
		_ = conn.conn.Close()
	}()

	conn.conn.SetReadLimit(512)
	_ = conn.conn.SetReadDeadline(time.Now().Add(realtimePongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(realtimePongWait))
	})

	// Subscribers are read-only; incoming frames are drained until the
	// connection drops.
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *RealtimeHandler) writePump(conn *realtimeConn) {
	ticker := time.NewTicker(realtimePingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.conn.Close()
	}()

	for {
		select {
		case data, ok := <-conn.send:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
			if !ok {
				_ = conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
