// Package collab pushes design events to websocket clients and accepts their
// tool calls, pointer input and presence updates. Each open design has one
// room; the room's clients share the design and its camera.
package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/inamate/canvas/internal/agent"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/logging"
)

type Room struct {
	designID    string
	manager     *design.Manager
	clients     map[string]*Client // clientID -> client
	presence    *PresenceManager
	seq         atomic.Int64
	unsubscribe func()
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // designID -> room
	router     *agent.Router
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *slog.Logger
}

func NewHub(router *agent.Router, logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		router:     router,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logging.WithComponent(logger, "collab"),
	}
}

// Run serves registrations until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Clients counts the connections to a design.
func (h *Hub) Clients(designID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[designID]; ok {
		return len(room.clients)
	}
	return 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DesignID]
	if !ok {
		room = &Room{
			designID: client.DesignID,
			clients:  make(map[string]*Client),
			presence: NewPresenceManager(),
		}
		h.rooms[client.DesignID] = room
	}
	// A design reopened after a close is a new manager.
	if room.manager != client.manager {
		if room.unsubscribe != nil {
			room.unsubscribe()
		}
		room.manager = client.manager
		room.unsubscribe = client.manager.Subscribe(h.forwarder(room))
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	m := client.manager
	client.reply(TypeWelcome, 0, WelcomePayload{
		ClientID: client.ClientID,
		Name:     m.Name(),
		Tool:     m.Tool(),
		Camera:   m.Camera(),
		History:  m.HistoryState(),
		Objects:  m.Objects(),
	})
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(client.DesignID, &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}, client.ClientID)

	h.log.Info("client joined", "user", client.UserID, "design", client.DesignID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DesignID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}
	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.UserID)

	if len(room.clients) == 0 {
		if room.unsubscribe != nil {
			room.unsubscribe()
		}
		delete(h.rooms, client.DesignID)
	}
	h.mu.Unlock()

	leavePayload, _ := json.Marshal(PresenceLeavePayload{UserID: client.UserID})
	h.broadcastToRoom(client.DesignID, &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}, "")

	h.log.Info("client left", "user", client.UserID, "design", client.DesignID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		if room.unsubscribe != nil {
			room.unsubscribe()
		}
		for _, c := range room.clients {
			c.close()
		}
		delete(h.rooms, id)
	}
}

// forwarder relays design events to every client in the room.
func (h *Hub) forwarder(room *Room) design.Subscriber {
	return func(ev design.Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			h.log.Error("marshal event", "error", err, "type", ev.Type)
			return
		}
		h.broadcastToRoom(room.designID, &Message{
			Type:     string(ev.Type),
			DesignID: ev.DesignID,
			Seq:      room.seq.Add(1),
			Payload:  payload,
		}, "")
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	m := sender.manager
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)

	case TypeToolCall:
		var call ToolCallPayload
		if err := json.Unmarshal(msg.Payload, &call); err != nil || call.Name == "" {
			sender.sendError(msg.Seq, "invalid tool call")
			return
		}
		res := h.router.CallOn(ctx, m, call.Name, call.Arguments)
		sender.reply(TypeToolResult, msg.Seq, res)

	case TypeToolSet:
		var p ToolSetPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || !m.SetTool(p.Tool) {
			sender.sendError(msg.Seq, "invalid tool")
		}

	case TypePointer:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.sendError(msg.Seq, "invalid pointer event")
			return
		}
		mods := design.Modifiers{Shift: p.Shift, NoSnap: p.NoSnap}
		switch p.Phase {
		case "down":
			m.PointerDown(p.X, p.Y, mods)
		case "move":
			m.PointerMove(p.X, p.Y, mods)
		case "up":
			m.PointerUp(p.X, p.Y, mods)
		case "cancel":
			m.CancelInteraction()
		default:
			sender.sendError(msg.Seq, "unknown pointer phase "+p.Phase)
		}

	case TypeViewport:
		var p ViewportPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Width <= 0 || p.Height <= 0 {
			sender.sendError(msg.Seq, "invalid viewport")
			return
		}
		m.SetViewport(p.Width, p.Height)

	default:
		h.log.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.sendError(msg.Seq, "unknown message type "+msg.Type)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		h.log.Warn("invalid presence payload", "error", err)
		return
	}
	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.DesignID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	room.presence.Update(sender.UserID, &presence)

	outPayload, _ := json.Marshal(presence)
	h.broadcastToRoom(sender.DesignID, &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}, sender.ClientID)
}

func (h *Hub) broadcastToRoom(designID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[designID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
