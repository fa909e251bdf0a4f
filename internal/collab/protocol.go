package collab

import (
	"encoding/json"

	"github.com/inamate/canvas/internal/camera"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/history"
)

type Message struct {
	Type     string          `json:"type"`
	DesignID string          `json:"designId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	TypeWelcome = "welcome"

	// Client requests. The reply echoes the request's seq.
	TypeToolCall   = "tool.call"
	TypeToolResult = "tool.result"
	TypeToolSet    = "tool.set"
	TypePointer    = "pointer"
	TypeViewport   = "viewport.set"

	// Design events are forwarded with their own type, for example
	// "design.changed" or "image.pick", and the design.Event as payload.
)

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

// WelcomePayload is sent to a client right after it joins.
type WelcomePayload struct {
	ClientID string              `json:"clientId"`
	Name     string              `json:"name"`
	Tool     drawing.Tool        `json:"tool"`
	Camera   camera.State        `json:"camera"`
	History  history.State       `json:"history"`
	Objects  []design.ObjectInfo `json:"objects"`
}

type ToolCallPayload struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ToolSetPayload struct {
	Tool drawing.Tool `json:"tool"`
}

// PointerPayload carries one pointer event in screen coordinates.
type PointerPayload struct {
	Phase  string  `json:"phase"` // down, move, up or cancel
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Shift  bool    `json:"shift,omitempty"`
	NoSnap bool    `json:"noSnap,omitempty"`
}

type ViewportPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
