package collab

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/inamate/canvas/internal/agent"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/document"
)

func newHub(t *testing.T) (*Hub, *design.Manager, context.CancelFunc) {
	t.Helper()
	m, err := design.New("room", 400, 300, document.DefaultDefaults(), design.Options{})
	if err != nil {
		t.Fatalf("new design: %v", err)
	}
	t.Cleanup(m.Close)
	h := NewHub(agent.NewRouter(nil, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, m, cancel
}

func next(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatalf("client %s channel closed", c.ClientID)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message to %s", c.ClientID)
	}
	return Message{}
}

// until reads messages until one of the given type arrives.
func until(t *testing.T, c *Client, typ string) Message {
	t.Helper()
	for i := 0; i < 32; i++ {
		if msg := next(t, c); msg.Type == typ {
			return msg
		}
	}
	t.Fatalf("no %s message for %s", typ, c.ClientID)
	return Message{}
}

func join(t *testing.T, h *Hub, m *design.Manager, id string) *Client {
	t.Helper()
	c := NewClient(h, nil, m, "user-"+id, "User "+id, id)
	h.Register(c)
	welcome := next(t, c)
	if welcome.Type != TypeWelcome {
		t.Fatalf("expected welcome first, got %s", welcome.Type)
	}
	var p WelcomePayload
	if err := json.Unmarshal(welcome.Payload, &p); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if p.ClientID != id || p.Name != "room" {
		t.Fatalf("unexpected welcome %+v", p)
	}
	if msg := next(t, c); msg.Type != TypePresenceState {
		t.Fatalf("expected presence.state, got %s", msg.Type)
	}
	return c
}

func TestRoomJoinAndLeave(t *testing.T) {
	h, m, _ := newHub(t)
	a := join(t, h, m, "a")
	b := join(t, h, m, "b")

	if msg := next(t, a); msg.Type != TypePresenceJoin || msg.UserID != "user-b" {
		t.Fatalf("expected join of user-b, got %s %s", msg.Type, msg.UserID)
	}
	if n := h.Clients(m.ID()); n != 2 {
		t.Fatalf("expected 2 clients, got %d", n)
	}

	h.Unregister(b)
	if msg := next(t, a); msg.Type != TypePresenceLeave {
		t.Fatalf("expected presence.leave, got %s", msg.Type)
	}
	if n := h.Clients(m.ID()); n != 1 {
		t.Fatalf("expected 1 client, got %d", n)
	}
}

func TestToolCallBroadcastsChanges(t *testing.T) {
	h, m, _ := newHub(t)
	a := join(t, h, m, "a")
	b := join(t, h, m, "b")
	next(t, a) // presence.join

	args, _ := json.Marshal(ToolCallPayload{Name: "create_rectangle", Arguments: json.RawMessage(`{"x":10,"y":10,"width":50,"height":40}`)})
	h.handleMessage(context.Background(), a, &Message{Type: TypeToolCall, Seq: 7, Payload: args})

	res := until(t, a, TypeToolResult)
	if res.Seq != 7 {
		t.Fatalf("expected reply seq 7, got %d", res.Seq)
	}
	var r agent.Result
	if err := json.Unmarshal(res.Payload, &r); err != nil || !r.Success {
		t.Fatalf("expected successful result, got %s (%v)", res.Payload, err)
	}

	ev := until(t, b, string(design.EventChanged))
	if ev.DesignID != m.ID() || ev.Seq == 0 {
		t.Fatalf("expected sequenced event for %s, got %+v", m.ID(), ev)
	}
	if got := len(m.Objects()); got != 1 {
		t.Fatalf("expected 1 object, got %d", got)
	}
}

func TestPointerDrawOverSocket(t *testing.T) {
	h, m, _ := newHub(t)
	a := join(t, h, m, "a")

	send := func(typ string, payload any) {
		data, _ := json.Marshal(payload)
		h.handleMessage(context.Background(), a, &Message{Type: typ, Payload: data})
	}
	send(TypeToolSet, ToolSetPayload{Tool: "rect"})
	until(t, a, string(design.EventTool))

	cam := m.Camera()
	at := func(x, y float64) (float64, float64) { return x*cam.Zoom + cam.PanX, y*cam.Zoom + cam.PanY }
	x0, y0 := at(20, 20)
	x1, y1 := at(120, 80)
	send(TypePointer, PointerPayload{Phase: "down", X: x0, Y: y0, NoSnap: true})
	send(TypePointer, PointerPayload{Phase: "move", X: x1, Y: y1, NoSnap: true})
	send(TypePointer, PointerPayload{Phase: "up", X: x1, Y: y1, NoSnap: true})

	until(t, a, string(design.EventChanged))
	objs := m.Objects()
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
	if b := objs[0].Bounds; b.Width < 99 || b.Width > 101 || b.Height < 59 || b.Height > 61 {
		t.Fatalf("expected ~100x60, got %vx%v", b.Width, b.Height)
	}
}

func TestBadMessagesGetErrors(t *testing.T) {
	h, m, _ := newHub(t)
	a := join(t, h, m, "a")

	h.handleMessage(context.Background(), a, &Message{Type: "nope", Seq: 3})
	msg := next(t, a)
	if msg.Type != TypeError || msg.Seq != 3 {
		t.Fatalf("expected error reply with seq 3, got %s %d", msg.Type, msg.Seq)
	}

	h.handleMessage(context.Background(), a, &Message{Type: TypeToolSet, Payload: json.RawMessage(`{"tool":"laser"}`)})
	if msg := next(t, a); msg.Type != TypeError {
		t.Fatalf("expected error for unknown tool, got %s", msg.Type)
	}

	h.handleMessage(context.Background(), a, &Message{Type: TypeViewport, Payload: json.RawMessage(`{"width":0,"height":10}`)})
	if msg := next(t, a); msg.Type != TypeError {
		t.Fatalf("expected error for bad viewport, got %s", msg.Type)
	}
}

func TestShutdownClosesClients(t *testing.T) {
	h, m, cancel := newHub(t)
	a := join(t, h, m, "a")
	cancel()

	select {
	case _, ok := <-a.send:
		for ok {
			_, ok = <-a.send
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected client channel to close")
	}
	// Registering after shutdown does not block.
	late := NewClient(h, nil, m, "u", "U", "late")
	h.Register(late)
	if _, ok := <-late.send; ok {
		t.Fatalf("expected late client to be closed")
	}
}

func TestOriginPatterns(t *testing.T) {
	got := OriginPatterns([]string{"http://localhost:5173", "example.com"})
	if len(got) != 2 || got[0] != "localhost:5173" || got[1] != "example.com" {
		t.Fatalf("unexpected patterns %v", got)
	}
}
