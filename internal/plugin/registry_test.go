package plugin

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/proto"
)

type recordSender struct {
	frames []string
}

func (r *recordSender) Send(text string) {
	r.frames = append(r.frames, text)
}

type stubPlugin struct {
	name    string
	match   bool
	handled int
	panics  bool
	reply   string
}

func (s *stubPlugin) Name() string { return s.name }

func (s *stubPlugin) Match(*proto.Event) bool { return s.match }

func (s *stubPlugin) Handle(_ context.Context, ev *proto.Event, r Responder) {
	s.handled++
	if s.panics {
		panic("broken plugin")
	}
	if s.reply != "" {
		r.Reply(s.reply)
	}
}

func chatEvent(payload string, ts uint64) *proto.Event {
	return &proto.Event{
		Received:  time.Now(),
		Timestamp: ts,
		Command:   "c:",
		Room:      "lobby",
		User:      "alice",
		Auth:      "#",
		Payload:   payload,
	}
}

func newTestRegistry() *Registry {
	logger := zerolog.Nop()
	return NewRegistry(&logger)
}

func TestDispatchInvokesMatchingPlugins(t *testing.T) {
	r := newTestRegistry()
	hit := &stubPlugin{name: "hit", match: true}
	miss := &stubPlugin{name: "miss", match: false}
	r.Register(hit)
	r.Register(miss)

	r.Dispatch(context.Background(), chatEvent(".test", 1000), 500, &recordSender{})

	if hit.handled != 1 {
		t.Errorf("matching plugin handled %d times, want 1", hit.handled)
	}
	if miss.handled != 0 {
		t.Errorf("non-matching plugin handled %d times, want 0", miss.handled)
	}
}

func TestDispatchSkipsBacklogAndEmptyPayload(t *testing.T) {
	r := newTestRegistry()
	p := &stubPlugin{name: "p", match: true}
	r.Register(p)

	// Before login time: history replay, not live traffic.
	r.Dispatch(context.Background(), chatEvent(".test", 100), 500, &recordSender{})
	// No payload: nothing to match against.
	r.Dispatch(context.Background(), chatEvent("", 1000), 500, &recordSender{})

	if p.handled != 0 {
		t.Fatalf("plugin handled %d times, want 0", p.handled)
	}

	// At exactly login time the event is live.
	r.Dispatch(context.Background(), chatEvent(".test", 500), 500, &recordSender{})
	if p.handled != 1 {
		t.Fatalf("plugin handled %d times, want 1", p.handled)
	}
}

func TestDispatchContainsPanics(t *testing.T) {
	r := newTestRegistry()
	bad := &stubPlugin{name: "bad", match: true, panics: true}
	good := &stubPlugin{name: "good", match: true}
	r.Register(bad)
	r.Register(good)

	r.Dispatch(context.Background(), chatEvent(".test", 1000), 0, &recordSender{})

	if good.handled != 1 {
		t.Fatal("a panicking plugin must not stop dispatch to the next one")
	}
}

func TestResponderRoutesRoomAndPrivate(t *testing.T) {
	r := newTestRegistry()
	p := &stubPlugin{name: "p", match: true, reply: "pong"}
	r.Register(p)

	s := &recordSender{}
	r.Dispatch(context.Background(), chatEvent(".ping", 1000), 0, s)
	if len(s.frames) != 1 || s.frames[0] != "lobby|(alice) pong" {
		t.Fatalf("room reply frames: %v", s.frames)
	}

	s = &recordSender{}
	ev := chatEvent(".ping", 1000)
	ev.Private = true
	r.Dispatch(context.Background(), ev, 0, s)
	if len(s.frames) != 1 || s.frames[0] != "|/w alice,(alice) pong" {
		t.Fatalf("private reply frames: %v", s.frames)
	}
}
