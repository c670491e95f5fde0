package plugin

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/proto"
	"github.com/vovakirdan/wirebot/internal/target"
)

// Plugin is a user-defined bot function that handles qualifying chat
// events. Match decides cheaply whether Handle should run; Handle performs
// the action and sends replies through the Responder.
type Plugin interface {
	Name() string
	Match(ev *proto.Event) bool
	Handle(ctx context.Context, ev *proto.Event, r Responder)
}

// Responder routes a plugin's replies to the right destination. Private
// events answer the acting user directly, everything else broadcasts to
// the event's room, so plugin authors never deal with addressing.
type Responder struct {
	sender target.Sender
	ev     *proto.Event
}

// Reply sends text attributed to the acting user, "(<user>) <text>".
func (r Responder) Reply(text string) {
	r.Send("(" + r.ev.User + ") " + text)
}

// Send sends raw text to the event's origin.
func (r Responder) Send(text string) {
	r.dest().Send(r.sender, text)
}

func (r Responder) dest() target.Target {
	if r.ev.Private {
		return target.User{Name: r.ev.User}
	}
	return target.Room{Name: r.ev.Room}
}

// NewResponder is exposed for plugin tests; production code gets
// responders from the registry.
func NewResponder(s target.Sender, ev *proto.Event) Responder {
	return Responder{sender: s, ev: ev}
}

// Registry holds the registered plugin set and dispatches qualifying
// events to every plugin whose matcher accepts them.
type Registry struct {
	log *zerolog.Logger

	mu      sync.Mutex
	plugins []Plugin
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{log: logger}
}

// Register appends a plugin. Plugins live for the process lifetime.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
	r.log.Info().Str("plugin", p.Name()).Msg("plugin registered")
}

// Dispatch offers the event to every matching plugin. An event qualifies
// only if it carries a payload and was received at or after the session's
// login time; anything earlier is backlog replay and is skipped. Handler
// panics are contained per invocation so one broken plugin cannot take
// down the dispatch loop.
func (r *Registry) Dispatch(ctx context.Context, ev *proto.Event, loginTime uint64, s target.Sender) {
	if ev.Payload == "" || ev.Timestamp < loginTime {
		return
	}

	r.mu.Lock()
	plugins := make([]Plugin, len(r.plugins))
	copy(plugins, r.plugins)
	r.mu.Unlock()

	for _, p := range plugins {
		if !p.Match(ev) {
			continue
		}
		r.invoke(ctx, p, ev, s)
	}
}

func (r *Registry) invoke(ctx context.Context, p Plugin, ev *proto.Event, s target.Sender) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("plugin", p.Name()).
				Interface("panic", rec).
				Msg("plugin handler panicked")
		}
	}()
	p.Handle(ctx, ev, Responder{sender: s, ev: ev})
}
