// Package quote implements the quote plugin: serve a random stored quote
// and collect new ones.
package quote

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/plugin"
	"github.com/vovakirdan/wirebot/internal/proto"
	"github.com/vovakirdan/wirebot/internal/store"
)

const (
	defaultCooldown = time.Minute
	defaultBan      = 10 * time.Minute
)

// Plugin serves the quote commands under the shared cooldown/ban policy.
type Plugin struct {
	log     *zerolog.Logger
	store   store.Store
	limiter *plugin.Limiter

	get *regexp.Regexp
	add *regexp.Regexp
}

// New builds the plugin with matchers compiled from the configured
// prefixes and case mode.
func New(st store.Store, prefixes []string, caseSensitive bool, logger *zerolog.Logger) *Plugin {
	return &Plugin{
		log:     logger,
		store:   st,
		limiter: plugin.NewLimiter(defaultCooldown, defaultBan),
		get:     plugin.CompileMatcher(prefixes, "quote", 0, caseSensitive),
		add:     plugin.CompileMatcher(prefixes, "quoteadd", 1, caseSensitive),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string { return "quote" }

// Match reports whether the payload is a quote command.
func (p *Plugin) Match(ev *proto.Event) bool {
	return p.get.MatchString(ev.Payload) || p.add.MatchString(ev.Payload)
}

// Handle runs the matched quote command.
func (p *Plugin) Handle(ctx context.Context, ev *proto.Event, r plugin.Responder) {
	if !p.allow(ev, r) {
		return
	}

	switch {
	case p.get.MatchString(ev.Payload):
		p.handleGet(ctx, r)
	case p.add.MatchString(ev.Payload):
		p.handleAdd(ctx, ev, r)
	}
}

func (p *Plugin) handleGet(ctx context.Context, r plugin.Responder) {
	q, err := p.store.RandomQuote(ctx)
	if errors.Is(err, store.ErrEmpty) {
		r.Reply("no quotes on record yet")
		return
	}
	if err != nil {
		p.log.Error().Err(err).Msg("quote: random pick failed")
		r.Reply("could not fetch a quote right now")
		return
	}
	r.Reply(q.Content)
}

func (p *Plugin) handleAdd(ctx context.Context, ev *proto.Event, r plugin.Responder) {
	args := plugin.Arguments(p.add, ev.Payload)
	if len(args) == 0 || args[0] == "" {
		r.Reply("nothing to add: give the quote some text")
		return
	}

	if err := p.store.AddQuote(ctx, store.Quote{Author: ev.User, Content: args[0]}); err != nil {
		p.log.Error().Err(err).Msg("quote: insert failed")
		r.Reply("could not save that quote right now")
		return
	}
	r.Reply("quote saved")
}

func (p *Plugin) allow(ev *proto.Event, r plugin.Responder) bool {
	switch p.limiter.Check(ev.User, ev.Received) {
	case plugin.VerdictProceed:
		return true
	case plugin.VerdictWarn:
		r.Send(fmt.Sprintf("**Easy there** (%s can have 1 quote per %v and is now sitting out %v)",
			ev.User, p.limiter.Cooldown(), p.limiter.BanDuration()))
		return false
	default:
		return false
	}
}
