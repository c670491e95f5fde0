// Package meme implements the meme collection plugin: fetch a random meme,
// add a new one, and report who added the last one served.
package meme

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
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

// Plugin serves the meme commands. Fetching and adding are rate limited by
// the shared cooldown/ban policy; the info command is not.
type Plugin struct {
	log     *zerolog.Logger
	store   store.Store
	limiter *plugin.Limiter

	get  *regexp.Regexp
	add  *regexp.Regexp
	info *regexp.Regexp

	mu   sync.Mutex
	last *store.Meme
}

// New builds the plugin with matchers compiled from the configured
// prefixes and case mode.
func New(st store.Store, prefixes []string, caseSensitive bool, logger *zerolog.Logger) *Plugin {
	return &Plugin{
		log:     logger,
		store:   st,
		limiter: plugin.NewLimiter(defaultCooldown, defaultBan),
		get:     plugin.CompileMatcher(prefixes, "meme", 0, caseSensitive),
		add:     plugin.CompileMatcher(prefixes, "meme", 1, caseSensitive),
		info:    plugin.CompileMatcher(prefixes, "memeinfo", 0, caseSensitive),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string { return "meme" }

// Match reports whether the payload is any meme command.
func (p *Plugin) Match(ev *proto.Event) bool {
	return p.get.MatchString(ev.Payload) ||
		p.add.MatchString(ev.Payload) ||
		p.info.MatchString(ev.Payload)
}

// Handle runs the matched meme command.
func (p *Plugin) Handle(ctx context.Context, ev *proto.Event, r plugin.Responder) {
	switch {
	case p.get.MatchString(ev.Payload):
		p.handleGet(ctx, ev, r)
	case p.add.MatchString(ev.Payload):
		p.handleAdd(ctx, ev, r)
	case p.info.MatchString(ev.Payload):
		p.handleInfo(r)
	}
}

func (p *Plugin) handleGet(ctx context.Context, ev *proto.Event, r plugin.Responder) {
	if !p.allow(ev, r) {
		return
	}

	m, err := p.store.RandomMeme(ctx)
	if errors.Is(err, store.ErrEmpty) {
		r.Reply("no memes on record yet, add one first")
		return
	}
	if err != nil {
		p.log.Error().Err(err).Msg("meme: random pick failed")
		r.Reply("could not fetch a meme right now")
		return
	}

	p.mu.Lock()
	p.last = m
	p.mu.Unlock()

	r.Reply(m.Content)
}

func (p *Plugin) handleAdd(ctx context.Context, ev *proto.Event, r plugin.Responder) {
	if !p.allow(ev, r) {
		return
	}

	args := plugin.Arguments(p.add, ev.Payload)
	if len(args) == 0 || args[0] == "" {
		r.Reply("nothing to add: give the meme some text")
		return
	}
	content := args[0]

	exists, err := p.store.MemeExists(ctx, content)
	if err != nil {
		p.log.Error().Err(err).Msg("meme: exists check failed")
		r.Reply("could not save that meme right now")
		return
	}
	if exists {
		r.Reply(content + " is already a meme")
		return
	}

	if err := p.store.AddMeme(ctx, store.Meme{Author: ev.User, Content: content}); err != nil {
		p.log.Error().Err(err).Msg("meme: insert failed")
		r.Reply("could not save that meme right now")
		return
	}
	r.Reply(content + " is now a meme")
}

func (p *Plugin) handleInfo(r plugin.Responder) {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	if last == nil {
		r.Reply("no meme served yet")
		return
	}
	r.Reply(fmt.Sprintf("this meme was added by %s at %s",
		last.Author, last.CreatedAt.Format(time.RFC1123)))
}

// allow applies the cooldown/ban policy. Exactly one warning is sent per
// violation; banned users get nothing.
func (p *Plugin) allow(ev *proto.Event, r plugin.Responder) bool {
	switch p.limiter.Check(ev.User, ev.Received) {
	case plugin.VerdictProceed:
		return true
	case plugin.VerdictWarn:
		r.Send(fmt.Sprintf("**Slow down with those memes** (%s is banned from meme for %v; allowed 1 meme per %v)",
			ev.User, p.limiter.BanDuration(), p.limiter.Cooldown()))
		return false
	default:
		return false
	}
}
