package client

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/wirebot/internal/proto"
)

// handleEvent applies an event's session-level effects: login, liveness
// timestamp, room membership and identity upkeep. Chat content is left to
// plugin dispatch.
func (c *Client) handleEvent(ctx context.Context, ev *proto.Event) {
	switch ev.Command {
	case proto.CmdChallenge:
		c.handleChallenge(ctx, ev)

	case proto.CmdTimestamp:
		c.setLoginTime(ev.Timestamp)

	case proto.CmdLeave, proto.CmdLeaveLong:
		// The parser registered the leaving user; take presence back out.
		if ev.Room != "" && ev.User != "" {
			c.cache.RemoveUserFromRoom(ev.User, ev.Room)
		}

	case proto.CmdName, proto.CmdNameLong:
		// |n|NEWUSER|OLDID. The parser already registered the new name;
		// drop the old identity's presence.
		if len(ev.Params) < 2 {
			c.log.Warn().Strs("params", ev.Params).Msg("rename without an old id")
			return
		}
		if ev.Room != "" {
			c.cache.RemoveUserFromRoom(ev.Params[1], ev.Room)
		}

	case proto.CmdUsers:
		c.handleUserList(ev)

	case proto.CmdUpdateUser:
		c.handleUpdateUser(ev)

	case proto.CmdNameTaken:
		c.log.Warn().Strs("params", ev.Params).Msg("server rejected the login name")
	}
}

// handleChallenge runs the login handshake. The challenge arrives as two
// params and goes to the auth endpoint as "<id>|<string>".
func (c *Client) handleChallenge(ctx context.Context, ev *proto.Event) {
	if len(ev.Params) < 2 {
		c.log.Warn().Strs("params", ev.Params).Msg("challenge without both fields")
		return
	}
	challstr := ev.Params[0] + proto.Delim + ev.Params[1]

	c.log.Info().Str("user", c.cfg.Username).Msg("logging in")
	cmd, err := c.account.LoginCommand(ctx, c.cfg.Username, c.cfg.Password, challstr)
	if err != nil {
		c.log.Error().Err(err).Msg("login failed")
		c.Shutdown()
		return
	}
	c.Send(cmd)
}

// handleUserList seeds room presence from a |users| snapshot. The first
// comma-separated token is the member count and is skipped; every other
// token is an auth character glued to a user name.
func (c *Client) handleUserList(ev *proto.Event) {
	if len(ev.Params) == 0 || ev.Room == "" {
		return
	}
	entries := strings.Split(ev.Params[0], ",")
	if len(entries) < 2 {
		return
	}
	for _, entry := range entries[1:] {
		if entry == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(entry)
		auth, user := string(r), entry[size:]
		if user == "" {
			continue
		}
		c.cache.EnsureUser(user)
		c.cache.AddUserToRoom(user, ev.Room)
		c.cache.AddAuth(auth, user, ev.Room)
	}
}

// handleUpdateUser reacts to the server's view of our own identity:
// |updateuser|USERNAME|NAMED|AVATAR. An unnamed update means we are still
// a guest and may claim an avatar; a named update confirms the login, so
// the configured rooms get joined.
func (c *Client) handleUpdateUser(ev *proto.Event) {
	if len(ev.Params) < 2 {
		c.log.Warn().Strs("params", ev.Params).Msg("user update without a named flag")
		return
	}
	switch ev.Params[1] {
	case "0":
		if c.cfg.Avatar > 0 && c.cfg.Avatar <= 294 {
			c.Send("|/avatar " + strconv.Itoa(c.cfg.Avatar))
		}
	case "1":
		c.log.Info().Str("user", ev.Params[0]).Msg("logged in")
		for _, room := range c.cfg.Rooms {
			c.JoinRoom(room)
		}
	default:
		c.log.Warn().Str("flag", ev.Params[1]).Msg("unrecognized named flag")
	}
}
