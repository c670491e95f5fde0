package proto

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/state"
)

// ErrMalformedLine reports a line whose fields do not match the layout its
// command token requires. The line is dropped; the rest of the frame is
// unaffected.
var ErrMalformedLine = errors.New("malformed protocol line")

// Parser converts protocol lines into events and registers newly observed
// rooms and users into the state cache as it goes.
type Parser struct {
	cache *state.Cache
	log   *zerolog.Logger
}

// NewParser builds a parser bound to the given cache.
func NewParser(cache *state.Cache, logger *zerolog.Logger) *Parser {
	return &Parser{cache: cache, log: logger}
}

// Parse turns one logical line into an Event. The text may carry a leading
// ">room" segment separated by a newline; the room context then applies to
// the line. Field indexing is guarded: a line that does not carry the
// fields its command requires yields ErrMalformedLine.
func (p *Parser) Parse(text string) (*Event, error) {
	received := time.Now()

	lines := strings.Split(text, "\n")
	fields := strings.Split(text, Delim)

	// The command token is always the second field.
	command := ""
	if len(fields) > 1 {
		command = strings.ToLower(fields[1])
	}

	var params []string
	if command != "" && len(fields) > 2 {
		params = fields[2:]
	}

	room := ""
	if lines[0] != "" && lines[0][0] == RoomPrefix {
		room = lines[0][1:]
	}

	// Chat-timestamp commands carry a numeric server timestamp as their
	// first parameter. A missing field is malformed; an unparseable value
	// degrades to zero.
	var timestamp uint64
	if strings.Contains(command, ":") {
		if len(params) == 0 {
			return nil, ErrMalformedLine
		}
		ts, err := strconv.ParseUint(params[0], 10, 64)
		if err != nil {
			p.log.Warn().Err(err).Str("field", params[0]).Msg("bad timestamp field")
			ts = 0
		}
		timestamp = ts
	}

	var (
		auth    string
		user    string
		payload string
		private bool
	)

	switch command {
	case CmdChatTS:
		// |c:|TIMESTAMP|USER|MESSAGE
		if len(fields) < 5 {
			return nil, ErrMalformedLine
		}
		auth, user = splitAuth(fields[3])
		payload = strings.Join(fields[4:], Delim)
	case CmdPM:
		// |pm|SENDER|RECEIVER|MESSAGE
		if len(fields) < 5 {
			return nil, ErrMalformedLine
		}
		auth, user = splitAuth(fields[2])
		payload = strings.Join(fields[4:], Delim)
		private = true
	case CmdChat, CmdJoin, CmdLeave, CmdName:
		// |c|USER... / |j|USER / |l|USER / |n|USER|OLDID
		if len(fields) < 3 {
			return nil, ErrMalformedLine
		}
		auth, user = splitAuth(fields[2])
	default:
		// Everything else, including multi-line HTML-ish bodies: the
		// payload is the last line of the original text.
		payload = lines[len(lines)-1]
	}

	if user == "" && auth != "" {
		// An auth prefix with no name behind it is not a user.
		return nil, ErrMalformedLine
	}

	// Register what this line taught us before handing the event out.
	if room != "" {
		p.cache.EnsureRoom(room)
	}
	if user != "" {
		p.cache.EnsureUser(user)
	}
	if room != "" && user != "" {
		p.cache.AddUserToRoom(user, room)
		p.cache.AddAuth(auth, user, room)
	}

	return &Event{
		Received:  received,
		Timestamp: timestamp,
		Command:   command,
		Params:    params,
		Private:   private,
		Room:      room,
		User:      user,
		Auth:      auth,
		Payload:   payload,
	}, nil
}

// splitAuth splits a combined "<auth><name>" field into the one-character
// authorization prefix and the display name. The prefix is " " for users
// without authorization, so the first rune is always the auth.
func splitAuth(field string) (auth, user string) {
	if field == "" {
		return "", ""
	}
	r, size := utf8.DecodeRuneInString(field)
	return string(r), field[size:]
}
