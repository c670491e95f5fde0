package proto

import "time"

// Field layout markers of the wire format. Each line is a sequence of
// pipe-delimited fields; a frame's first line may start with '>' to set the
// room context for the rest of the frame.
const (
	// Delim separates fields within one protocol line.
	Delim = "|"
	// RoomPrefix marks a line that establishes room context for a frame.
	RoomPrefix = '>'
)

// Recognized command tokens. Anything else is accepted and produces a
// payload-only event.
const (
	CmdChat       = "c"
	CmdChatTS     = "c:"
	CmdPM         = "pm"
	CmdJoin       = "j"
	CmdJoinLong   = "join"
	CmdLeave      = "l"
	CmdLeaveLong  = "leave"
	CmdName       = "n"
	CmdNameLong   = "name"
	CmdChallenge  = "challstr"
	CmdTimestamp  = ":"
	CmdUpdateUser = "updateuser"
	CmdUsers      = "users"
	CmdNameTaken  = "nametaken"
)

// Event is one parsed protocol line. Room and User may be empty when the
// line carried no such context; consumers treat the empty identity as
// absent, never as a real entity. Events are immutable after construction.
type Event struct {
	// Received is the local receipt time of the line.
	Received time.Time
	// Timestamp is the server timestamp of chat-timestamp events, zero
	// otherwise.
	Timestamp uint64
	// Command is the case-folded command token. Empty for bare chat
	// continuation lines, which are valid no-op events.
	Command string
	// Params are the raw fields following the command token.
	Params []string
	// Private reports whether the line was a private message.
	Private bool
	// Room is the room context the line arrived under, if any.
	Room string
	// User is the acting user's display name without the auth prefix.
	User string
	// Auth is the single-character authorization prefix of the acting
	// user, " " when the user holds no authorization.
	Auth string
	// Payload is the free-text body of the line, if any.
	Payload string
}
