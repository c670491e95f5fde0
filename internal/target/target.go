package target

import "unicode/utf8"

// MaxFrameLen is the longest single outgoing frame the protocol accepts.
// Longer replies are cut, not split; the excess is dropped.
const MaxFrameLen = 300

// Sender transmits one outbound text frame. The connection client
// implements it; tests substitute their own.
type Sender interface {
	Send(text string)
}

// Target is a destination a reply can be addressed to: a room broadcast or
// a private message to a user.
type Target interface {
	Send(s Sender, text string)
}

// Room addresses a reply to everyone in a room.
type Room struct {
	Name string
}

// Send broadcasts text to the room as "<room>|<text>".
func (r Room) Send(s Sender, text string) {
	deliver(s, r.Name+"|"+text)
}

// User addresses a reply privately to a single user.
type User struct {
	Name string
}

// Send whispers text to the user as "|/w <user>,<text>".
func (u User) Send(s Sender, text string) {
	deliver(s, "|/w "+u.Name+","+text)
}

func deliver(s Sender, text string) {
	if len(text) > MaxFrameLen {
		// Cut on a rune boundary; a severed rune would make the frame
		// invalid UTF-8 on a text-only transport.
		cut := MaxFrameLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	s.Send(text)
}
