package target

import (
	"strings"
	"testing"
	"unicode/utf8"
)

type captureSender struct {
	frames []string
}

func (c *captureSender) Send(text string) {
	c.frames = append(c.frames, text)
}

func TestRoomSendFormat(t *testing.T) {
	s := &captureSender{}
	Room{Name: "lobby"}.Send(s, "hello")

	if len(s.frames) != 1 || s.frames[0] != "lobby|hello" {
		t.Fatalf("unexpected frames: %v", s.frames)
	}
}

func TestUserSendFormat(t *testing.T) {
	s := &captureSender{}
	User{Name: "alice"}.Send(s, "psst")

	if len(s.frames) != 1 || s.frames[0] != "|/w alice,psst" {
		t.Fatalf("unexpected frames: %v", s.frames)
	}
}

func TestSendTruncatesAtFrameLimit(t *testing.T) {
	s := &captureSender{}
	long := strings.Repeat("x", 2*MaxFrameLen)
	Room{Name: "lobby"}.Send(s, long)

	if got := len(s.frames[0]); got != MaxFrameLen {
		t.Fatalf("frame length = %d, want %d", got, MaxFrameLen)
	}
	if !strings.HasPrefix(s.frames[0], "lobby|") {
		t.Fatalf("truncation must keep the room prefix: %q", s.frames[0][:10])
	}
}

func TestSendTruncatesOnRuneBoundary(t *testing.T) {
	s := &captureSender{}
	// Non-ASCII text straddling the frame limit must not be cut mid-rune.
	long := strings.Repeat("x", MaxFrameLen-8) + "日本語の長い言葉"
	Room{Name: "lobby"}.Send(s, long)

	frame := s.frames[0]
	if len(frame) > MaxFrameLen {
		t.Fatalf("frame length = %d, want at most %d", len(frame), MaxFrameLen)
	}
	if !utf8.ValidString(frame) {
		t.Fatalf("truncated frame is not valid UTF-8: %q", frame[len(frame)-6:])
	}
}

func TestSendShortFrameUntouched(t *testing.T) {
	s := &captureSender{}
	User{Name: "bob"}.Send(s, "ok")

	if s.frames[0] != "|/w bob,ok" {
		t.Fatalf("short frame must pass through unchanged: %q", s.frames[0])
	}
}
