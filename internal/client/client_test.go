package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/vovakirdan/wirebot/internal/account"
	"github.com/vovakirdan/wirebot/internal/config"
	"github.com/vovakirdan/wirebot/internal/plugin"
	"github.com/vovakirdan/wirebot/internal/proto"
	"github.com/vovakirdan/wirebot/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func newTestClient(t *testing.T, cfg config.Config) *Client {
	t.Helper()
	logger := zerolog.Nop()
	cache := state.NewCache()
	parser := proto.NewParser(cache, &logger)
	registry := plugin.NewRegistry(&logger)
	return New(cfg, cache, parser, registry, nil, &logger)
}

// nextFrame pops one queued outbound frame or fails the test.
func nextFrame(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case text := <-c.outbound:
		return text
	case <-time.After(time.Second):
		t.Fatal("no outbound frame queued")
		return ""
	}
}

func TestSendDropsWhenQueueFull(t *testing.T) {
	cfg := config.Default()
	cfg.OutboundQueueSize = 2
	c := newTestClient(t, cfg)

	c.Send("one")
	c.Send("two")
	c.Send("three") // dropped, queue is full

	if got := nextFrame(t, c); got != "one" {
		t.Errorf("frame = %q, want one", got)
	}
	if got := nextFrame(t, c); got != "two" {
		t.Errorf("frame = %q, want two", got)
	}
	select {
	case extra := <-c.outbound:
		t.Errorf("unexpected queued frame %q", extra)
	default:
	}
}

func TestSendAfterShutdownIsDropped(t *testing.T) {
	c := newTestClient(t, config.Default())
	c.Shutdown()
	c.Send("late")
	select {
	case extra := <-c.outbound:
		t.Errorf("frame %q queued after shutdown", extra)
	default:
	}
}

func TestHandleFrameRoomContextAndPresence(t *testing.T) {
	c := newTestClient(t, config.Default())

	c.handleFrame(context.Background(), ">lobby\n|users|3,#alice, bob\n|j| carol")

	for _, user := range []string{"alice", "bob", "carol"} {
		if !c.cache.RoomHasUser(user, "lobby") {
			t.Errorf("user %s missing from lobby", user)
		}
	}
	if !c.cache.HasAuth("#", "alice", "lobby") {
		t.Error("alice should hold # in lobby")
	}
	if !c.cache.HasAuth(" ", "bob", "lobby") {
		t.Error("bob should hold the blank auth in lobby")
	}
}

func TestHandleFrameMalformedLineIsContained(t *testing.T) {
	c := newTestClient(t, config.Default())

	// The middle line lacks the fields its command requires; the join
	// after it must still land.
	c.handleFrame(context.Background(), ">lobby\n|c:|1000\n|j| dave")

	if !c.cache.RoomHasUser("dave", "lobby") {
		t.Error("line after the malformed one was not processed")
	}
}

func TestLeaveAndRenameAdjustPresence(t *testing.T) {
	c := newTestClient(t, config.Default())
	ctx := context.Background()

	c.handleFrame(ctx, ">lobby\n|j| eve")
	if !c.cache.RoomHasUser("eve", "lobby") {
		t.Fatal("eve should be present after join")
	}

	c.handleFrame(ctx, ">lobby\n|n| Evelyn|eve")
	if c.cache.RoomHasUser("eve", "lobby") {
		t.Error("old identity should be gone after rename")
	}
	if !c.cache.RoomHasUser("evelyn", "lobby") {
		t.Error("new identity should be present after rename")
	}

	c.handleFrame(ctx, ">lobby\n|l| Evelyn")
	if c.cache.RoomHasUser("evelyn", "lobby") {
		t.Error("evelyn should be gone after leave")
	}
}

func TestTimestampSetsLoginTime(t *testing.T) {
	c := newTestClient(t, config.Default())

	c.handleFrame(context.Background(), "|:|1526")
	if got := c.LoginTime(); got != 1526 {
		t.Errorf("login time = %d, want 1526", got)
	}
}

func TestUpdateUserNamedJoinsConfiguredRooms(t *testing.T) {
	cfg := config.Default()
	cfg.Rooms = []string{"lobby", "techtalk"}
	c := newTestClient(t, cfg)

	c.handleFrame(context.Background(), "|updateuser|WireBot|1|102")

	frames := []string{nextFrame(t, c), nextFrame(t, c)}
	want := []string{"|/join lobby", "|/join techtalk"}
	for i, w := range want {
		if frames[i] != w {
			t.Errorf("frame[%d] = %q, want %q", i, frames[i], w)
		}
	}
	if !c.cache.ContainsRoom("lobby") || !c.cache.ContainsRoom("techtalk") {
		t.Error("joined rooms should be cached")
	}
}

func TestUpdateUserGuestClaimsAvatar(t *testing.T) {
	cfg := config.Default()
	cfg.Avatar = 42
	c := newTestClient(t, cfg)

	c.handleFrame(context.Background(), "|updateuser|Guest 12|0|0")

	if got := nextFrame(t, c); got != "|/avatar 42" {
		t.Errorf("frame = %q, want |/avatar 42", got)
	}
}

func TestUpdateUserGuestSkipsOutOfRangeAvatar(t *testing.T) {
	cfg := config.Default()
	cfg.Avatar = 9000
	c := newTestClient(t, cfg)

	c.handleFrame(context.Background(), "|updateuser|Guest 12|0|0")

	select {
	case extra := <-c.outbound:
		t.Errorf("unexpected frame %q for an out-of-range avatar", extra)
	default:
	}
}

func TestChallengeTriggersLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.PostFormValue("challstr"); got != "4|deadbeef" {
			t.Errorf("challstr = %q", got)
		}
		w.Write([]byte(`]{"assertion":"blob"}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Username = "WireBot"
	cfg.Password = "pw"
	c := newTestClient(t, cfg)
	logger := zerolog.Nop()
	c.account = account.New(srv.URL, &logger)

	c.handleFrame(context.Background(), "|challstr|4|deadbeef")

	if got := nextFrame(t, c); got != "|/trn WireBot,0,blob" {
		t.Errorf("frame = %q", got)
	}
}

func TestLoginFailureShutsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`]{"actionsuccess":false}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Username = "WireBot"
	cfg.Password = "pw"
	c := newTestClient(t, cfg)
	logger := zerolog.Nop()
	c.account = account.New(srv.URL, &logger)

	c.handleFrame(context.Background(), "|challstr|4|deadbeef")

	select {
	case <-c.Done():
	default:
		t.Fatal("a failed login must shut the session down")
	}
}

func TestConsoleCloseShutsDown(t *testing.T) {
	c := newTestClient(t, config.Default())
	c.RunConsole(strings.NewReader("/close\n"))
	select {
	case <-c.Done():
	default:
		t.Fatal("console /close must shut the session down")
	}
}

func TestConsoleForwardsLinesVerbatim(t *testing.T) {
	c := newTestClient(t, config.Default())
	c.RunConsole(strings.NewReader("lobby|hello\n"))
	if got := nextFrame(t, c); got != "lobby|hello" {
		t.Errorf("frame = %q, want lobby|hello", got)
	}
}

// TestSessionAgainstServer runs the full loops against a real websocket
// endpoint: presence arrives over the wire, a queued frame goes out, and
// shutdown joins both loops.
func TestSessionAgainstServer(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "test over")

		ctx := r.Context()
		if err := conn.Write(ctx, websocket.MessageText, []byte(">lobby\n|users|2,#alice, bob")); err != nil {
			t.Errorf("server write: %v", err)
			return
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		received <- string(data)
		// hold the connection open until the client closes it
		_, _, _ = conn.Read(ctx)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Throttle = time.Millisecond
	host, port, ok := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	if !ok {
		t.Fatalf("unexpected test server url %s", srv.URL)
	}
	cfg.Host, cfg.Port = host, port

	c := newTestClient(t, cfg)
	// The test server has no path routing; dial the root instead.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+host+":"+port, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c.conn = conn
	c.wg.Add(2)
	go c.sendLoop(ctx)
	go c.receiveLoop(ctx)

	deadline := time.After(2 * time.Second)
	for !c.cache.RoomHasUser("alice", "lobby") {
		select {
		case <-deadline:
			t.Fatal("presence from the server never reached the cache")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.Send("lobby|hello there")
	select {
	case got := <-received:
		if got != "lobby|hello there" {
			t.Errorf("server received %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the queued frame")
	}

	c.Shutdown()
	c.Wait()
}
