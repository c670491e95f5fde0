// Command ws_probe dials a pipe-protocol server and dumps its frames,
// optionally sending one frame first. Handy for poking at a server without
// starting the whole bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_probe: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8000/showdown/websocket", "websocket address")
	send := flag.String("send", "", "frame to send after connecting")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if *send != "" {
		if err := conn.Write(ctx, websocket.MessageText, []byte(*send)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		fmt.Printf("-> %s\n", *send)
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageText {
			return fmt.Errorf("unexpected %v frame", typ)
		}
		fmt.Printf("<- %s\n", data)
	}
}
