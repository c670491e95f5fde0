package client

import (
	"bufio"
	"context"
	"io"
	"time"
)

// RunConsole reads operator commands line by line until shutdown or EOF.
// "/close" tears the session down, "/ping" probes the transport, anything
// else goes out verbatim as a frame.
func (c *Client) RunConsole(in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case <-c.closing:
			return
		default:
		}

		switch line := sc.Text(); line {
		case "":
		case "/close":
			c.log.Info().Msg("console close")
			c.Shutdown()
			return
		case "/ping":
			c.ping()
		default:
			c.Send(line)
		}
	}
	if err := sc.Err(); err != nil {
		c.log.Warn().Err(err).Msg("console read")
	}
}

func (c *Client) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.conn.Ping(ctx); err != nil {
		c.log.Warn().Err(err).Msg("ping failed")
		return
	}
	c.log.Info().Msg("pong")
}
