package replay

import (
	"bufio"
	"errors"
	"fmt"
	"net"

	"github.com/fsaintjacques/membench/internal/memcache"
	"github.com/fsaintjacques/membench/internal/profile"
)

// ErrProtocolError marks a server-reported protocol error
// (ERROR/CLIENT_ERROR/SERVER_ERROR), recorded but non-fatal per
// spec.md §4.9 step 7.
var ErrProtocolError = errors.New("replay: server protocol error")

// Client owns one TCP connection to the replay target and drains its
// response lines per spec.md §4.9. It is single-owner, exactly like the
// Source/Writer of the record side (spec.md §3).
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to target (host:port).
func Dial(target string) (*Client, error) {
	conn, err := net.Dial("tcp", target)
	if err != nil {
		return nil, fmt.Errorf("replay: dial %q: %w", target, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close closes the underlying TCP connection.
func (c *Client) Close() error { return c.conn.Close() }

// Send writes the full synthesized command bytes for e.
func (c *Client) Send(e *profile.Event, mode memcache.ProtocolMode) error {
	cmd := memcache.Synthesize(e, mode)
	if _, err := c.conn.Write(cmd); err != nil {
		return fmt.Errorf("replay: write command: %w", err)
	}
	return nil
}

// DrainResponse reads and discards the server's response to one command,
// per the per-variant draining rules of spec.md §4.9 step 4. It returns
// ErrProtocolError (wrapping the server's line) for ERROR/CLIENT_ERROR/
// SERVER_ERROR responses.
func (c *Client) DrainResponse(cmdType profile.Command) error {
	switch cmdType {
	case profile.CommandSet:
		return c.drainUntilAny("STORED\r\n", "NOT_STORED\r\n", "EXISTS\r\n", "ERROR\r\n")
	case profile.CommandGet:
		return c.drainUntilLine("END\r\n")
	case profile.CommandDelete, profile.CommandNoop:
		return c.drainOneLine()
	default:
		return c.drainOneLine()
	}
}

func (c *Client) drainOneLine() error {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("replay: read response: %w", err)
	}
	return classifyLine(line)
}

// drainUntilLine reads lines until one equals terminator, classifying
// each for protocol errors along the way (Get's "END\r\n" case).
func (c *Client) drainUntilLine(terminator string) error {
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return fmt.Errorf("replay: read response: %w", err)
		}
		if perr := classifyLine(line); perr != nil {
			return perr
		}
		if line == terminator {
			return nil
		}
	}
}

// drainUntilAny reads a single line and checks it against any of the
// terminators (Set's STORED/NOT_STORED/EXISTS/ERROR case: exactly one
// reply line is expected).
func (c *Client) drainUntilAny(terminators ...string) error {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("replay: read response: %w", err)
	}
	for _, t := range terminators {
		if line == t {
			return classifyLine(line)
		}
	}
	return classifyLine(line)
}

func classifyLine(line string) error {
	switch {
	case len(line) >= 5 && line[:5] == "ERROR":
		return fmt.Errorf("%w: %s", ErrProtocolError, line)
	case len(line) >= 12 && line[:12] == "CLIENT_ERROR":
		return fmt.Errorf("%w: %s", ErrProtocolError, line)
	case len(line) >= 12 && line[:12] == "SERVER_ERROR":
		return fmt.Errorf("%w: %s", ErrProtocolError, line)
	default:
		return nil
	}
}
