// Package memcache implements the ASCII/meta text protocol parser and the
// deterministic replay command synthesizer described in spec.md §4.3/§4.10.
// No binary-protocol support is implemented; that is an explicit Non-goal.
package memcache

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/fsaintjacques/membench/internal/profile"
)

// ErrNeedMore indicates the buffer does not yet contain a complete command.
var ErrNeedMore = errors.New("memcache: need more data")

// ProtocolError wraps a non-fatal parse failure; the caller resynchronizes
// by discarding bytesConsumed and trying again (spec.md §4.3).
type ProtocolError struct {
	Reason        string
	BytesConsumed int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("memcache: protocol error: %s", e.Reason)
}

// Command is a parsed command's byte extents within the input buffer. The
// parser never copies the key.
type Command struct {
	Type         profile.Command
	KeyStart     int
	KeyEnd       int
	HasValueSize bool
	ValueSize    uint32
}

func (c *Command) Key(buf []byte) []byte { return buf[c.KeyStart:c.KeyEnd] }

var verbTable = map[string]profile.Command{
	"get":     profile.CommandGet,
	"gets":    profile.CommandGet,
	"mg":      profile.CommandGet,
	"set":     profile.CommandSet,
	"add":     profile.CommandSet,
	"replace": profile.CommandSet,
	"ms":      profile.CommandSet,
	"delete":  profile.CommandDelete,
	"md":      profile.CommandDelete,
	"version": profile.CommandNoop,
	"noop":    profile.CommandNoop,
	"mn":      profile.CommandNoop,
}

// Parse locates one command at the start of buf. It returns the command
// and the number of bytes consumed, ErrNeedMore if buf does not yet hold a
// full command, or a *ProtocolError (non-fatal, resynchronizing) for an
// unknown verb. Parse never returns success with zero bytes consumed
// (spec.md §8).
func Parse(buf []byte) (Command, int, error) {
	start := 0
	for start < len(buf) && buf[start] == ' ' {
		start++
	}

	lineEnd := bytes.IndexByte(buf[start:], '\n')
	if lineEnd < 0 {
		return Command{}, 0, ErrNeedMore
	}
	lineEnd += start

	line := buf[start:lineEnd]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	consumedLine := lineEnd + 1

	fields := splitSpaces(line)
	if len(fields) == 0 {
		return Command{}, consumedLine, &ProtocolError{Reason: "empty command line", BytesConsumed: consumedLine}
	}

	verb := lowerASCII(fields[0])
	cmdType, ok := verbTable[string(verb)]
	if !ok {
		return Command{}, consumedLine, &ProtocolError{Reason: fmt.Sprintf("unknown verb %q", verb), BytesConsumed: consumedLine}
	}

	switch cmdType {
	case profile.CommandGet, profile.CommandDelete:
		if len(fields) < 2 {
			return Command{}, consumedLine, &ProtocolError{Reason: "missing key", BytesConsumed: consumedLine}
		}
		keyStart, keyEnd := fieldExtent(buf, start, fields, 1)
		return Command{Type: cmdType, KeyStart: keyStart, KeyEnd: keyEnd}, consumedLine, nil

	case profile.CommandNoop:
		return Command{Type: cmdType}, consumedLine, nil

	case profile.CommandSet:
		return parseSet(buf, start, fields, consumedLine)

	default:
		return Command{}, consumedLine, &ProtocolError{Reason: "unhandled verb", BytesConsumed: consumedLine}
	}
}

// parseSet handles both `set key flags exptime bytes\r\n<bytes>\r\n` (ASCII)
// and `ms key bytes ...\r\n<bytes>\r\n` (meta) forms, per spec.md §4.3.
func parseSet(buf []byte, lineStart int, fields [][]byte, consumedLine int) (Command, int, error) {
	if len(fields) < 2 {
		return Command{}, consumedLine, &ProtocolError{Reason: "set: missing key", BytesConsumed: consumedLine}
	}
	keyStart, keyEnd := fieldExtent(buf, lineStart, fields, 1)

	verb := lowerASCII(fields[0])
	var bytesField []byte
	if string(verb) == "ms" {
		if len(fields) < 3 {
			return Command{}, consumedLine, &ProtocolError{Reason: "ms: missing size", BytesConsumed: consumedLine}
		}
		bytesField = fields[2]
	} else {
		// set/add/replace key flags exptime bytes [noreply]
		if len(fields) < 5 {
			return Command{}, consumedLine, &ProtocolError{Reason: "set: missing bytes field", BytesConsumed: consumedLine}
		}
		bytesField = fields[4]
	}

	size, err := strconv.ParseUint(string(bytesField), 10, 32)
	if err != nil {
		return Command{}, consumedLine, &ProtocolError{Reason: "set: invalid byte count", BytesConsumed: consumedLine}
	}

	valueBlockLen := int(size) + 2 // payload + trailing CRLF
	if len(buf)-consumedLine < valueBlockLen {
		return Command{}, 0, ErrNeedMore
	}

	total := consumedLine + valueBlockLen
	return Command{
		Type:         profile.CommandSet,
		KeyStart:     keyStart,
		KeyEnd:       keyEnd,
		HasValueSize: true,
		ValueSize:    uint32(size),
	}, total, nil
}

func fieldExtent(buf []byte, lineStart int, fields [][]byte, idx int) (int, int) {
	off := lineStart
	for i := 0; i < idx; i++ {
		off += len(fields[i])
		off = skipLeadingSpaces(buf, off)
	}
	return off, off + len(fields[idx])
}

// splitSpaces splits on single spaces like the fields of the wire protocol,
// skipping runs of spaces (leading whitespace is tolerated per spec.md §4.3).
func splitSpaces(line []byte) [][]byte {
	var out [][]byte
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		j := i
		for j < len(line) && line[j] != ' ' {
			j++
		}
		if j > i {
			out = append(out, line[i:j])
		}
		i = j
	}
	return out
}

func skipLeadingSpaces(buf []byte, off int) int {
	for off < len(buf) && buf[off] == ' ' {
		off++
	}
	return off
}

func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
