package profile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrDone is returned by Next once the trailing metadata record and magic
// sentinel have been consumed. It is not a failure.
var ErrDone = errors.New("profile: stream exhausted")

// Streamer is a forward iterator over a profile file (spec.md §4.7). It
// can reset to the beginning to support replay loop policies other than
// Once.
type Streamer struct {
	src      io.ReadSeeker
	r        *bufio.Reader
	metadata *Metadata
	done     bool
}

// NewStreamer wraps a seekable source positioned at the start of a profile.
func NewStreamer(src io.ReadSeeker) *Streamer {
	return &Streamer{src: src, r: bufio.NewReaderSize(src, 64*1024)}
}

// Next yields the next event in file order, or ErrDone once the trailing
// metadata has been reached and parsed. Any other error is a malformed
// profile.
func (s *Streamer) Next() (Event, error) {
	if s.done {
		return Event{}, ErrDone
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(s.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, fmt.Errorf("profile: truncated profile, missing magic trailer")
		}
		return Event{}, err
	}
	length := binary.LittleEndian.Uint16(lenBuf[:])

	body := make([]byte, length)
	if _, err := io.ReadFull(s.r, body); err != nil {
		return Event{}, fmt.Errorf("profile: truncated record body: %w", err)
	}

	// Lookahead: if the next 4 bytes are the magic sentinel, the record we
	// just read was the metadata blob, not an event (spec.md §4.7). A
	// well-formed profile always has at least 4 more bytes after any real
	// event (the metadata record's own length-prefix and body); a short
	// Peek here means the file is truncated, not that this was the last
	// event.
	peek, err := s.r.Peek(4)
	if len(peek) < 4 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return Event{}, fmt.Errorf("profile: truncated profile, missing magic trailer: %w", err)
	}
	if binary.LittleEndian.Uint32(peek) == Magic {
		md, derr := DecodeMetadata(body)
		if derr != nil {
			return Event{}, derr
		}
		if _, derr := s.r.Discard(4); derr != nil {
			return Event{}, derr
		}
		s.metadata = md
		s.done = true
		return Event{}, ErrDone
	}

	ev, derr := DecodeEvent(body)
	if derr != nil {
		return Event{}, derr
	}
	return ev, nil
}

// Metadata returns the terminal metadata once Next has returned ErrDone.
// Returns nil if the stream has not yet reached the trailer.
func (s *Streamer) Metadata() *Metadata {
	return s.metadata
}

// Reset rewinds the stream to the beginning, for loop policies other than
// Once (spec.md §4.8).
func (s *Streamer) Reset() error {
	if _, err := s.src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	s.r = bufio.NewReaderSize(s.src, 64*1024)
	s.done = false
	return nil
}

// ReadMetadata streams src to completion purely to recover the terminal
// metadata, discarding events along the way. Used by the analyze command,
// which is a thin consumer of the streamer and metadata (spec.md §1).
func ReadMetadata(src io.ReadSeeker) (*Metadata, error) {
	s := NewStreamer(src)
	for {
		_, err := s.Next()
		if errors.Is(err, ErrDone) {
			return s.Metadata(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}
