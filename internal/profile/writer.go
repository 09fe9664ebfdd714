package profile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Writer serializes events into the length-prefixed profile format and
// maintains the rolling Metadata described in spec.md §4.5. It mirrors the
// buffered-file-then-flush-on-finish shape of the teacher's
// text/csv writer in reporter.go, generalized to the binary event codec.
type Writer struct {
	w        *bufio.Writer
	metadata *Metadata
	closer   io.Closer
}

// NewWriter wraps an io.Writer (typically a *os.File) with buffering.
// If w also implements io.Closer, Finish will close it after flushing.
func NewWriter(w io.Writer) *Writer {
	closer, _ := w.(io.Closer)
	return &Writer{
		w:        bufio.NewWriter(w),
		metadata: NewMetadata(),
		closer:   closer,
	}
}

// Write buffers one event and updates the rolling metadata.
func (pw *Writer) Write(e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body := EncodeEvent(make([]byte, 0, e.EncodedSize()), e)
	if len(body) > 0xFFFF {
		return fmt.Errorf("profile: encoded event exceeds u16 length prefix (%d bytes)", len(body))
	}
	var prefix [2]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(body)))
	if _, err := pw.w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := pw.w.Write(body); err != nil {
		return err
	}
	pw.metadata.Observe(e)
	return nil
}

// Finish finalizes the metadata, writes the trailing metadata record and
// magic sentinel, flushes, and (if the underlying writer is closeable)
// closes it. It is the Go counterpart of the spec's finish().
func (pw *Writer) Finish() error {
	pw.metadata.Finalize()

	body := EncodeMetadata(make([]byte, 0, 64), pw.metadata)
	if len(body) > 0xFFFF {
		return fmt.Errorf("profile: encoded metadata exceeds u16 length prefix (%d bytes)", len(body))
	}
	var prefix [2]byte
	binary.LittleEndian.PutUint16(prefix[:], uint16(len(body)))
	if _, err := pw.w.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := pw.w.Write(body); err != nil {
		return err
	}

	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], Magic)
	if _, err := pw.w.Write(magic[:]); err != nil {
		return err
	}

	if err := pw.w.Flush(); err != nil {
		return err
	}
	if pw.closer != nil {
		return pw.closer.Close()
	}
	return nil
}

// Metadata returns the writer's current rolling metadata snapshot. Safe to
// call only from the single owning goroutine, per spec.md §3 lifecycle.
func (pw *Writer) Metadata() *Metadata {
	return pw.metadata
}
