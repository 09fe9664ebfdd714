//go:build linux

package capture

import (
	"encoding/binary"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
)

// kernelTapSource drains a ring buffer fed by a tracepoint on the recv
// syscall, filtered to one port (spec.md §4.1 item 3). Loading and
// compiling the BPF bytecode itself is out of scope (spec.md §1); this
// source only attaches to an already-pinned map, the same
// rlimit.RemoveMemlock + ringbuf.NewReader pairing
// yairfalse-tapio/internal/observers/network/observer_ebpf.go uses to
// drain its own ring buffer.
type kernelTapSource struct {
	reader *ringbuf.Reader
	m      *ebpf.Map
	port   uint16
	recv   uint64
	drop   uint64
	bytesN uint64
}

// kernelTapRecordHeader is the fixed prefix of the byte contract in
// spec.md §6: {u64 sock_id, u16 sport, u16 dport, u32 data_len}, followed
// by up to 4096 bytes of data.
const kernelTapRecordHeader = 8 + 2 + 2 + 4

// NewKernelTapSource attaches to the ring buffer map pinned at pinPath.
func NewKernelTapSource(pinPath string, port uint16) (Source, error) {
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, &CapabilityError{Backend: "ebpf", Reason: fmt.Sprintf("removing memlock: %v", err)}
	}
	m, err := ebpf.LoadPinnedMap(pinPath, nil)
	if err != nil {
		return nil, &CapabilityError{Backend: "ebpf", Reason: fmt.Sprintf("loading pinned map %q: %v", pinPath, err)}
	}
	r, err := ringbuf.NewReader(m)
	if err != nil {
		m.Close()
		return nil, &CapabilityError{Backend: "ebpf", Reason: fmt.Sprintf("opening ring buffer: %v", err)}
	}
	return &kernelTapSource{reader: r, m: m, port: port}, nil
}

func (s *kernelTapSource) NextFrame() (Frame, error) {
	rec, err := s.reader.Read()
	if err != nil {
		if err == ringbuf.ErrClosed {
			return Frame{}, ErrEndOfSource
		}
		return Frame{}, &TransientError{Err: err}
	}
	raw := rec.RawSample
	if len(raw) < kernelTapRecordHeader {
		s.drop++
		return Frame{}, &TransientError{Err: fmt.Errorf("capture: short ebpf record (%d bytes)", len(raw))}
	}

	sockID := binary.LittleEndian.Uint64(raw[0:8])
	sport := binary.LittleEndian.Uint16(raw[8:10])
	dport := binary.LittleEndian.Uint16(raw[10:12])
	dataLen := binary.LittleEndian.Uint32(raw[12:16])

	// Port extraction inside the kernel tap is a placeholder per spec.md
	// §9; treat dport as advisory and filter again here.
	if sport != s.port && dport != s.port {
		return Frame{}, &TransientError{Err: fmt.Errorf("capture: ebpf record for unrelated port %d/%d", sport, dport)}
	}

	data := raw[kernelTapRecordHeader:]
	if uint32(len(data)) < dataLen {
		s.drop++
		return Frame{}, &TransientError{Err: fmt.Errorf("capture: truncated ebpf payload (%d of %d bytes)", len(data), dataLen)}
	}
	data = data[:dataLen]

	s.recv++
	s.bytesN += uint64(len(data))
	return Frame{
		Bytes:    data,
		FlowHint: FlowHint{Valid: true, SockID: sockID, DstPort: dport},
	}, nil
}

func (s *kernelTapSource) Describe() string { return "ebpf:socket-tap" }
func (s *kernelTapSource) IsFinite() bool   { return false }

func (s *kernelTapSource) Stats() (Stats, bool) {
	return Stats{Received: s.recv, Dropped: s.drop, Bytes: s.bytesN}, true
}

func (s *kernelTapSource) Close() error {
	err := s.reader.Close()
	s.m.Close()
	return err
}
