package flowbuf

import "fmt"

// MaxBufferedBytes bounds each per-flow reassembly buffer (spec.md §4.2,
// §9: "a bounded size (e.g., 64 KiB)").
const MaxBufferedBytes = 64 * 1024

// Reassembler carries unconsumed tail bytes forward per FlowKey across
// frames, since no TCP reassembly is performed at the capture layer
// itself (spec.md §4.2). It is single-owner, driven by the record
// orchestrator's one goroutine.
type Reassembler struct {
	buffers      map[FlowKey][]byte
	ParseErrors  uint64 // flows reset due to oversize buffer without a complete command
}

// NewReassembler returns an empty per-flow buffer set.
func NewReassembler() *Reassembler {
	return &Reassembler{buffers: make(map[FlowKey][]byte)}
}

// Append adds payload to flow's buffer and returns the accumulated bytes
// available for parsing. If appending would exceed MaxBufferedBytes, the
// flow is reset (its buffer dropped) and ParseErrors is incremented,
// returning just the newly arrived payload as the fresh buffer contents.
func (r *Reassembler) Append(flow FlowKey, payload []byte) []byte {
	existing := r.buffers[flow]
	if len(existing)+len(payload) > MaxBufferedBytes {
		r.ParseErrors++
		existing = nil
	}
	buf := append(existing, payload...)
	r.buffers[flow] = buf
	return buf
}

// Consume drops the first n bytes of flow's buffer, keeping any
// unconsumed tail for the next Append (spec.md §4.2: "unconsumed tail
// bytes must be carried forward").
func (r *Reassembler) Consume(flow FlowKey, n int) error {
	buf, ok := r.buffers[flow]
	if !ok {
		return fmt.Errorf("flowbuf: consume on unknown flow %+v", flow)
	}
	if n > len(buf) {
		return fmt.Errorf("flowbuf: consume %d exceeds buffered %d bytes", n, len(buf))
	}
	rest := make([]byte, len(buf)-n)
	copy(rest, buf[n:])
	r.buffers[flow] = rest
	return nil
}

// Reset drops flow's buffer entirely; the record orchestrator calls it
// when Consume fails for that flow.
func (r *Reassembler) Reset(flow FlowKey) {
	delete(r.buffers, flow)
}

// Len reports the number of buffered bytes currently held for flow.
func (r *Reassembler) Len(flow FlowKey) int {
	return len(r.buffers[flow])
}
