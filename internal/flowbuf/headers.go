// Package flowbuf reassembles per-flow TCP payload, bounded, ahead of the
// memcache parser (spec.md §4.2). Header decoding itself is left to each
// capture source's own library (gopcap for the live/offline sources, the
// kernel tap's own wire format for the eBPF source); this package only
// keys and buffers the payload bytes those sources hand it.
package flowbuf

// FlowKey is the 3-tuple identifying a logical capture connection
// (spec.md §4.2, §GLOSSARY "Connection id").
type FlowKey struct {
	SrcIP   [4]byte
	SrcPort uint16
	DstPort uint16
}
