package flowbuf

import "testing"

func TestReassemblerAppendConsumeCarriesTail(t *testing.T) {
	r := NewReassembler()
	flow := FlowKey{SrcIP: [4]byte{1, 2, 3, 4}, SrcPort: 1, DstPort: 2}

	buf := r.Append(flow, []byte("get fo"))
	if string(buf) != "get fo" {
		t.Fatalf("got %q, want %q", buf, "get fo")
	}
	if err := r.Consume(flow, 0); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	buf = r.Append(flow, []byte("o\r\n"))
	if string(buf) != "get foo\r\n" {
		t.Fatalf("got %q, want %q", buf, "get foo\r\n")
	}
	if err := r.Consume(flow, len(buf)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if r.Len(flow) != 0 {
		t.Fatalf("Len = %d, want 0", r.Len(flow))
	}
}

func TestReassemblerOverflowResets(t *testing.T) {
	r := NewReassembler()
	flow := FlowKey{DstPort: 11211}

	big := make([]byte, MaxBufferedBytes)
	r.Append(flow, big)
	if r.ParseErrors != 0 {
		t.Fatalf("ParseErrors = %d, want 0 after filling exactly to the bound", r.ParseErrors)
	}

	buf := r.Append(flow, []byte("x"))
	if r.ParseErrors != 1 {
		t.Fatalf("ParseErrors = %d, want 1 after exceeding the bound", r.ParseErrors)
	}
	if string(buf) != "x" {
		t.Fatalf("expected flow reset to keep only the newly arrived payload, got %d bytes", len(buf))
	}
}

func TestReassemblerConsumeUnknownFlow(t *testing.T) {
	r := NewReassembler()
	if err := r.Consume(FlowKey{DstPort: 1}, 0); err == nil {
		t.Fatal("expected error consuming an unknown flow")
	}
}

func TestReassemblerConsumeTooMuch(t *testing.T) {
	r := NewReassembler()
	flow := FlowKey{DstPort: 1}
	r.Append(flow, []byte("abc"))
	if err := r.Consume(flow, 10); err == nil {
		t.Fatal("expected error consuming more bytes than buffered")
	}
}
