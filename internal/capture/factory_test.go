package capture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSourceRoutesEbpfPrefixToKernelTap(t *testing.T) {
	_, err := NewSource("ebpf:/sys/fs/bpf/foo", 11211)
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return // expected off Linux, or on Linux without the pin available
	}
	if err == nil {
		t.Fatal("expected an error opening a nonexistent bpf pin path")
	}
}

func TestNewSourceRoutesExistingFileToOffline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")
	if err := os.WriteFile(path, []byte("not a real pcap file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := NewSource(path, 11211)
	if err == nil {
		t.Fatal("expected an error opening a malformed pcap file")
	}
	if got := err.Error(); !strings.Contains(got, "capture file") {
		t.Fatalf("error %q does not mention the offline path was taken", got)
	}
}

func TestNewSourceRoutesUnknownNameToLiveInterface(t *testing.T) {
	_, err := NewSource("definitely-not-a-real-interface-0", 11211)
	if err == nil {
		t.Fatal("expected an error opening a nonexistent live interface")
	}
	if got := err.Error(); !strings.Contains(got, "live interface") {
		t.Fatalf("error %q does not mention the live path was taken", got)
	}
}
