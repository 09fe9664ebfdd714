package capture

import (
	"os"
	"strings"
)

// ebpfPrefix selects the kernel socket tap backend.
const ebpfPrefix = "ebpf:"

// NewSource implements the backend selection policy of spec.md §4.1: an
// "ebpf:" prefix selects the kernel tap, an existing regular file selects
// the offline variant, anything else is treated as a live interface name.
func NewSource(id string, port uint16) (Source, error) {
	if strings.HasPrefix(id, ebpfPrefix) {
		pinPath := strings.TrimPrefix(id, ebpfPrefix)
		return NewKernelTapSource(pinPath, port)
	}
	if info, err := os.Stat(id); err == nil && info.Mode().IsRegular() {
		return NewOfflineSource(id, port)
	}
	return NewLiveSource(id, port)
}
