package record

import (
	"fmt"
	"io"
	"os"

	"github.com/fsaintjacques/membench/internal/profile"
)

// Analyze streams path purely to recover its trailing metadata and prints
// the textual summary described in spec.md §1 ("a thin consumer of the
// streamer and the profile metadata").
func Analyze(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("analyze: open %q: %w", path, err)
	}
	defer f.Close()

	md, err := profile.ReadMetadata(f)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	fmt.Fprintf(w, "profile: %s\n", path)
	fmt.Fprintf(w, "  total_events:       %d\n", md.TotalEvents)
	fmt.Fprintf(w, "  unique_connections: %d\n", md.UniqueConnections)
	fmt.Fprintf(w, "  first_timestamp:    %d\n", md.FirstTimestamp)
	fmt.Fprintf(w, "  last_timestamp:     %d\n", md.LastTimestamp)
	fmt.Fprintf(w, "  command_distribution:\n")
	for cmd, count := range md.CommandDistribution {
		fmt.Fprintf(w, "    %-8s %d\n", cmd, count)
	}
	return nil
}
