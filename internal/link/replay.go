package link

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ReplayTransport streams a recorded frame capture from disk at the nominal
// sample rate, so full sessions can be replayed through the live pipeline.
type ReplayTransport struct {
	Path string
	// Interval between delivered frames; zero defaults to 50ms (20 Hz).
	Interval time.Duration
}

// NewReplayTransport creates a replay source for the given capture file.
func NewReplayTransport(path string) *ReplayTransport {
	return &ReplayTransport{Path: path, Interval: 50 * time.Millisecond}
}

// Scan reports the capture file as the single candidate.
func (t *ReplayTransport) Scan(ctx context.Context, found func(Candidate)) error {
	if _, err := os.Stat(t.Path); err != nil {
		return fmt.Errorf("replay capture missing: %w", err)
	}
	found(Candidate{Address: t.Path, Name: "replay:" + t.Path, LastSeen: time.Now()})
	<-ctx.Done()
	return nil
}

// Connect opens the capture. End of file is reported as a transport drop,
// which parks the manager in Error once its retry budget is spent.
func (t *ReplayTransport) Connect(ctx context.Context, address string) (Connection, error) {
	f, err := os.Open(address)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	interval := t.Interval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &streamConn{name: address, stream: readWriteFile{f}, done: make(chan struct{}), interval: interval}, nil
}

// readWriteFile widens an *os.File opened read-only to the stream interface;
// control writes to a replay are discarded.
type readWriteFile struct {
	*os.File
}

func (readWriteFile) Write(p []byte) (int, error) { return len(p), nil }
