// Package link owns the wireless connection to one paddle sensor: discovery,
// connection, notification routing, and the bounded auto-reconnect policy.
// The transport itself is abstracted so BLE, serial, MQTT, and replay sources
// all drive the same state machine.
package link

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/racketlab/swingtrace/internal/monitoring"
	"github.com/racketlab/swingtrace/internal/motion"
	"github.com/racketlab/swingtrace/internal/wire"
)

// State is the link lifecycle state. Exactly one is active at a time; all
// observers read it through Status snapshots.
type State int

const (
	StateDisconnected State = iota
	StateScanning
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "invalid"
	}
}

// Error codes carried by the Error state.
const (
	CodeNone             = 0
	CodeRetriesExhausted = 1
	CodeScanFailed       = 2
)

// Status is an immutable snapshot of the state machine.
type Status struct {
	State    State
	Target   string // address being connected to (Connecting)
	DeviceID string // connected device address (Connected)
	Reason   string // failure description (Error)
	Code     int    // failure code (Error)
	Attempts int    // reconnect attempts consumed
}

// Candidate is one discovered device, deduplicated by address and refreshed
// on every scan observation.
type Candidate struct {
	Address  string
	Name     string
	RSSI     int16
	LastSeen time.Time
}

// Connection is one live notification stream.
type Connection interface {
	// Subscribe registers the per-frame handler and starts delivery.
	Subscribe(handler func(frame []byte)) error
	// Send hands an opaque control payload to the device. Success only.
	Send(payload []byte) bool
	// Done is closed when the transport drops the connection.
	Done() <-chan struct{}
	Close() error
}

// Transport abstracts the wireless layer beneath the state machine.
type Transport interface {
	// Scan reports candidates until the context is cancelled.
	Scan(ctx context.Context, found func(Candidate)) error
	// Connect dials one candidate by address.
	Connect(ctx context.Context, address string) (Connection, error)
}

// SampleHandler receives each successfully decoded motion sample.
type SampleHandler func(motion.Sample)

// Defaults for the reconnect policy.
const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 2 * time.Second
	DefaultBadFrameWarnStreak   = 50
)

// Params configures a Manager. Zero values fall back to the defaults, with
// two exceptions threaded as pointers because their zero is meaningful:
// MaxReconnectAttempts zero disables reconnection (a drop lands straight in
// Error) and ReconnectDelay zero redials immediately; nil means default.
type Params struct {
	MaxReconnectAttempts *int
	ReconnectDelay       *time.Duration
	BadFrameWarnStreak   int
	Counters             *monitoring.Counters
	OnSample             SampleHandler
}

// Manager is the link state machine. One Manager per sensor link; no
// multi-device fan-in.
type Manager struct {
	transport Transport
	counters  *monitoring.Counters

	maxAttempts        int
	retryDelay         time.Duration
	badFrameWarnStreak int

	mu         sync.Mutex
	state      State
	target     string
	deviceID   string
	reason     string
	code       int
	attempts   int
	candidates map[string]Candidate
	conn       Connection
	scanCancel context.CancelFunc
	retryTimer *time.Timer
	gen        int // invalidates stale dial results and watchers
	onSample   SampleHandler
	badStreak  int
	battery    uint8
	hasBattery bool
}

// NewManager creates a link manager over the given transport.
func NewManager(t Transport, p Params) *Manager {
	maxAttempts := DefaultMaxReconnectAttempts
	if p.MaxReconnectAttempts != nil {
		maxAttempts = *p.MaxReconnectAttempts
	}
	retryDelay := DefaultReconnectDelay
	if p.ReconnectDelay != nil {
		retryDelay = *p.ReconnectDelay
	}
	if p.BadFrameWarnStreak <= 0 {
		p.BadFrameWarnStreak = DefaultBadFrameWarnStreak
	}
	if p.Counters == nil {
		p.Counters = monitoring.Default
	}
	return &Manager{
		transport:          t,
		counters:           p.Counters,
		maxAttempts:        maxAttempts,
		retryDelay:         retryDelay,
		badFrameWarnStreak: p.BadFrameWarnStreak,
		candidates:         make(map[string]Candidate),
		onSample:           p.OnSample,
	}
}

// SetSampleHandler replaces the decoded-sample callback.
func (m *Manager) SetSampleHandler(h SampleHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSample = h
}

// Status returns a snapshot of the state machine.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:    m.state,
		Target:   m.target,
		DeviceID: m.deviceID,
		Reason:   m.reason,
		Code:     m.code,
		Attempts: m.attempts,
	}
}

// Battery returns the last battery reading from the optional frame byte.
func (m *Manager) Battery() (uint8, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.battery, m.hasBattery
}

// StartScan begins device discovery. An explicit scan command recovers the
// Error state and resets the reconnect counter.
func (m *Manager) StartScan() {
	m.mu.Lock()
	m.stopScanLocked()
	m.stopRetryLocked()
	m.gen++
	gen := m.gen
	m.state = StateScanning
	m.attempts = 0
	m.reason, m.code = "", CodeNone
	m.candidates = make(map[string]Candidate)
	ctx, cancel := context.WithCancel(context.Background())
	m.scanCancel = cancel
	m.mu.Unlock()

	go func() {
		err := m.transport.Scan(ctx, m.observeCandidate)
		if err != nil && ctx.Err() == nil {
			m.mu.Lock()
			if m.gen == gen && m.state == StateScanning {
				m.state = StateError
				m.reason = "scan failed: " + err.Error()
				m.code = CodeScanFailed
			}
			m.mu.Unlock()
			monitoring.Logf("link: scan failed: %v", err)
		}
	}()
}

// observeCandidate merges one scan observation into the candidate set.
func (m *Manager) observeCandidate(c Candidate) {
	if c.LastSeen.IsZero() {
		c.LastSeen = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[c.Address] = c
}

// Candidates returns the current candidate set sorted by signal strength,
// strongest first.
func (m *Manager) Candidates() []Candidate {
	m.mu.Lock()
	out := make([]Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		out = append(out, c)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RSSI > out[j].RSSI })
	return out
}

// Connect dials the candidate with the given address. This is an explicit
// command: it cancels any scan or pending reconnect and resets the reconnect
// counter.
func (m *Manager) Connect(address string) {
	m.mu.Lock()
	m.stopScanLocked()
	m.stopRetryLocked()
	m.closeConnLocked()
	m.gen++
	gen := m.gen
	m.attempts = 0
	m.reason, m.code = "", CodeNone
	m.target = address
	m.deviceID = ""
	m.state = StateConnecting
	m.mu.Unlock()

	go m.dial(gen, address)
}

// Retry recovers the Error state by redialling the last target. It is the
// only path out of Error besides an explicit disconnect or rescan.
func (m *Manager) Retry() {
	m.mu.Lock()
	if m.state != StateError || m.target == "" {
		m.mu.Unlock()
		return
	}
	m.stopRetryLocked()
	m.gen++
	gen := m.gen
	m.attempts = 0
	m.reason, m.code = "", CodeNone
	m.state = StateConnecting
	address := m.target
	m.mu.Unlock()

	go m.dial(gen, address)
}

// Disconnect is the explicit teardown command. It is valid in any state and
// always lands in Disconnected, cancelling pending reconnect timers so no
// duplicate connection attempt fires later.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopScanLocked()
	m.stopRetryLocked()
	m.closeConnLocked()
	m.gen++
	m.state = StateDisconnected
	m.target = ""
	m.deviceID = ""
	m.reason, m.code = "", CodeNone
}

// Send forwards an opaque control payload over the live connection.
func (m *Manager) Send(payload []byte) bool {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload)
}

// dial performs one connection attempt. Runs outside the lock; gen guards
// against results arriving after an explicit disconnect or newer command.
func (m *Manager) dial(gen int, address string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, err := m.transport.Connect(ctx, address)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.connectionFailureLocked("connect failed: " + err.Error())
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.state = StateConnected
	m.deviceID = address
	// Entering Connected resets the reconnect counter.
	m.attempts = 0
	m.badStreak = 0
	m.mu.Unlock()

	if err := conn.Subscribe(m.handleFrame); err != nil {
		monitoring.Logf("link: subscribe failed on %s: %v", address, err)
		conn.Close()
		m.mu.Lock()
		if m.gen == gen {
			m.connectionFailureLocked("subscribe failed: " + err.Error())
		}
		m.mu.Unlock()
		return
	}

	monitoring.Logf("link: connected to %s, motion stream live", address)

	go func() {
		<-conn.Done()
		m.mu.Lock()
		if m.gen == gen {
			m.counters.Reconnects.Add(1)
			m.connectionFailureLocked("transport drop")
		}
		m.mu.Unlock()
	}()
}

// connectionFailureLocked handles both transport drops and failed reconnect
// attempts. While attempts remain the machine stays in Connecting with a
// scheduled retry; once the budget is spent it settles into Error, where the
// counter stays frozen until an explicit retry.
func (m *Manager) connectionFailureLocked(reason string) {
	m.conn = nil
	m.deviceID = ""

	if m.attempts >= m.maxAttempts {
		m.state = StateError
		m.reason = reason
		m.code = CodeRetriesExhausted
		monitoring.Logf("link: giving up on %s after %d attempts: %s", m.target, m.attempts, reason)
		return
	}

	m.attempts++
	m.state = StateConnecting
	monitoring.Logf("link: %s (attempt %d/%d), retrying in %s", reason, m.attempts, m.maxAttempts, m.retryDelay)

	gen := m.gen
	address := m.target
	m.stopRetryLocked()
	m.retryTimer = time.AfterFunc(m.retryDelay, func() {
		m.mu.Lock()
		stale := m.gen != gen || m.state != StateConnecting
		m.mu.Unlock()
		if stale {
			return
		}
		m.dial(gen, address)
	})
}

// handleFrame decodes one inbound notification. Garbled frames are expected
// noise: they are counted and dropped without touching the link.
func (m *Manager) handleFrame(frame []byte) {
	sample, err := wire.Decode(frame)
	if err != nil {
		m.recordBadFrame(err)
		return
	}

	m.mu.Lock()
	m.counters.FramesDecoded.Add(1)
	m.badStreak = 0
	if sample.HasBattery {
		m.battery = sample.BatteryPct
		m.hasBattery = true
	}
	handler := m.onSample
	m.mu.Unlock()

	if handler != nil {
		handler(sample)
	}
}

func (m *Manager) recordBadFrame(err error) {
	m.counters.FramesDropped.Add(1)
	switch {
	case errors.Is(err, wire.ErrChecksumMismatch):
		m.counters.ChecksumFailures.Add(1)
	case errors.Is(err, wire.ErrBadHeader):
		m.counters.HeaderFailures.Add(1)
	case errors.Is(err, wire.ErrBadLength):
		m.counters.LengthFailures.Add(1)
	}

	m.mu.Lock()
	m.badStreak++
	streak := m.badStreak
	warnAt := m.badFrameWarnStreak
	m.mu.Unlock()

	// Sustained garbling is surfaced, not escalated: whether a forced
	// reconnect is wanted here is a product decision still open.
	if streak == warnAt {
		monitoring.Logf("link: %d consecutive undecodable frames, link quality suspect", streak)
	}
}

func (m *Manager) stopScanLocked() {
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}
}

func (m *Manager) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

func (m *Manager) closeConnLocked() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}
