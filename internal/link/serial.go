package link

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/racketlab/swingtrace/internal/monitoring"
	"github.com/racketlab/swingtrace/internal/wire"
)

// DefaultSerialBaudRate matches the sensor's wired debug port.
const DefaultSerialBaudRate = 115200

// SerialTransport streams frames from a paddle sensor attached over a wired
// UART, used on the bench where BLE is unavailable or being debugged.
type SerialTransport struct {
	BaudRate int
}

// NewSerialTransport creates a serial transport at the default baud rate.
func NewSerialTransport() *SerialTransport {
	return &SerialTransport{BaudRate: DefaultSerialBaudRate}
}

// Scan enumerates the host serial ports, refreshing once a second until the
// context is cancelled. RSSI has no meaning on a wire and is reported as zero.
func (t *SerialTransport) Scan(ctx context.Context, found func(Candidate)) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		ports, err := serial.GetPortsList()
		if err != nil {
			return fmt.Errorf("serial port enumeration failed: %w", err)
		}
		now := time.Now()
		for _, port := range ports {
			found(Candidate{Address: port, Name: port, LastSeen: now})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Connect opens the named port.
func (t *SerialTransport) Connect(ctx context.Context, address string) (Connection, error) {
	baud := t.BaudRate
	if baud <= 0 {
		baud = DefaultSerialBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(address, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", address, err)
	}

	monitoring.Logf("link: serial port %s open at %d baud", address, baud)
	return &streamConn{name: address, stream: port, done: make(chan struct{})}, nil
}

// streamConn adapts any framed byte stream (serial port, replay file) to the
// Connection interface. A read error or EOF counts as a transport drop.
type streamConn struct {
	name   string
	stream io.ReadWriteCloser
	done   chan struct{}

	dropOnce sync.Once
	// interval throttles delivery for replay sources; zero means deliver as
	// fast as the stream produces.
	interval time.Duration
}

func (c *streamConn) Subscribe(handler func(frame []byte)) error {
	go func() {
		sc := wire.NewScanner(c.stream)
		var ticker *time.Ticker
		if c.interval > 0 {
			ticker = time.NewTicker(c.interval)
			defer ticker.Stop()
		}
		for {
			frame, err := sc.Next()
			if err != nil {
				if err != io.EOF {
					monitoring.Logf("link: stream %s read error: %v", c.name, err)
				}
				c.markDropped()
				return
			}
			if ticker != nil {
				select {
				case <-ticker.C:
				case <-c.done:
					return
				}
			}
			handler(frame)
		}
	}()
	return nil
}

func (c *streamConn) Send(payload []byte) bool {
	_, err := c.stream.Write(payload)
	return err == nil
}

func (c *streamConn) Done() <-chan struct{} { return c.done }

func (c *streamConn) markDropped() {
	c.dropOnce.Do(func() { close(c.done) })
}

func (c *streamConn) Close() error {
	c.markDropped()
	return c.stream.Close()
}
