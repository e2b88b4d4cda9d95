package link

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/racketlab/swingtrace/internal/monitoring"
)

// BLE UUIDs matching the paddle firmware.
var (
	ServiceUUID    = bluetooth.NewUUID([16]byte{0x73, 0x77, 0x6e, 0x67, 0x74, 0x72, 0x63, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x10, 0x01})
	MotionCharUUID = bluetooth.NewUUID([16]byte{0x73, 0x77, 0x6e, 0x67, 0x74, 0x72, 0x63, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x10, 0x02})
	ControlCharUUID = bluetooth.NewUUID([16]byte{0x73, 0x77, 0x6e, 0x67, 0x74, 0x72, 0x63, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x10, 0x03})
)

// DeviceNamePrefix is the advertised name prefix used as a scan filter next
// to the service UUID match.
const DeviceNamePrefix = "SwingTrace"

// BLETransport drives a real paddle sensor over Bluetooth Low Energy.
type BLETransport struct {
	adapter *bluetooth.Adapter

	mu      sync.Mutex
	enabled bool
	// seen maps candidate addresses back to their scan results so Connect
	// can dial without re-parsing MAC strings.
	seen  map[string]bluetooth.ScanResult
	conns map[string]*bleConn
}

// NewBLETransport creates a transport over the default host adapter.
func NewBLETransport() *BLETransport {
	return &BLETransport{
		adapter: bluetooth.DefaultAdapter,
		seen:    make(map[string]bluetooth.ScanResult),
		conns:   make(map[string]*bleConn),
	}
}

// enable initialises the adapter once and registers the disconnect watcher.
func (t *BLETransport) enable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return nil
	}
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w", err)
	}
	t.adapter.SetConnectHandler(func(device bluetooth.Address, connected bool) {
		if connected {
			return
		}
		t.mu.Lock()
		conn := t.conns[device.String()]
		delete(t.conns, device.String())
		t.mu.Unlock()
		if conn != nil {
			conn.markDropped()
		}
	})
	t.enabled = true
	return nil
}

// Scan reports paddle candidates until the context is cancelled. Candidates
// are matched by advertised service UUID or device-name prefix; the manager
// handles dedup and RSSI ordering.
func (t *BLETransport) Scan(ctx context.Context, found func(Candidate)) error {
	if err := t.enable(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		t.adapter.StopScan()
	}()

	return t.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		name := result.LocalName()
		if !result.HasServiceUUID(ServiceUUID) && !strings.HasPrefix(name, DeviceNamePrefix) {
			return
		}
		addr := result.Address.String()

		t.mu.Lock()
		t.seen[addr] = result
		t.mu.Unlock()

		found(Candidate{
			Address:  addr,
			Name:     name,
			RSSI:     result.RSSI,
			LastSeen: time.Now(),
		})
	})
}

// Connect dials a previously scanned candidate and resolves the motion and
// control characteristics.
func (t *BLETransport) Connect(ctx context.Context, address string) (Connection, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	result, ok := t.seen[address]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ble: device %s not seen in scan", address)
	}

	device, err := t.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{ServiceUUID})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("service discovery failed on %s: %w", address, err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{MotionCharUUID, ControlCharUUID})
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("characteristic discovery failed on %s: %w", address, err)
	}

	conn := &bleConn{device: device, done: make(chan struct{})}
	for _, ch := range chars {
		switch ch.UUID() {
		case MotionCharUUID:
			c := ch
			conn.motion = &c
		case ControlCharUUID:
			c := ch
			conn.control = &c
		}
	}
	if conn.motion == nil {
		device.Disconnect()
		return nil, fmt.Errorf("motion characteristic missing on %s", address)
	}

	t.mu.Lock()
	t.conns[address] = conn
	t.mu.Unlock()

	monitoring.Logf("link: BLE connected to %s (%s)", result.LocalName(), address)
	return conn, nil
}

type bleConn struct {
	device  *bluetooth.Device
	motion  *bluetooth.DeviceCharacteristic
	control *bluetooth.DeviceCharacteristic

	done     chan struct{}
	dropOnce sync.Once
}

func (c *bleConn) Subscribe(handler func(frame []byte)) error {
	return c.motion.EnableNotifications(func(buf []byte) {
		// BlueZ reuses the notification buffer; hand the pipeline a copy.
		frame := make([]byte, len(buf))
		copy(frame, buf)
		handler(frame)
	})
}

func (c *bleConn) Send(payload []byte) bool {
	if c.control == nil {
		return false
	}
	_, err := c.control.WriteWithoutResponse(payload)
	return err == nil
}

func (c *bleConn) Done() <-chan struct{} { return c.done }

func (c *bleConn) markDropped() {
	c.dropOnce.Do(func() { close(c.done) })
}

func (c *bleConn) Close() error {
	c.markDropped()
	return c.device.Disconnect()
}
