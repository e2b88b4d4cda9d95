package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/racketlab/swingtrace/internal/monitoring"
)

// Default MQTT topics for the frame bridge. A companion device (emulator or
// phone relay) republishes raw sensor frames on the frame topic and listens
// for control payloads on the control topic.
const (
	DefaultFrameTopic   = "swingtrace/frames"
	DefaultControlTopic = "swingtrace/control"
)

// MQTTTransport receives frames through a broker instead of a radio. Used by
// the emulator and for end-to-end testing without hardware.
type MQTTTransport struct {
	Broker       string
	ClientID     string
	FrameTopic   string
	ControlTopic string
}

// NewMQTTTransport creates a broker-backed transport with the default topics.
func NewMQTTTransport(broker, clientID string) *MQTTTransport {
	return &MQTTTransport{
		Broker:       broker,
		ClientID:     clientID,
		FrameTopic:   DefaultFrameTopic,
		ControlTopic: DefaultControlTopic,
	}
}

// Scan reports the broker itself as the single candidate; there is no radio
// neighbourhood to survey.
func (t *MQTTTransport) Scan(ctx context.Context, found func(Candidate)) error {
	found(Candidate{
		Address:  t.Broker,
		Name:     "mqtt:" + t.FrameTopic,
		LastSeen: time.Now(),
	})
	<-ctx.Done()
	return nil
}

// Connect establishes the broker session.
func (t *MQTTTransport) Connect(ctx context.Context, address string) (Connection, error) {
	conn := &mqttConn{
		frameTopic:   t.FrameTopic,
		controlTopic: t.ControlTopic,
		done:         make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(address)
	opts.SetClientID(t.ClientID)
	opts.SetAutoReconnect(false) // reconnection policy belongs to the Manager
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		monitoring.Logf("link: MQTT connection lost: %v", err)
		conn.markDropped()
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	conn.client = client

	monitoring.Logf("link: MQTT connected to %s", address)
	return conn, nil
}

type mqttConn struct {
	client       mqtt.Client
	frameTopic   string
	controlTopic string
	done         chan struct{}
	dropOnce     sync.Once
}

func (c *mqttConn) Subscribe(handler func(frame []byte)) error {
	token := c.client.Subscribe(c.frameTopic, 0, func(client mqtt.Client, msg mqtt.Message) {
		handler(append([]byte(nil), msg.Payload()...))
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.frameTopic, token.Error())
	}
	return nil
}

func (c *mqttConn) Send(payload []byte) bool {
	token := c.client.Publish(c.controlTopic, 0, false, payload)
	return !(token.Wait() && token.Error() != nil)
}

func (c *mqttConn) Done() <-chan struct{} { return c.done }

func (c *mqttConn) markDropped() {
	c.dropOnce.Do(func() { close(c.done) })
}

func (c *mqttConn) Close() error {
	c.markDropped()
	c.client.Disconnect(250)
	return nil
}
