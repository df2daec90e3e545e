// Package bridge ingests telemetry published over MQTT. Devices on flaky
// links publish to telemetry/<device_id>/<route> instead of posting HTTP;
// the broker connection stands in for the bearer token, so the topic's
// device segment is the authenticated identity.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"example.com/telemetry/internal/api"
	"example.com/telemetry/internal/domain"
)

// Config holds broker connection parameters.
type Config struct {
	BrokerURL   string
	TopicPrefix string
	ClientID    string
}

// Bridge subscribes to device telemetry topics and feeds readings into the
// ingest service.
type Bridge struct {
	service *domain.Service
	cfg     Config
	client  mqtt.Client
}

// New constructs a Bridge. Start must be called before messages flow.
func New(service *domain.Service, cfg Config) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "telemetry"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("telemetry-bridge-%d", time.Now().UnixNano())
	}
	return &Bridge{service: service, cfg: cfg}
}

// Start connects to the broker and subscribes to the telemetry topic tree.
func (b *Bridge) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.BrokerURL).
		SetClientID(b.cfg.ClientID).
		SetOrderMatters(false).
		SetAutoReconnect(true)

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker %s: %w", b.cfg.BrokerURL, token.Error())
	}

	topic := fmt.Sprintf("%s/+/+", b.cfg.TopicPrefix)
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		b.dispatch(ctx, msg.Topic(), msg.Payload())
	}
	if token := b.client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}

	log.Printf("mqtt bridge subscribed to %s on %s", topic, b.cfg.BrokerURL)
	return nil
}

// Stop disconnects from the broker, letting in-flight handlers finish.
func (b *Bridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}

// dispatch parses "prefix/<device_id>/<route>" and routes the payload
// through the same ingest path as HTTP. Malformed messages are logged and
// dropped; MQTT gives us no useful way to report them back.
func (b *Bridge) dispatch(ctx context.Context, topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != b.cfg.TopicPrefix || parts[1] == "" {
		log.Printf("mqtt: dropping message on unexpected topic %s", topic)
		return
	}
	deviceID, route := parts[1], parts[2]

	var (
		input domain.IngestInput
		err   error
	)
	switch route {
	case "sensor-data":
		var req api.SensorDataRequest
		if err = decode(payload, &req); err == nil {
			input = req.Input(deviceID)
		}
	case "gps-data":
		var req api.GPSDataRequest
		if err = decode(payload, &req); err == nil {
			input = req.Input(deviceID)
		}
	case "location":
		var req api.LocationRequest
		if err = decode(payload, &req); err == nil {
			input = req.Input(deviceID)
		}
	default:
		log.Printf("mqtt: dropping message for unknown route %s", route)
		return
	}
	if err != nil {
		log.Printf("mqtt: dropping %s message from %s: %v", route, deviceID, err)
		return
	}

	if _, err := b.service.Ingest(ctx, input); err != nil {
		log.Printf("mqtt: ingest %s from %s failed: %v", route, deviceID, err)
	}
}

func decode(payload []byte, req interface {
	Validate() error
}) error {
	if err := api.DecodeBody(bytes.NewReader(payload), req); err != nil {
		return err
	}
	return req.Validate()
}
