package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/sensor-registry/internal/infrastructure/config"
	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker tests require a running broker at 127.0.0.1:1883 and skip otherwise.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: fmt.Sprintf("sensord-test-%d", time.Now().UnixNano()),
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			MaxDelay: 5,
		},
		TopicPrefix: "sensord-test",
	}
}

// requireBroker skips the test when no broker is listening locally.
func requireBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skip("no MQTT broker on 127.0.0.1:1883")
	}
	conn.Close()
}

// =============================================================================
// Topic and Option Tests (no broker)
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SystemStatus default prefix", Topics{}.SystemStatus(), "sensord/system/status"},
		{"SystemStatus custom prefix", Topics{Prefix: "lab/"}.SystemStatus(), "lab/system/status"},
		{"SensorEvent registered", Topics{}.SensorEvent(12, sensor.EventRegistered), "sensord/sensors/12/registered"},
		{"SensorEvent deleted", Topics{Prefix: "lab"}.SensorEvent(3, sensor.EventDeleted), "lab/sensors/3/deleted"},
		{"AllSensorEvents", Topics{}.AllSensorEvents(), "sensord/sensors/+/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestValidatePublishTopic(t *testing.T) {
	for _, topic := range []string{"", "sensord/+/x", "sensord/#"} {
		if err := validatePublishTopic(topic); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("validatePublishTopic(%q) = %v, want ErrInvalidTopic", topic, err)
		}
	}
	if err := validatePublishTopic("sensord/sensors/1/registered"); err != nil {
		t.Errorf("validatePublishTopic(valid) = %v", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "user", Password: "pass"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.Username != "user" || opts.Password != "pass" {
		t.Errorf("credentials not applied: %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", opts.MaxReconnectInterval)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set without TLS enabled")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q with TLS, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := pahomqtt.NewClientOptions()
	configureLWT(opts, Topics{Prefix: "lab"}, "sensord-1")

	if !opts.WillEnabled || opts.WillTopic != "lab/system/status" || !opts.WillRetained {
		t.Errorf("will = enabled:%v topic:%q retained:%v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}

	var payload statusPayload
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if payload.Status != "offline" || payload.Reason != reasonUnexpected || payload.ClientID != "sensord-1" {
		t.Errorf("will payload = %+v", payload)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestSetLoggerNil(t *testing.T) {
	client := &Client{}
	client.SetLogger(nil)

	client.onConnectionLost(nil, errors.New("broker gone"))
	if client.IsConnected() {
		t.Error("IsConnected() = true after connection lost")
	}
}

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", nil, 1, ErrInvalidTopic},
		{"wildcard topic", "sensord/#", nil, 1, ErrInvalidTopic},
		{"invalid QoS", "sensord/x", nil, 3, ErrInvalidQoS},
		{"oversized payload", "sensord/x", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "sensord/x", []byte("{}"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	_, err := Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should fail for refused connection")
	}

	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

// =============================================================================
// Broker Tests
// =============================================================================

func TestConnectAndClose(t *testing.T) {
	requireBroker(t)

	client, err := Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestPublishEventRoundtrip(t *testing.T) {
	requireBroker(t)

	cfg := testConfig()
	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	// Independent subscriber on the event filter
	subOpts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg)).
		SetClientID(cfg.Broker.ClientID + "-sub")
	sub := pahomqtt.NewClient(subOpts)
	if token := sub.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect failed: %v", token.Error())
	}
	defer sub.Disconnect(100)

	received := make(chan pahomqtt.Message, 1)
	token := sub.Subscribe(client.Topics().AllSensorEvents(), 1, func(_ pahomqtt.Client, m pahomqtt.Message) {
		received <- m
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe failed: %v", token.Error())
	}

	s := sensor.Sensor{ID: 9, Type: "temperature", Location: "lab", LastValue: 21.5, Status: "online"}
	ev := sensor.NewEvent(sensor.EventRegistered, s, sensor.SourceAPI, "req-1")
	if err := client.PublishEvent(ev); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	select {
	case m := <-received:
		if !strings.HasSuffix(m.Topic(), "/sensors/9/registered") {
			t.Errorf("topic = %q", m.Topic())
		}
		var got sensor.Event
		if err := json.Unmarshal(m.Payload(), &got); err != nil {
			t.Fatalf("payload is not an event: %v", err)
		}
		if got.ID != ev.ID || got.Sensor != s {
			t.Errorf("event = %+v, want %+v", got, ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event was not received")
	}
}
