package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "sensord"

// Topics provides builders for sensord MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Prefix: "lab"}
//	topics.SensorEvent(3, sensor.EventDeleted)
//	// Returns: "lab/sensors/3/deleted"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// SystemStatus returns the retained service status topic (online/offline, LWT).
//
// Example: sensord/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// SensorEvent returns the topic for a registry change on one sensor.
// The last segment is the event type without its "sensor." namespace.
//
// Example: sensord/sensors/12/registered
func (t Topics) SensorEvent(id int, typ sensor.EventType) string {
	action := strings.TrimPrefix(string(typ), "sensor.")
	return fmt.Sprintf("%s/sensors/%d/%s", t.prefix(), id, action)
}

// AllSensorEvents returns the subscription filter matching every sensor event.
//
// Example: sensord/sensors/+/+
func (t Topics) AllSensorEvents() string {
	return t.prefix() + "/sensors/+/+"
}

// validatePublishTopic rejects topics a client may not publish to.
func validatePublishTopic(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopic
	}
	return nil
}
