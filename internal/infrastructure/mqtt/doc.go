// Package mqtt publishes sensord registry events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Retained service status with Last Will and Testament (LWT)
//   - Connection health monitoring
//
// # Topics
//
//	{prefix}/system/status              retained online/offline status
//	{prefix}/sensors/{id}/registered    sensor.registered events
//	{prefix}/sensors/{id}/deleted       sensor.deleted events
//
// The prefix defaults to "sensord" and is set by mqtt.topic_prefix.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for any broker off the local host
//   - Credentials should come from SENSORD_MQTT_USERNAME / SENSORD_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishEvent(sensor.NewEvent(sensor.EventRegistered, s, sensor.SourceAPI, reqID))
package mqtt
