// Package mqtt relays dashboard telemetry to an MQTT broker.
//
// Lab tooling (loggers, notebooks, alarm scripts) can follow a run without
// talking to the device directly: every decoded telemetry event is
// republished as JSON under {prefix}/telemetry/{kind}, and the relay's own
// availability is kept retained under {prefix}/status with a Last Will so
// subscribers see an unexpected disconnect.
//
//	device ──ws──► dropdash ──mqtt──► broker ──► lab tooling
//
// The relay is publish-only and strictly best effort. A broker outage never
// blocks or fails the dashboard; publishes fail fast with ErrNotConnected
// while paho reconnects in the background.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Telemetry("regulator-status")
//	err = client.PublishJSON(topic, status, false)
package mqtt
