// Package influxdb records telemetry history in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Writes go through
// the non-blocking, batched write API, so recording a sample never stalls
// the event loop; asynchronous failures are reported to the SetOnError
// callback.
//
// # Measurements
//
//	capacitance   tags: pin             fields: capacitance, raw, drop_present
//	regulator     (no tags)             fields: voltage, target_voltage
//	temperature   tags: channel         fields: celsius, duty_cycle
//	electrodes    (no tags)             fields: active
//
// Timestamps are the device's when it supplies one, else the receive time.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRegulator(ts, 119.8, 120)
package influxdb
