package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCapacitance = "capacitance"
	MeasurementRegulator   = "regulator"
	MeasurementTemperature = "temperature"
	MeasurementElectrodes  = "electrodes"
)

// CapacitanceSample is one electrode's scan value.
type CapacitanceSample struct {
	Pin         int
	Capacitance float64
	Raw         float64
	DropPresent bool
}

// WriteCapacitance records one point per scanned electrode.
func (c *Client) WriteCapacitance(ts time.Time, samples []CapacitanceSample) {
	for _, s := range samples {
		c.writePoint(MeasurementCapacitance,
			map[string]string{"pin": strconv.Itoa(s.Pin)},
			map[string]any{
				"capacitance":  s.Capacitance,
				"raw":          s.Raw,
				"drop_present": s.DropPresent,
			}, ts)
	}
}

// WriteRegulator records the high-voltage regulator output.
func (c *Client) WriteRegulator(ts time.Time, voltage, target float64) {
	c.writePoint(MeasurementRegulator, nil,
		map[string]any{"voltage": voltage, "target_voltage": target}, ts)
}

// WriteTemperature records every heater channel. dutyCycles may be shorter
// than temps; missing duty cycles are omitted.
func (c *Client) WriteTemperature(ts time.Time, temps, dutyCycles []float64) {
	for i, t := range temps {
		fields := map[string]any{"celsius": t}
		if i < len(dutyCycles) {
			fields["duty_cycle"] = dutyCycles[i]
		}
		c.writePoint(MeasurementTemperature,
			map[string]string{"channel": strconv.Itoa(i)}, fields, ts)
	}
}

// WriteActiveElectrodes records how many electrodes are energised.
func (c *Client) WriteActiveElectrodes(ts time.Time, active int) {
	c.writePoint(MeasurementElectrodes, nil, map[string]any{"active": active}, ts)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
