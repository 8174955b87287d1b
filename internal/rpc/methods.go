package rpc

import (
	"context"
	"encoding/json"

	"github.com/nerrad567/dropdash/internal/layout"
)

// Method names understood by the device.
const (
	MethodGetBoardDefinition         = "get_board_definition"
	MethodGetDeviceInfo              = "get_device_info"
	MethodGetParameterDefinitions    = "get_parameter_definitions"
	MethodGetParameter               = "get_parameter"
	MethodSetParameter               = "set_parameter"
	MethodSetElectrodePins           = "set_electrode_pins"
	MethodCalibrateCapacitanceOffset = "calibrate_capacitance_offset"
)

// SaveParametersID is the parameter index that commits all parameters to
// device flash when written.
const SaveParametersID = 0xFFFFFFFF

// ParameterDefinition describes one tunable device parameter.
type ParameterDefinition struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// IsFloat reports whether the parameter carries a float value.
func (p ParameterDefinition) IsFloat() bool {
	return p.Type == "float"
}

// DeviceInfo is the get_device_info result.
type DeviceInfo struct {
	Connected       bool   `json:"connected"`
	SerialNumber    string `json:"serial_number"`
	SoftwareVersion string `json:"software_version"`
}

// GetBoardDefinition returns the raw board definition document.
func (c *Client) GetBoardDefinition(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, MethodGetBoardDefinition, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetDeviceInfo returns connection details of the attached device.
func (c *Client) GetDeviceInfo(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo
	err := c.Call(ctx, MethodGetDeviceInfo, nil, &info)
	return info, err
}

// GetParameterDefinitions lists the device's parameters.
func (c *Client) GetParameterDefinitions(ctx context.Context) ([]ParameterDefinition, error) {
	var resp struct {
		Parameters []ParameterDefinition `json:"parameters"`
	}
	if err := c.Call(ctx, MethodGetParameterDefinitions, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Parameters, nil
}

// GetParameter reads one parameter value.
func (c *Client) GetParameter(ctx context.Context, id uint32) (float64, error) {
	var v float64
	err := c.Call(ctx, MethodGetParameter, []any{id}, &v)
	return v, err
}

// SetParameter writes one parameter value. The device interprets value as
// int or float according to the parameter's definition.
func (c *Client) SetParameter(ctx context.Context, id uint32, value float64) error {
	return c.Call(ctx, MethodSetParameter, []any{id, value}, nil)
}

// SaveParameters persists all parameters to flash.
func (c *Client) SaveParameters(ctx context.Context) error {
	return c.Call(ctx, MethodSetParameter, []any{uint32(SaveParametersID), 1}, nil)
}

// SetElectrodePins requests that exactly pins be active. An empty slice
// deactivates every electrode.
func (c *Client) SetElectrodePins(ctx context.Context, pins []layout.Pin) error {
	if pins == nil {
		pins = []layout.Pin{}
	}
	return c.Call(ctx, MethodSetElectrodePins, []any{pins}, nil)
}

// CalibrateCapacitanceOffset asks the device to re-zero its capacitance
// measurement.
func (c *Client) CalibrateCapacitanceOffset(ctx context.Context) error {
	return c.Call(ctx, MethodCalibrateCapacitanceOffset, nil, nil)
}
