package models

import "github.com/benmeehan/telemetry-bridge/internal/constants"

// Record is the normalized controller state read from a source backend.
// JSON tags follow the controller's native schema so every backend can
// decode straight into a defaulted Record.
type Record struct {
	ID          string  `json:"gmid"`
	Sequence    int64   `json:"seq"`
	Pressure    float64 `json:"pressure"`
	Current     float64 `json:"current"`
	Temperature float64 `json:"temp"`
	RunCycles   int64   `json:"runcycles"`
	FaultCode   int64   `json:"faults"`
	Mode        int64   `json:"mode"`
}

// Alarms is carried alongside a Record but not interpreted by the bridge.
type Alarms map[string]any

// DefaultRecord returns the record used whenever a source has nothing to offer.
func DefaultRecord(deviceID string) Record {
	if deviceID == "" {
		deviceID = constants.DefaultDeviceID
	}
	return Record{ID: deviceID}
}

// Active reports whether the controller is faulted or out of idle.
func (r Record) Active() bool {
	return r.FaultCode != 0 || r.Mode > 0
}
