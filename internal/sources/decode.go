package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/benmeehan/telemetry-bridge/internal/models"
)

// controllerDocument mirrors the controller schema with every field optional.
// Numbers are kept as json.Number so integers written as floats still decode.
type controllerDocument struct {
	GMID      *string      `json:"gmid"`
	Seq       *json.Number `json:"seq"`
	Pressure  *json.Number `json:"pressure"`
	Current   *json.Number `json:"current"`
	Temp      *json.Number `json:"temp"`
	RunCycles *json.Number `json:"runcycles"`
	Faults    *json.Number `json:"faults"`
	Mode      *json.Number `json:"mode"`
}

// decodeRecord merges a controller JSON document over base. Absent and null
// fields keep the base value. On error base is returned unchanged.
func decodeRecord(data []byte, base models.Record) (models.Record, error) {
	var doc controllerDocument
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return base, fmt.Errorf("decode controller document: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return base, errors.New("decode controller document: trailing data after object")
	}

	record := base
	var err error
	if doc.GMID != nil && *doc.GMID != "" {
		record.ID = *doc.GMID
	}
	if record.Sequence, err = intField(doc.Seq, base.Sequence, "seq"); err != nil {
		return base, err
	}
	if record.Pressure, err = floatField(doc.Pressure, base.Pressure, "pressure"); err != nil {
		return base, err
	}
	if record.Current, err = floatField(doc.Current, base.Current, "current"); err != nil {
		return base, err
	}
	if record.Temperature, err = floatField(doc.Temp, base.Temperature, "temp"); err != nil {
		return base, err
	}
	if record.RunCycles, err = intField(doc.RunCycles, base.RunCycles, "runcycles"); err != nil {
		return base, err
	}
	if record.FaultCode, err = intField(doc.Faults, base.FaultCode, "faults"); err != nil {
		return base, err
	}
	if record.Mode, err = intField(doc.Mode, base.Mode, "mode"); err != nil {
		return base, err
	}

	return record, nil
}

// decodeAlarms decodes the alarms object; an empty input yields an empty map.
func decodeAlarms(data []byte) (models.Alarms, error) {
	alarms := models.Alarms{}
	if len(bytes.TrimSpace(data)) == 0 {
		return alarms, nil
	}
	if err := json.Unmarshal(data, &alarms); err != nil {
		return models.Alarms{}, fmt.Errorf("decode alarms document: %w", err)
	}
	if alarms == nil {
		alarms = models.Alarms{}
	}
	return alarms, nil
}

func intField(n *json.Number, fallback int64, name string) (int64, error) {
	if n == nil {
		return fallback, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return fallback, fmt.Errorf("field %s: %w", name, err)
	}
	return int64(f), nil
}

func floatField(n *json.Number, fallback float64, name string) (float64, error) {
	if n == nil {
		return fallback, nil
	}
	f, err := n.Float64()
	if err != nil {
		return fallback, fmt.Errorf("field %s: %w", name, err)
	}
	return f, nil
}
