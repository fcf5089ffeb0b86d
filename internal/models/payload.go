package models

import "encoding/json"

// WirePayload is a Record reshaped into the short transmission vocabulary.
type WirePayload struct {
	ID          string          `json:"id"`
	Sequence    int64           `json:"s"`
	Pressure    Float           `json:"p"`
	RunCycles   int64           `json:"r"`
	FaultCode   int64           `json:"f"`
	Mode        int64           `json:"m"`
	Temperature Float           `json:"t"`
	Current     Float           `json:"c"`
	Profile     json.RawMessage `json:"pr"`
}

// Frame is the message sent to the microcontroller. Field order is part of
// the wire contract; do not reorder.
type Frame struct {
	Type    string `json:"type"`
	GMID    string `json:"gmid"`
	Press   Float  `json:"press"`
	Mode    int64  `json:"mode"`
	Current Float  `json:"current"`
	Fault   int64  `json:"fault"`
	Cycles  int64  `json:"cycles"`
}
