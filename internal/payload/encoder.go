package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/benmeehan/telemetry-bridge/internal/constants"
	"github.com/benmeehan/telemetry-bridge/internal/models"
)

// NewFrame maps a payload onto the frame sent to the receiver.
func NewFrame(p models.WirePayload) models.Frame {
	return models.Frame{
		Type:    constants.FrameTypeData,
		GMID:    p.ID,
		Press:   models.Round2(float64(p.Pressure)),
		Mode:    p.Mode,
		Current: models.Round2(float64(p.Current)),
		Fault:   p.FaultCode,
		Cycles:  p.RunCycles,
	}
}

// Encode serializes a payload as one compact, ASCII-only JSON object with no
// trailing delimiter. The receiver finds message boundaries by matching braces.
func Encode(p models.WirePayload) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(NewFrame(p)); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return escapeNonASCII(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// escapeNonASCII rewrites multi-byte runes as \uXXXX escapes. Only string
// contents can hold such runes, so the result stays valid JSON.
func escapeNonASCII(data []byte) []byte {
	ascii := true
	for _, c := range data {
		if c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return data
	}

	out := make([]byte, 0, len(data)+16)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}
