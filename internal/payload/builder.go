package payload

import (
	"bytes"
	"encoding/json"

	"github.com/benmeehan/telemetry-bridge/internal/models"
	"github.com/benmeehan/telemetry-bridge/pkg/file"
	"github.com/rs/zerolog"
)

var emptyProfile = json.RawMessage(`{}`)

// Builder turns records into wire payloads. The profile document is read
// once at construction and attached verbatim to every payload.
type Builder struct {
	profile json.RawMessage
}

// NewBuilder loads the profile at profilePath. A missing, unreadable or
// non-object profile is replaced by an empty object.
func NewBuilder(profilePath string, fileClient file.FileOperations, logger zerolog.Logger) *Builder {
	return &Builder{profile: loadProfile(profilePath, fileClient, logger)}
}

// NewBuilderWithProfile creates a builder around an already loaded profile.
func NewBuilderWithProfile(profile json.RawMessage) *Builder {
	if !isObject(profile) {
		profile = emptyProfile
	}
	return &Builder{profile: compact(profile)}
}

// Profile returns the cached profile document.
func (b *Builder) Profile() json.RawMessage {
	return b.profile
}

// Build rounds measurements to two decimals and maps the record onto the
// wire vocabulary.
func (b *Builder) Build(record models.Record) models.WirePayload {
	return models.WirePayload{
		ID:          record.ID,
		Sequence:    record.Sequence,
		Pressure:    models.Round2(record.Pressure),
		RunCycles:   record.RunCycles,
		FaultCode:   record.FaultCode,
		Mode:        record.Mode,
		Temperature: models.Round2(record.Temperature),
		Current:     models.Round2(record.Current),
		Profile:     b.profile,
	}
}

func loadProfile(path string, fileClient file.FileOperations, logger zerolog.Logger) json.RawMessage {
	if path == "" {
		return emptyProfile
	}

	data, err := fileClient.ReadFileRaw(path)
	if err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("No profile document, using empty profile")
		return emptyProfile
	}
	if !isObject(data) {
		logger.Warn().Str("path", path).Msg("Profile document is not a JSON object, using empty profile")
		return emptyProfile
	}

	logger.Info().Str("path", path).Msg("Profile document loaded")
	return compact(data)
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

func compact(data []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return emptyProfile
	}
	return buf.Bytes()
}
