package utils

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benmeehan/telemetry-bridge/internal/constants"
	"github.com/benmeehan/telemetry-bridge/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	Serial struct {
		Port        string        `yaml:"port"`         // Serial device path
		BaudRate    int           `yaml:"baud_rate"`    // Line speed, 8-N-1 is fixed
		ReadTimeout time.Duration `yaml:"read_timeout"` // Read timeout on the port
	} `yaml:"serial"`

	Sources struct {
		RedisAddr    string        `yaml:"redis_addr"`    // Live store address
		RedisDB      int           `yaml:"redis_db"`      // Live store database index
		ContKey      string        `yaml:"cont_key"`      // Key holding the controller record
		AlarmsKey    string        `yaml:"alarms_key"`    // Key holding the alarms object
		PayloadKey   string        `yaml:"payload_key"`   // Key the latest payload is mirrored to
		SnapshotPath string        `yaml:"snapshot_path"` // JSON snapshot written by the controller
		BackupPath   string        `yaml:"backup_path"`   // SQLite backup database
		BackupTable  string        `yaml:"backup_table"`  // Append-only controller table
		ProbeTimeout time.Duration `yaml:"probe_timeout"` // Timeout for the live store ping
	} `yaml:"sources"`

	Bridge struct {
		PollInterval     time.Duration `yaml:"poll_interval"`     // Interval between source reads
		TransmitInterval time.Duration `yaml:"transmit_interval"` // Interval between frames
		EventMonitoring  bool          `yaml:"event_monitoring"`  // Only transmit on fault or active mode
		ProfilePath      string        `yaml:"profile_path"`      // Static profile document
		MirrorPayload    bool          `yaml:"mirror_payload"`    // Write the latest payload back to the live store
	} `yaml:"bridge"`

	Identity struct {
		DeviceFile string `yaml:"device_file"` // Optional identity file supplying the default gmid
	} `yaml:"identity"`

	Logging struct {
		Level string `yaml:"level"` // zerolog level name
		File  string `yaml:"file"`  // Persistent JSON log
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"` // Serve /metrics and /status
		Addr    string `yaml:"addr"`    // Listen address
	} `yaml:"metrics"`

	MQTT struct {
		Enabled       bool   `yaml:"enabled"`        // Publish the latest payload over MQTT
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		Topic         string `yaml:"topic"`          // Topic for the retained payload
		QOS           int    `yaml:"qos"`            // MQTT QoS level
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, optional
	} `yaml:"mqtt"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	var config Config
	config.Bridge.MirrorPayload = true
	config.ApplyDefaults()
	return &config
}

// LoadConfig loads the YAML configuration from the specified file.
// It returns a pointer to the Config struct and an error if loading fails.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := Config{}
	config.Bridge.MirrorPayload = true

	// an empty file decodes to io.EOF and means "all defaults"
	if err := fileClient.ReadYamlFile(filename, &config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}

	return &config, nil
}

// ApplyDefaults fills every zero-valued setting.
func (c *Config) ApplyDefaults() {
	if c.Serial.Port == "" {
		c.Serial.Port = constants.DefaultSerialPort
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = constants.DefaultBaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = constants.DefaultReadTimeout
	}

	if c.Sources.RedisAddr == "" {
		c.Sources.RedisAddr = constants.DefaultRedisAddr
	}
	if c.Sources.ContKey == "" {
		c.Sources.ContKey = constants.KeyController
	}
	if c.Sources.AlarmsKey == "" {
		c.Sources.AlarmsKey = constants.KeyAlarms
	}
	if c.Sources.PayloadKey == "" {
		c.Sources.PayloadKey = constants.KeyPayload
	}
	if c.Sources.SnapshotPath == "" {
		c.Sources.SnapshotPath = constants.DefaultSnapshotPath
	}
	if c.Sources.BackupPath == "" {
		c.Sources.BackupPath = constants.DefaultBackupPath
	}
	if c.Sources.BackupTable == "" {
		c.Sources.BackupTable = constants.BackupTable
	}
	if c.Sources.ProbeTimeout == 0 {
		c.Sources.ProbeTimeout = constants.DefaultProbeTimeout
	}

	if c.Bridge.PollInterval == 0 {
		c.Bridge.PollInterval = constants.DefaultPollInterval
	}
	if c.Bridge.TransmitInterval == 0 {
		c.Bridge.TransmitInterval = constants.DefaultTransmitInterval
	}
	if c.Bridge.ProfilePath == "" {
		c.Bridge.ProfilePath = constants.DefaultProfilePath
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = constants.DefaultLogFile
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9105"
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "telemetry-bridge"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = constants.DefaultMQTTTopic
	}
}

// Validate rejects settings the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Serial.Port == "" {
		errs = append(errs, errors.New("serial.port is required"))
	}
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate))
	}
	if c.Bridge.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("bridge.poll_interval must be positive, got %s", c.Bridge.PollInterval))
	}
	if c.Bridge.TransmitInterval < c.Bridge.PollInterval {
		errs = append(errs, fmt.Errorf("bridge.transmit_interval (%s) must not be shorter than poll_interval (%s)",
			c.Bridge.TransmitInterval, c.Bridge.PollInterval))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QOS))
	}
	return errors.Join(errs...)
}
