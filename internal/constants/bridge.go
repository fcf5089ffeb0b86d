package constants

import "time"

// DefaultDeviceID is the gmid used when no source or identity file provides one.
const DefaultDeviceID = "CSX-9000"

// FrameTypeData is the "type" field of every telemetry frame.
const FrameTypeData = "data"

// Controller operating modes.
const (
	ModeIdle  = 0
	ModeRun   = 1
	ModePurge = 2
	ModeBurp  = 3
)

// Live store keys written by the controller process.
const (
	KeyController = "cont"
	KeyAlarms     = "alarms"
	KeyPayload    = "payload"
)

// BackupTable is the append-only table holding controller history.
const BackupTable = "controller"

const (
	DefaultSerialPort       = "/dev/ttyAMA0"
	DefaultBaudRate         = 9600
	DefaultReadTimeout      = 1 * time.Second
	DefaultPollInterval     = 1 * time.Second
	DefaultTransmitInterval = 15 * time.Second
	DefaultProbeTimeout     = 2 * time.Second

	// PortSettleDelay is how long to wait after opening the port before the first write.
	PortSettleDelay = 500 * time.Millisecond
)

const (
	DefaultRedisAddr    = "localhost:6379"
	DefaultSnapshotPath = "cont2_data.json"
	DefaultBackupPath   = "rms.db"
	DefaultProfilePath  = "profile.json"
	DefaultLogFile      = "bridge.log"
	DefaultConfigFile   = "configs/config.yaml"
	DefaultMQTTTopic    = "bridge/payload"
)
