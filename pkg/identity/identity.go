package identity

import (
	"os"

	"github.com/benmeehan/telemetry-bridge/pkg/file"
)

// Identity holds the device's identifier as provisioned on disk.
type Identity struct {
	ID   string `json:"device_id,omitempty"`
	Name string `json:"device_name,omitempty"`
}

// DeviceInfo manages the device identity and its associated file operations.
type DeviceInfo struct {
	DeviceInfoFile string
	Identity       Identity
	fileOps        file.FileOperations
}

// NewDeviceInfo initializes a new DeviceInfo instance.
func NewDeviceInfo(filePath string, fileOps file.FileOperations) *DeviceInfo {
	return &DeviceInfo{
		DeviceInfoFile: filePath,
		fileOps:        fileOps,
	}
}

// LoadDeviceInfo reads the identity file. An unset path or a missing file
// leaves the identity empty.
func (d *DeviceInfo) LoadDeviceInfo() error {
	if d.DeviceInfoFile == "" {
		d.Identity = Identity{}
		return nil
	}

	err := d.fileOps.ReadJsonFile(d.DeviceInfoFile, &d.Identity)
	if err != nil {
		if os.IsNotExist(err) {
			d.Identity = Identity{}
			return nil
		}
		return err
	}

	return nil
}

// GetDeviceID returns the provisioned device ID, or "" if none.
func (d *DeviceInfo) GetDeviceID() string {
	return d.Identity.ID
}
