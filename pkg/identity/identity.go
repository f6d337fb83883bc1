package identity

import (
	"os"

	"github.com/benmeehan/bus-tracker/pkg/file"
)

// Identity describes the vehicle the tracker reports for.
type Identity struct {
	BusID string `json:"bus_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Route string `json:"route,omitempty"`
}

// DeviceInfoInterface defines methods for reading the device identity.
type DeviceInfoInterface interface {
	LoadDeviceInfo() error
	GetDeviceID() string
	GetDeviceIdentity() *Identity
}

// DeviceInfo loads the identity file and falls back to a configured bus id.
type DeviceInfo struct {
	DeviceInfoFile string
	Identity       Identity
	fallbackID     string
	fileOps        file.FileOperations
}

// NewDeviceInfo initializes a new DeviceInfo instance.
// fallbackID is reported whenever the identity file has no bus id.
func NewDeviceInfo(filePath, fallbackID string, fileOps file.FileOperations) DeviceInfoInterface {
	return &DeviceInfo{
		DeviceInfoFile: filePath,
		fallbackID:     fallbackID,
		fileOps:        fileOps,
	}
}

// LoadDeviceInfo reads the identity file. A missing or unset file is not an error.
func (d *DeviceInfo) LoadDeviceInfo() error {
	if d.DeviceInfoFile == "" {
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

// GetDeviceIdentity returns a copy of the device Identity with the bus id resolved.
func (d *DeviceInfo) GetDeviceIdentity() *Identity {
	id := d.Identity
	id.BusID = d.GetDeviceID()
	return &id
}

// GetDeviceID returns the bus id sent with every location record.
func (d *DeviceInfo) GetDeviceID() string {
	if d.Identity.BusID != "" {
		return d.Identity.BusID
	}
	return d.fallbackID
}
