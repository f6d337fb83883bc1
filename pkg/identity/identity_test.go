package identity

import (
	"errors"
	"os"
	"testing"

	"github.com/benmeehan/bus-tracker/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockFileOperations struct {
	file.FileOperations
	mock.Mock
}

func (m *mockFileOperations) ReadJsonFile(filePath string, v any) error {
	args := m.Called(filePath, v)
	if fn, ok := args.Get(1).(func(any)); ok {
		fn(v)
	}
	return args.Error(0)
}

func TestDeviceInfo_LoadsBusIDFromFile(t *testing.T) {
	fileOps := new(mockFileOperations)
	fileOps.On("ReadJsonFile", "device.json", mock.Anything).
		Return(nil, func(v any) { v.(*Identity).BusID = "bus_042" })

	d := NewDeviceInfo("device.json", "bus_001", fileOps)

	assert.NoError(t, d.LoadDeviceInfo())
	assert.Equal(t, "bus_042", d.GetDeviceID())
	fileOps.AssertExpectations(t)
}

func TestDeviceInfo_IdentityResolvesBusID(t *testing.T) {
	fileOps := new(mockFileOperations)
	fileOps.On("ReadJsonFile", "device.json", mock.Anything).
		Return(nil, func(v any) {
			id := v.(*Identity)
			id.Name = "Campus Shuttle 1"
			id.Route = "north-loop"
		})

	d := NewDeviceInfo("device.json", "bus_001", fileOps)
	assert.NoError(t, d.LoadDeviceInfo())

	id := d.GetDeviceIdentity()
	assert.Equal(t, Identity{BusID: "bus_001", Name: "Campus Shuttle 1", Route: "north-loop"}, *id)

	id.BusID = "changed"
	assert.Equal(t, "bus_001", d.GetDeviceID(), "callers get a copy")
}

func TestDeviceInfo_FallsBackWhenFileMissing(t *testing.T) {
	fileOps := new(mockFileOperations)
	fileOps.On("ReadJsonFile", "device.json", mock.Anything).Return(os.ErrNotExist, nil)

	d := NewDeviceInfo("device.json", "bus_001", fileOps)

	assert.NoError(t, d.LoadDeviceInfo())
	assert.Equal(t, "bus_001", d.GetDeviceID())
}

func TestDeviceInfo_NoFileConfigured(t *testing.T) {
	fileOps := new(mockFileOperations)
	d := NewDeviceInfo("", "bus_001", fileOps)

	assert.NoError(t, d.LoadDeviceInfo())
	assert.Equal(t, "bus_001", d.GetDeviceID())
	fileOps.AssertNotCalled(t, "ReadJsonFile", mock.Anything, mock.Anything)
}

func TestDeviceInfo_ReadError(t *testing.T) {
	fileOps := new(mockFileOperations)
	fileOps.On("ReadJsonFile", "device.json", mock.Anything).Return(errors.New("invalid character"), nil)

	d := NewDeviceInfo("device.json", "bus_001", fileOps)
	assert.Error(t, d.LoadDeviceInfo())
}
