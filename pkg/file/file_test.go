package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileService_ReadYamlFile_KeepsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bus_042\n"), 0600))

	v := struct {
		Name  string `yaml:"name"`
		Route string `yaml:"route"`
	}{Name: "bus_001", Route: "7"}

	fs := NewFileService()
	require.NoError(t, fs.ReadYamlFile(path, &v))
	assert.Equal(t, "bus_042", v.Name)
	assert.Equal(t, "7", v.Route)
}

func TestFileService_ReadYamlFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	var v map[string]string
	assert.NoError(t, NewFileService().ReadYamlFile(path, &v))
}

func TestFileService_IsFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.json")
	fs := NewFileService()

	exists, err := fs.IsFileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(path, []byte(`{"bus_id":"bus_042"}`), 0600))
	exists, err = fs.IsFileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	var v struct {
		BusID string `json:"bus_id"`
	}
	require.NoError(t, fs.ReadJsonFile(path, &v))
	assert.Equal(t, "bus_042", v.BusID)
}
