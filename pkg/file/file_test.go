package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileService_IsFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	fs := NewFileService()

	exists, err := fs.IsFileExists(path)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = fs.IsFileExists(filepath.Join(dir, "absent.json"))
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestFileService_ReadJsonFile_KeepsExistingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"b":7}`), 0600))

	v := struct {
		A string `json:"a"`
		B int    `json:"b"`
	}{A: "kept"}

	err := NewFileService().ReadJsonFile(path, &v)
	require.NoError(t, err)
	assert.Equal(t, "kept", v.A)
	assert.Equal(t, 7, v.B)
}

func TestFileService_ReadYamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: /dev/ttyUSB0\n"), 0600))

	var v struct {
		Port string `yaml:"port"`
	}
	require.NoError(t, NewFileService().ReadYamlFile(path, &v))
	assert.Equal(t, "/dev/ttyUSB0", v.Port)
}

func TestFileService_ReadFileRaw_Missing(t *testing.T) {
	_, err := NewFileService().ReadFileRaw(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, os.IsNotExist(err))
}
