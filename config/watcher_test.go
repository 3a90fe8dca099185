package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForChange(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Current().Changed():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcher_Reload(t *testing.T) {
	configFile := createConfigFile(t, v2Config)
	initial, err := ReadConfig(configFile)
	require.NoError(t, err)

	w, err := NewWatcher(configFile, initial)
	require.NoError(t, err)
	w.Start()
	t.Cleanup(func() { w.Stop() })

	assert.Same(t, initial, w.Current().Load())

	updated := strings.Replace(v2Config, "Name: DEFAULT", "Name: hallway", 1)
	require.NoError(t, os.WriteFile(configFile, []byte(updated), 0o644))

	require.True(t, waitForChange(t, w, 3*time.Second), "the watcher should publish the new config")
	current := w.Current().Load()
	assert.Equal(t, "hallway", current.Node.Name)
	assert.Equal(t, "DEFAULT", initial.Node.Name, "the previous record is never modified")
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	configFile := createConfigFile(t, v2Config)
	initial, err := ReadConfig(configFile)
	require.NoError(t, err)

	w, err := NewWatcher(configFile, initial)
	require.NoError(t, err)
	w.Start()
	t.Cleanup(func() { w.Stop() })

	broken := strings.Replace(v2Config, "ChannelMode: 0", "ChannelMode: 9", 1)
	require.NoError(t, os.WriteFile(configFile, []byte(broken), 0o644))

	assert.False(t, waitForChange(t, w, 3*ReloadDelay+500*time.Millisecond), "an invalid file must not be published")
	assert.Same(t, initial, w.Current().Load())
	assert.Equal(t, uint64(0), w.Current().Revision())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	configFile := createConfigFile(t, v2Config)
	initial, err := ReadConfig(configFile)
	require.NoError(t, err)

	w, err := NewWatcher(configFile, initial)
	require.NoError(t, err)
	w.Start()
	t.Cleanup(func() { w.Stop() })

	require.NoError(t, os.WriteFile(configFile+".bak", []byte("junk"), 0o644))

	assert.False(t, waitForChange(t, w, 3*ReloadDelay+500*time.Millisecond))
}

func TestWatcher_StopTwice(t *testing.T) {
	configFile := createConfigFile(t, v2Config)
	initial, err := ReadConfig(configFile)
	require.NoError(t, err)

	w, err := NewWatcher(configFile, initial)
	require.NoError(t, err)
	w.Start()

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
