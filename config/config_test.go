// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/service"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
service:
  name: UsbMonitor
  displayName: USB Monitor
  startType: manual
  errorControl: severe
  accept: [Stop, PauseContinue, SessionChange, PowerEvent]
  delayedAutoStart: true
log:
  level: debug
  file: C:\ProgramData\UsbMonitor\usbmonitor.log
  maxFiles: 3
tracing:
  enabled: true
notifications:
  deviceClasses:
    - a5dcbf10-6530-11d2-901f-00c04fb951ed
  pollInterval: 5ms
console:
  pollInterval: 250ms
statusAddress: 127.0.0.1:8500
`

func writeConfig(t *testing.T, dir, content string) string {
	path := filepath.Join(dir, "service.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	file, err := Load(writeConfig(t, dir, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "UsbMonitor", file.Service.Name)
	assert.Equal(t, "debug", file.Log.Level)
	assert.Equal(t, 3, file.Log.MaxFiles)
	assert.Equal(t, log.DefaultMaxLogSize, file.Log.MaxSizeMiB)
	assert.Equal(t, log.DefaultLogFormat, file.Log.Format)
	require.Len(t, file.Notifications.DeviceClasses, 1)
	assert.True(t, uuid.Equal(notification.GUID_DEVINTERFACE_USB_DEVICE, file.Notifications.DeviceClasses[0]))
	assert.Nil(t, file.Notifications.PowerSettings)
	assert.Equal(t, 5*time.Millisecond, file.Notifications.PollInterval)
	assert.Equal(t, 250*time.Millisecond, file.Console.PollInterval)
	assert.Equal(t, "127.0.0.1:8500", file.StatusAddress)
	assert.Equal(t, "UsbMonitor", file.TracingService())

	cfg, err := file.ServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, "USB Monitor", cfg.DisplayName)
	assert.Equal(t, "UsbMonitor", cfg.Description)
	assert.Equal(t, service.DemandStart, cfg.StartType)
	assert.Equal(t, service.ErrorSevere, cfg.ErrorControl)
	assert.Equal(t, service.AcceptStop|service.AcceptPauseContinue|service.AcceptSessionChange|service.AcceptPowerEvent, cfg.AcceptedControls)
	assert.True(t, cfg.DelayedAutoStart)
	assert.Len(t, cfg.DeviceClasses, 1)
	assert.Len(t, cfg.PowerSettings, len(notification.DefaultPowerSettings()))
}

func TestLoadDefaultsAndEnvironment(t *testing.T) {
	os.Setenv("SERVICE_NAME", "FromEnv")
	os.Setenv("SERVICE_STATUS_ADDRESS", "127.0.0.1:9000")
	defer os.Unsetenv("SERVICE_NAME")
	defer os.Unsetenv("SERVICE_STATUS_ADDRESS")

	file, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "FromEnv", file.Service.Name)
	assert.Equal(t, "127.0.0.1:9000", file.StatusAddress)
	assert.Equal(t, log.DefaultLogLevel, file.Log.Level)
	assert.Equal(t, DefaultPollInterval, file.Notifications.PollInterval)
	assert.Equal(t, DefaultConsolePollInterval, file.Console.PollInterval)
	assert.Equal(t, "", file.TracingService())
}

func TestLoadErrors(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, dir, "notifications:\n  deviceClasses: [not-a-guid]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, dir, "service:\n  nmae: typo\n"))
	assert.Error(t, err)

	file, err := Load(writeConfig(t, dir, "service:\n  name: Example\n  startType: sometimes\n"))
	require.NoError(t, err)
	_, err = file.ServiceConfig()
	assert.Error(t, err)

	file, err = Load(writeConfig(t, dir, "log:\n  level: info\n"))
	require.NoError(t, err)
	_, err = file.ServiceConfig()
	assert.Error(t, err)
}

func TestWatcherReloads(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := writeConfig(t, dir, "log:\n  level: info\n")

	var lock sync.Mutex
	var levels []string
	watcher, err := NewWatcher(path, func(file *File) {
		lock.Lock()
		levels = append(levels, file.Log.Level)
		lock.Unlock()
	})
	require.NoError(t, err)
	watcher.settle = 10 * time.Millisecond
	watcher.Start()
	defer watcher.Stop()

	// unrelated files in the directory are ignored
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600))
	writeConfig(t, dir, "log:\n  level: trace\n")

	assert.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(levels) > 0 && levels[len(levels)-1] == "trace"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherRequiresPath(t *testing.T) {
	_, err := NewWatcher("", nil)
	assert.Error(t, err)
}

func TestApplyLogLevel(t *testing.T) {
	defer log.SetLevel("info")
	ApplyLogLevel(&File{Log: log.LogParams{Level: "debug"}})
	assert.Equal(t, "debug", log.GetLevel().String())
}
