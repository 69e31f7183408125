// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package service

import (
	"bytes"
	"testing"

	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/svcerrors"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	assert.Equal(t, CommandRun, ParseCommand(nil))
	assert.Equal(t, CommandInstall, ParseCommand([]string{"i"}))
	assert.Equal(t, CommandInstall, ParseCommand([]string{"-install"}))
	assert.Equal(t, CommandUninstall, ParseCommand([]string{"U"}))
	assert.Equal(t, CommandUninstall, ParseCommand([]string{"/uninstall"}))
	assert.Equal(t, CommandConsole, ParseCommand([]string{"c"}))
	assert.Equal(t, CommandConsole, ParseCommand([]string{"anything", "else"}))
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	PrintUsage(&out, `C:\Program Files\Example\example.exe`, Config{Name: "Example"}.WithDefaults())
	assert.Contains(t, out.String(), "example.exe i | install")
	assert.Contains(t, out.String(), "example.exe u | uninstall")
	assert.Contains(t, out.String(), "install the Example service")
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Name: "Example"}.WithDefaults()
	assert.Equal(t, "Example", cfg.DisplayName)
	assert.Equal(t, "Example", cfg.Description)
	assert.Equal(t, OwnProcess, cfg.ServiceType)
	assert.Equal(t, AcceptAll, cfg.AcceptedControls)
	assert.Equal(t, AutoStart, cfg.StartType)
	assert.Equal(t, ErrorNormal, cfg.ErrorControl)
	assert.Equal(t, DefaultLogName, cfg.LogName)
	assert.NotNil(t, cfg.LoggerFactory)
	assert.Len(t, cfg.DeviceClasses, len(notification.DefaultDeviceClasses()))
	assert.Len(t, cfg.PowerSettings, len(notification.DefaultPowerSettings()))

	cfg = Config{Name: "Example", DisplayName: "Example Service", StartType: DemandStart}.WithDefaults()
	assert.Equal(t, "Example Service", cfg.DisplayName)
	assert.Equal(t, DemandStart, cfg.StartType)

	assert.NoError(t, cfg.Validate())
	assert.True(t, svcerrors.Is(Config{}.Validate(), svcerrors.StartupFailure))
}

func TestParseNames(t *testing.T) {
	code, err := ParseControlCode("pause")
	assert.NoError(t, err)
	assert.Equal(t, Pause, code)
	code, err = ParseControlCode("0x80")
	assert.NoError(t, err)
	assert.Equal(t, ControlCode(128), code)
	_, err = ParseControlCode("resume")
	assert.Error(t, err)

	accepted, err := ParseAccepted([]string{"Stop", "sessionchange"})
	assert.NoError(t, err)
	assert.Equal(t, AcceptStop|AcceptSessionChange, accepted)
	assert.Equal(t, "Stop|SessionChange", accepted.String())
	accepted, err = ParseAccepted([]string{"all"})
	assert.NoError(t, err)
	assert.Equal(t, AcceptAll, accepted)
	_, err = ParseAccepted([]string{"Reboot"})
	assert.Error(t, err)

	startType, err := ParseStartType("manual")
	assert.NoError(t, err)
	assert.Equal(t, DemandStart, startType)
	errorControl, err := ParseErrorControl("Severe")
	assert.NoError(t, err)
	assert.Equal(t, ErrorSevere, errorControl)
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "Running", Running.String())
	assert.True(t, StopPending.Pending())
	assert.False(t, Paused.Pending())
	assert.Equal(t, "SessionChange", SessionChange.String())
	assert.Equal(t, "ControlCode(0x80)", ControlCode(0x80).String())
}
