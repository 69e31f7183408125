// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

// Package powrprof reads the system power status and power scheme names
package powrprof

import (
	"syscall"
	"unsafe"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/sys/windows"
)

// Lazy load the power APIs
var (
	kernel32                 = windows.NewLazySystemDLL("kernel32.dll")
	procGetSystemPowerStatus = kernel32.NewProc("GetSystemPowerStatus")

	powrprof                  = windows.NewLazySystemDLL("powrprof.dll")
	procPowerReadFriendlyName = powrprof.NewProc("PowerReadFriendlyName")
)

// SYSTEM_POWER_STATUS as returned by GetSystemPowerStatus
type SYSTEM_POWER_STATUS struct {
	ACLineStatus        byte
	BatteryFlag         byte
	BatteryLifePercent  byte
	SystemStatusFlag    byte
	BatteryLifeTime     uint32
	BatteryFullLifeTime uint32
}

// GetSystemPowerStatus -- Retrieves the power status of the system.
// https://docs.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-getsystempowerstatus
func GetSystemPowerStatus() (*SYSTEM_POWER_STATUS, error) {
	var status SYSTEM_POWER_STATUS
	ret, _, err := procGetSystemPowerStatus.Call(uintptr(unsafe.Pointer(&status)))
	if ret == 0 {
		if errno, ok := err.(syscall.Errno); ok && errno != 0 {
			return nil, errno
		}
		return nil, syscall.EINVAL
	}
	return &status, nil
}

// PowerReadFriendlyName -- Retrieves the friendly name of a power scheme.
// https://docs.microsoft.com/en-us/windows/win32/api/powersetting/nf-powersetting-powerreadfriendlyname
func PowerReadFriendlyName(scheme windows.GUID) (string, error) {
	var size uint32
	ret, _, _ := procPowerReadFriendlyName.Call(0, uintptr(unsafe.Pointer(&scheme)), 0, 0, 0, uintptr(unsafe.Pointer(&size)))
	if ret != 0 {
		return "", syscall.Errno(ret)
	}
	if size < 2 {
		return "", nil
	}
	buffer := make([]uint16, size/2)
	ret, _, _ = procPowerReadFriendlyName.Call(0, uintptr(unsafe.Pointer(&scheme)), 0, 0,
		uintptr(unsafe.Pointer(&buffer[0])), uintptr(unsafe.Pointer(&size)))
	if ret != 0 {
		return "", syscall.Errno(ret)
	}
	return windows.UTF16ToString(buffer), nil
}

// PowerStatus implements notification.PowerStatusSource
type PowerStatus struct{}

// SystemPowerStatus returns the current power status
func (PowerStatus) SystemPowerStatus() (*notification.SystemPowerStatus, error) {
	status, err := GetSystemPowerStatus()
	if err != nil {
		return nil, err
	}
	return &notification.SystemPowerStatus{
		ACLineStatus:        status.ACLineStatus,
		BatteryFlag:         status.BatteryFlag,
		BatteryLifePercent:  status.BatteryLifePercent,
		SystemStatusFlag:    status.SystemStatusFlag,
		BatteryLifeTime:     status.BatteryLifeTime,
		BatteryFullLifeTime: status.BatteryFullLifeTime,
	}, nil
}

// SchemeNames implements notification.PowerSchemeNamer.  Fallback, when set, is asked when
// powrprof has no name for the scheme.
type SchemeNames struct {
	Fallback notification.PowerSchemeNamer
}

// PowerSchemeName returns the friendly name of scheme
func (s SchemeNames) PowerSchemeName(scheme uuid.UUID) (string, error) {
	guid, err := windows.GUIDFromString("{" + scheme.String() + "}")
	if err != nil {
		return "", err
	}
	name, err := PowerReadFriendlyName(guid)
	if err == nil && name != "" {
		return name, nil
	}
	if s.Fallback == nil {
		return name, err
	}
	log.Debugf("PowerReadFriendlyName failed for %v, err=%v, trying fallback", scheme, err)
	return s.Fallback.PowerSchemeName(scheme)
}
