// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

// Package user32 provides the hidden message window that receives device, power and session
// broadcasts, and registers it (or a service status handle) for those notifications.
package user32

import (
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

// Lazy load the notification registration APIs, which lxn/win does not wrap
var (
	user32                                 = windows.NewLazySystemDLL("user32.dll")
	procRegisterDeviceNotificationW        = user32.NewProc("RegisterDeviceNotificationW")
	procUnregisterDeviceNotification       = user32.NewProc("UnregisterDeviceNotification")
	procRegisterPowerSettingNotification   = user32.NewProc("RegisterPowerSettingNotification")
	procUnregisterPowerSettingNotification = user32.NewProc("UnregisterPowerSettingNotification")
)

// Recipient flags of RegisterDeviceNotification and RegisterPowerSettingNotification
const (
	DEVICE_NOTIFY_WINDOW_HANDLE  = 0x00000000
	DEVICE_NOTIFY_SERVICE_HANDLE = 0x00000001
)

// GetSystemMetrics index reporting a remotely controlled session
const SM_REMOTECONTROL = 0x2001

// DEV_BROADCAST_DEVICEINTERFACE_W is the device interface filter passed to
// RegisterDeviceNotification
type DEV_BROADCAST_DEVICEINTERFACE_W struct {
	Size       uint32
	DeviceType uint32
	Reserved   uint32
	ClassGUID  windows.GUID
	Name       [1]uint16
}

// RegisterDeviceNotification -- Registers the device or type of device for which a window or
// service will receive notifications.
// https://docs.microsoft.com/en-us/windows/win32/api/winuser/nf-winuser-registerdevicenotificationw
func RegisterDeviceNotification(recipient windows.Handle, filter unsafe.Pointer, flags uint32) (windows.Handle, error) {
	ret, _, err := procRegisterDeviceNotificationW.Call(uintptr(recipient), uintptr(filter), uintptr(flags))
	if ret == 0 {
		return 0, lastError(err)
	}
	return windows.Handle(ret), nil
}

// UnregisterDeviceNotification -- Closes the specified device notification handle.
// https://docs.microsoft.com/en-us/windows/win32/api/winuser/nf-winuser-unregisterdevicenotification
func UnregisterDeviceNotification(handle windows.Handle) error {
	ret, _, err := procUnregisterDeviceNotification.Call(uintptr(handle))
	if ret == 0 {
		return lastError(err)
	}
	return nil
}

// RegisterPowerSettingNotification -- Registers the application to receive power setting
// notifications for the specific power setting event.
// https://docs.microsoft.com/en-us/windows/win32/api/winuser/nf-winuser-registerpowersettingnotification
func RegisterPowerSettingNotification(recipient windows.Handle, setting *windows.GUID, flags uint32) (windows.Handle, error) {
	ret, _, err := procRegisterPowerSettingNotification.Call(uintptr(recipient), uintptr(unsafe.Pointer(setting)), uintptr(flags))
	if ret == 0 {
		return 0, lastError(err)
	}
	return windows.Handle(ret), nil
}

// UnregisterPowerSettingNotification -- Unregisters the power setting notification.
// https://docs.microsoft.com/en-us/windows/win32/api/winuser/nf-winuser-unregisterpowersettingnotification
func UnregisterPowerSettingNotification(handle windows.Handle) error {
	ret, _, err := procUnregisterPowerSettingNotification.Call(uintptr(handle))
	if ret == 0 {
		return lastError(err)
	}
	return nil
}

// RemoteControl reports whether the current session is remotely controlled
type RemoteControl struct{}

// IsRemotelyControlled implements notification.RemoteControlDetector
func (RemoteControl) IsRemotelyControlled() bool {
	return win.GetSystemMetrics(SM_REMOTECONTROL) != 0
}

func lastError(err error) error {
	if errno, ok := err.(syscall.Errno); ok && errno != 0 {
		return errno
	}
	return syscall.EINVAL
}
