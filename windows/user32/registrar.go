// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package user32

import (
	"fmt"
	"unsafe"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/windows/wtsapi32"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/sys/windows"
)

const DBT_DEVTYP_DEVICEINTERFACE = 0x00000005

// Registrar implements notification.Registrar for a window or a service status handle
type Registrar struct {
	recipient func() windows.Handle
	flags     uint32
	service   bool
}

// NewWindowRegistrar registers window for notifications.  The handle is read at registration
// time, so the registrar may be built before the window is open.
func NewWindowRegistrar(window *Window) *Registrar {
	return &Registrar{recipient: window.Handle, flags: DEVICE_NOTIFY_WINDOW_HANDLE}
}

// NewServiceRegistrar registers a service status handle.  Session changes reach services
// through their control handler, so no session registration is made.
func NewServiceRegistrar(statusHandle windows.Handle) *Registrar {
	return &Registrar{
		recipient: func() windows.Handle { return statusHandle },
		flags:     DEVICE_NOTIFY_SERVICE_HANDLE,
		service:   true,
	}
}

func (r *Registrar) handle() (windows.Handle, error) {
	recipient := r.recipient()
	if recipient == 0 {
		return 0, fmt.Errorf("notification recipient is not open")
	}
	return recipient, nil
}

func toWindowsGUID(u uuid.UUID) windows.GUID {
	g, _ := windows.GUIDFromString("{" + u.String() + "}")
	return g
}

// RegisterDeviceInterface subscribes to arrivals and removals of one device interface class
func (r *Registrar) RegisterDeviceInterface(class uuid.UUID) (notification.Handle, error) {
	recipient, err := r.handle()
	if err != nil {
		return 0, err
	}
	filter := DEV_BROADCAST_DEVICEINTERFACE_W{
		DeviceType: DBT_DEVTYP_DEVICEINTERFACE,
		ClassGUID:  toWindowsGUID(class),
	}
	filter.Size = uint32(unsafe.Sizeof(filter))
	handle, err := RegisterDeviceNotification(recipient, unsafe.Pointer(&filter), r.flags)
	if err != nil {
		return 0, err
	}
	return notification.Handle(handle), nil
}

// RegisterPowerSetting subscribes to changes of one power setting
func (r *Registrar) RegisterPowerSetting(setting uuid.UUID) (notification.Handle, error) {
	recipient, err := r.handle()
	if err != nil {
		return 0, err
	}
	guid := toWindowsGUID(setting)
	handle, err := RegisterPowerSettingNotification(recipient, &guid, r.flags)
	if err != nil {
		return 0, err
	}
	return notification.Handle(handle), nil
}

// RegisterSessionNotification subscribes the window to session changes of all sessions
func (r *Registrar) RegisterSessionNotification() (notification.Handle, error) {
	if r.service {
		log.Trace("session changes are delivered to the service control handler")
		return 0, nil
	}
	recipient, err := r.handle()
	if err != nil {
		return 0, err
	}
	if err = wtsapi32.RegisterSessionNotification(recipient, wtsapi32.NOTIFY_FOR_ALL_SESSIONS); err != nil {
		return 0, err
	}
	return notification.Handle(recipient), nil
}

// Unregister releases a registration made by this registrar
func (r *Registrar) Unregister(reg notification.Registration) error {
	if reg.Handle == 0 {
		return nil
	}
	handle := windows.Handle(reg.Handle)
	switch reg.Kind {
	case notification.RegistrationDevice:
		return UnregisterDeviceNotification(handle)
	case notification.RegistrationPowerSetting:
		return UnregisterPowerSettingNotification(handle)
	case notification.RegistrationSession:
		return wtsapi32.UnregisterSessionNotification(handle)
	}
	return fmt.Errorf("unknown registration kind %v", reg.Kind)
}
