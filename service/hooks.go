// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package service

import (
	"time"

	"github.com/hpe-storage/service-host-libs/notification"
)

// Hooks is the behaviour of a service.  Every hook is optional; a nil hook is a no-op and a nil
// Initialize always succeeds.  Hooks run on the control dispatch goroutine and should return
// quickly; Stop, Shutdown and PreShutdown may call Controller.RequestAdditionalTime.
type Hooks struct {
	Install    func() error
	Uninstall  func() error
	Initialize func(args []string) bool
	Start      func(args []string)

	Stop        func()
	Pause       func()
	Continue    func()
	Shutdown    func()
	PreShutdown func()
	Interrogate func()

	DeviceEvent           func(event *notification.DeviceEvent)
	HardwareProfileChange func(change notification.HardwareProfileChange)
	PowerEvent            func(event *notification.PowerEvent)
	SessionChange         func(event *notification.SessionEvent)
	TimeChange            func(oldTime, newTime time.Time)
	NetBind               func(code ControlCode)
	CustomCommand         func(code ControlCode)
}
