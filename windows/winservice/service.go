// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package winservice

import (
	"fmt"
	"sync"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/hpe-storage/service-host-libs/windows/user32"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
)

const (
	// WTSSESSION_NOTIFICATION
	sessionNotificationSize = 8
	// SERVICE_TIMECHANGE_INFO
	timeChangeInfoSize = 16
)

// Publisher reports status to the service control manager while Execute runs and to the log
// otherwise
type Publisher struct {
	lock     sync.Mutex
	changes  chan<- svc.Status
	fallback *service.LogPublisher
}

// NewPublisher returns a detached publisher
func NewPublisher() *Publisher {
	return &Publisher{fallback: service.NewLogPublisher()}
}

func (p *Publisher) attach(changes chan<- svc.Status) {
	p.lock.Lock()
	p.changes = changes
	p.lock.Unlock()
}

func (p *Publisher) detach() {
	p.lock.Lock()
	p.changes = nil
	p.lock.Unlock()
}

// Register returns the service status handle, or a placeholder handle when detached
func (p *Publisher) Register(name string) (service.StatusHandle, error) {
	p.lock.Lock()
	attached := p.changes != nil
	p.lock.Unlock()
	if !attached {
		return p.fallback.Register(name)
	}
	handle := svc.StatusHandle()
	if handle == 0 {
		return 0, fmt.Errorf("no service status handle for %s", name)
	}
	return service.StatusHandle(handle), nil
}

// Publish forwards status to the service control manager
func (p *Publisher) Publish(status service.Status) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.changes == nil {
		return p.fallback.Publish(status)
	}
	p.changes <- svc.Status{
		State:                   svc.State(status.State),
		Accepts:                 svc.Accepted(status.Accepts),
		CheckPoint:              status.CheckPoint,
		WaitHint:                status.WaitHint,
		Win32ExitCode:           status.Win32ExitCode,
		ServiceSpecificExitCode: status.ServiceSpecificExitCode,
	}
	return nil
}

// ControlEvent converts a change request, copying the event data it points to
func ControlEvent(c svc.ChangeRequest) service.ControlEvent {
	code := service.ControlCode(c.Cmd)
	ev := service.ControlEvent{Code: code, EventType: c.EventType}
	if c.EventData == 0 {
		return ev
	}
	switch code {
	case service.DeviceEvent:
		ev.EventData = user32.BroadcastPayload(notification.WM_DEVICECHANGE, uintptr(c.EventType), c.EventData)
	case service.PowerEvent:
		ev.EventData = user32.BroadcastPayload(notification.WM_POWERBROADCAST, uintptr(c.EventType), c.EventData)
	case service.SessionChange:
		ev.EventData = user32.CopyMemory(c.EventData, sessionNotificationSize)
	case service.TimeChange:
		ev.EventData = user32.CopyMemory(c.EventData, timeChangeInfoSize)
	}
	return ev
}

// Execute is the thread executing the service and receiving control events
func (h *Host) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	log.Trace(">>>>> Execute")
	defer log.Trace("<<<<< Execute")

	h.publisher.attach(changes)
	defer h.publisher.detach()

	// args[0] is the service name
	if len(args) > 0 {
		args = args[1:]
	}
	if err := h.controller.Run(args); err != nil {
		log.Errorf("%s failed to start, err=%v", h.cfg.Name, err)
		return true, h.controller.Status().ServiceSpecificExitCode
	}

	registry := notification.NewRegistry(user32.NewServiceRegistrar(windows.Handle(h.controller.Handle())))
	if err := registry.Register(h.cfg.DeviceClasses, h.cfg.PowerSettings); err != nil {
		log.Warnf("running without device and power notifications, err=%v", err)
	}
	defer registry.Close()

	for c := range r {
		h.controller.HandleControl(ControlEvent(c))
		if h.controller.Status().State == service.Stopped {
			break
		}
	}
	return false, 0
}

// RunService runs under the service control manager until the service stops
func (h *Host) RunService() error {
	log.Tracef(">>>>> RunService, name=%s", h.cfg.Name)
	defer log.Trace("<<<<< RunService")

	log.Infof("starting %s service", h.cfg.Name)
	if err := svc.Run(h.cfg.Name, h); err != nil {
		log.Errorf("%s service failed: %v", h.cfg.Name, err)
		return err
	}
	log.Infof("%s service stopped", h.cfg.Name)
	return nil
}
