// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package main

import (
	"sync"
	"time"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/hpe-storage/service-host-libs/statusapi"
)

const stopWait = 10 * time.Second

// exampleService logs every hook and serves the status API while running
type exampleService struct {
	statusAddress string
	sessions      statusapi.SessionLister

	lock       sync.Mutex
	controller *service.Controller
	server     *statusapi.Server
}

func newExampleService(statusAddress string) *exampleService {
	return &exampleService{statusAddress: statusAddress}
}

// bind hands the service its controller once the host has built it
func (e *exampleService) bind(controller *service.Controller) {
	e.lock.Lock()
	e.controller = controller
	e.lock.Unlock()
}

func (e *exampleService) hooks() service.Hooks {
	return service.Hooks{
		Install: func() error {
			log.Info("Install")
			return nil
		},
		Uninstall: func() error {
			log.Info("Uninstall")
			return nil
		},
		Initialize: func(args []string) bool {
			log.Infof("Initialize, args=%v", args)
			return true
		},
		Start:       e.start,
		Stop:        e.stop,
		Shutdown:    e.stop,
		PreShutdown: func() { log.Info("PreShutdown") },
		Pause:       func() { log.Info("Pause") },
		Continue:    func() { log.Info("Continue") },
		Interrogate: func() { log.Info("Interrogate") },

		DeviceEvent: func(event *notification.DeviceEvent) {
			log.WithField("event", event.String()).Info("DeviceEvent")
		},
		HardwareProfileChange: func(change notification.HardwareProfileChange) {
			log.Infof("HardwareProfileChange, change=%v", change)
		},
		PowerEvent: func(event *notification.PowerEvent) {
			log.WithFields(log.Fields{
				"type":  event.Event,
				"event": event.String(),
			}).Info("PowerEvent")
		},
		SessionChange: func(event *notification.SessionEvent) {
			log.WithFields(log.Fields{
				"reason":    event.Reason,
				"sessionID": event.SessionID,
				"event":     event.String(),
			}).Info("SessionChange")
		},
		TimeChange: func(oldTime, newTime time.Time) {
			log.Infof("TimeChange, old=%v new=%v", oldTime, newTime)
		},
		NetBind: func(code service.ControlCode) {
			log.Infof("NetBind, code=%v", code)
		},
		CustomCommand: func(code service.ControlCode) {
			log.Infof("CustomCommand, code=%d", uint32(code))
		},
	}
}

func (e *exampleService) start(args []string) {
	log.Infof("Start, args=%v", args)
	if e.statusAddress == "" {
		return
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	if e.controller == nil || e.server != nil {
		return
	}
	var opts []statusapi.Option
	if e.sessions != nil {
		opts = append(opts, statusapi.WithSessions(e.sessions))
	}
	server, err := statusapi.NewServer(e.statusAddress, e.controller, opts...)
	if err != nil {
		log.Warnf("status API disabled, err=%v", err)
		return
	}
	if err = server.Start(); err != nil {
		log.Warnf("status API disabled, err=%v", err)
		return
	}
	log.Infof("status API listening on %s", server.URL())
	e.server = server
}

func (e *exampleService) stop() {
	log.Info("Stop")

	e.lock.Lock()
	controller := e.controller
	server := e.server
	e.server = nil
	e.lock.Unlock()

	if controller != nil {
		if err := controller.RequestAdditionalTime(stopWait); err != nil {
			log.Warnf("unable to request additional time, err=%v", err)
		}
	}
	if server != nil {
		if err := server.Stop(); err != nil {
			log.Warnf("status API did not stop cleanly, err=%v", err)
		}
	}
}
