// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package main

import (
	"time"

	"github.com/hpe-storage/service-host-libs/config"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/hpe-storage/service-host-libs/windows/winservice"
	"github.com/hpe-storage/service-host-libs/windows/wtsapi32"
	"github.com/opentracing/opentracing-go"
	"golang.org/x/sys/windows/svc/mgr"
)

// Restart twice after a failure, then give up until the failure count resets a day later
var recoveryActions = []mgr.RecoveryAction{
	{Type: mgr.ServiceRestart, Delay: 5 * time.Second},
	{Type: mgr.ServiceRestart, Delay: 30 * time.Second},
	{Type: mgr.NoAction},
}

func host(cfg service.Config, file *config.File, example *exampleService, args []string) error {
	// the host logs to the event log under the service control manager, to the console otherwise
	cfg.LoggerFactory = nil
	example.sessions = wtsapi32.ListSessions

	var controllerOpts []service.Option
	if file.Tracing.Enabled {
		controllerOpts = append(controllerOpts, service.WithTracer(opentracing.GlobalTracer()))
	}
	h := winservice.New(cfg, example.hooks(), winservice.Options{
		PumpInterval:        file.Notifications.PollInterval,
		ConsolePollInterval: file.Console.PollInterval,
		LogFile:             file.Log.File,
		RecoveryActions:     recoveryActions,
		RecoveryResetPeriod: uint32((24 * time.Hour).Seconds()),
	}, controllerOpts...)
	example.bind(h.Controller())
	return h.Main(args)
}
