// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build !windows
// +build !windows

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/hpe-storage/service-host-libs/config"
	"github.com/hpe-storage/service-host-libs/console"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/hpe-storage/service-host-libs/svcerrors"
	"github.com/opentracing/opentracing-go"
)

// host runs the console driver with simulated control events.  There is no service control
// manager or notification window off Windows.
func host(cfg service.Config, file *config.File, example *exampleService, args []string) error {
	var controllerOpts []service.Option
	if file.Tracing.Enabled {
		controllerOpts = append(controllerOpts, service.WithTracer(opentracing.GlobalTracer()))
	}
	controller := service.NewController(cfg, example.hooks(), service.NewLogPublisher(), controllerOpts...)
	example.bind(controller)

	switch service.ParseCommand(args) {
	case service.CommandInstall, service.CommandUninstall:
		controller.Close()
		return svcerrors.Errorf(svcerrors.InstallFailure, "%s can only be installed on Windows", cfg.Name)
	case service.CommandRun:
		service.PrintUsage(os.Stdout, filepath.Base(os.Args[0]), cfg)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	driver := console.New(controller, console.WithPollInterval(file.Console.PollInterval))
	defer driver.Close()
	return driver.Run(ctx)
}
