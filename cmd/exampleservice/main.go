// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// exampleservice is a reference service.  Every hook logs what it receives, so running it
// interactively (or under the service control manager) shows each control and notification as
// it is decoded.
//
//	exampleservice [-config path] [install|uninstall|console]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hpe-storage/service-host-libs/config"
	log "github.com/hpe-storage/service-host-libs/logger"
)

const defaultServiceName = "ExampleService"

func main() {
	configPath := flag.String("config", "", "configuration file (YAML)")
	logFile := flag.String("log", "", "log file, overrides the configuration")
	flag.Parse()

	if err := run(*configPath, *logFile, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logFile string, args []string) error {
	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if file.Service.Name == "" {
		file.Service.Name = defaultServiceName
	}
	if logFile != "" {
		file.Log.File = logFile
	}

	err, lg := log.InitLogging(file.Log.File, &file.Log, file.Log.File == "", file.TracingService())
	if err != nil {
		return err
	}
	defer lg.CloseTracer()

	cfg, err := file.ServiceConfig()
	if err != nil {
		return err
	}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, config.ApplyLogLevel)
		if err != nil {
			log.Warnf("configuration changes will not be applied, err=%v", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	example := newExampleService(file.StatusAddress)
	return host(cfg, file, example, args)
}
