// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package service

import (
	"time"

	"github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/svcerrors"
	uuid "github.com/satori/go.uuid"
)

const (
	// DefaultLogName is the event log a service writes to unless configured otherwise
	DefaultLogName = "Services"
	// DefaultWaitHint is reported with every pending state
	DefaultWaitHint = 30 * time.Second
)

// Config describes a service: how it is registered with the host and what it accepts
type Config struct {
	Name             string
	DisplayName      string
	Description      string
	ServiceType      ServiceType
	AcceptedControls Accepted
	StartType        StartType
	ErrorControl     ErrorControl
	DelayedAutoStart bool
	LogName          string
	LoggerFactory    logger.SinkFactory
	DeviceClasses    []uuid.UUID
	PowerSettings    []uuid.UUID
}

// WithDefaults returns a copy of c with every unset field filled in
func (c Config) WithDefaults() Config {
	if c.DisplayName == "" {
		c.DisplayName = c.Name
	}
	if c.Description == "" {
		c.Description = c.Name
	}
	if c.ServiceType == 0 {
		c.ServiceType = OwnProcess
	}
	if c.AcceptedControls == 0 {
		c.AcceptedControls = AcceptAll
	}
	if c.StartType == 0 {
		c.StartType = AutoStart
	}
	if c.ErrorControl == 0 {
		c.ErrorControl = ErrorNormal
	}
	if c.LogName == "" {
		c.LogName = DefaultLogName
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logger.NewConsoleSink
	}
	if c.DeviceClasses == nil {
		c.DeviceClasses = notification.DefaultDeviceClasses()
	}
	if c.PowerSettings == nil {
		c.PowerSettings = notification.DefaultPowerSettings()
	}
	return c
}

// Validate checks the fields that have no sensible default
func (c Config) Validate() error {
	if c.Name == "" {
		return svcerrors.New(svcerrors.StartupFailure, "service name is required")
	}
	return nil
}
