// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package config loads the service configuration file.  Values are read from YAML, overridden
// from the environment and completed with defaults.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"time"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/mitchellh/mapstructure"
	uuid "github.com/satori/go.uuid"
	"gopkg.in/yaml.v3"
)

const (
	serviceNameEnv   = "SERVICE_NAME"
	statusAddressEnv = "SERVICE_STATUS_ADDRESS"

	DefaultPollInterval        = 2 * time.Millisecond
	DefaultConsolePollInterval = 100 * time.Millisecond
)

// File is the content of the configuration file
type File struct {
	Service       ServiceSection       `mapstructure:"service"`
	Log           log.LogParams        `mapstructure:"log"`
	Tracing       TracingSection       `mapstructure:"tracing"`
	Notifications NotificationsSection `mapstructure:"notifications"`
	Console       ConsoleSection       `mapstructure:"console"`
	StatusAddress string               `mapstructure:"statusAddress"`
}

// ServiceSection describes the service registration
type ServiceSection struct {
	Name             string   `mapstructure:"name"`
	DisplayName      string   `mapstructure:"displayName"`
	Description      string   `mapstructure:"description"`
	StartType        string   `mapstructure:"startType"`
	ErrorControl     string   `mapstructure:"errorControl"`
	Accept           []string `mapstructure:"accept"`
	DelayedAutoStart bool     `mapstructure:"delayedAutoStart"`
	LogName          string   `mapstructure:"logName"`
}

// TracingSection enables jaeger spans for control events
type TracingSection struct {
	Enabled bool `mapstructure:"enabled"`
}

// NotificationsSection selects the device classes and power settings to subscribe to
type NotificationsSection struct {
	DeviceClasses []uuid.UUID   `mapstructure:"deviceClasses"`
	PowerSettings []uuid.UUID   `mapstructure:"powerSettings"`
	PollInterval  time.Duration `mapstructure:"pollInterval"`
}

// ConsoleSection configures interactive runs
type ConsoleSection struct {
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// Load reads the configuration file at path.  An empty path yields the defaults, after
// environment overrides.
func Load(path string) (*File, error) {
	log.Tracef(">>>>> Load, path=%s", path)
	defer log.Trace("<<<<< Load")

	file := &File{}
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err = Parse(data, file); err != nil {
			return nil, fmt.Errorf("invalid configuration file %s: %v", path, err)
		}
	}
	file.applyEnv()
	file.applyDefaults()
	return file, nil
}

// Parse decodes YAML configuration data into file
func Parse(data []byte, file *File) error {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToUUIDHookFunc(),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           file,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func stringToUUIDHookFunc() mapstructure.DecodeHookFuncType {
	uuidType := reflect.TypeOf(uuid.UUID{})
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != uuidType {
			return data, nil
		}
		return uuid.FromString(data.(string))
	}
}

func (f *File) applyEnv() {
	if name := os.Getenv(serviceNameEnv); name != "" {
		f.Service.Name = name
	}
	if address := os.Getenv(statusAddressEnv); address != "" {
		f.StatusAddress = address
	}
}

func (f *File) applyDefaults() {
	if f.Log.Level == "" {
		f.Log.Level = log.DefaultLogLevel
	}
	if f.Log.Format == "" {
		f.Log.Format = log.DefaultLogFormat
	}
	if f.Log.MaxFiles == 0 {
		f.Log.MaxFiles = log.DefaultMaxLogFiles
	}
	if f.Log.MaxSizeMiB == 0 {
		f.Log.MaxSizeMiB = log.DefaultMaxLogSize
	}
	if f.Notifications.PollInterval <= 0 {
		f.Notifications.PollInterval = DefaultPollInterval
	}
	if f.Console.PollInterval <= 0 {
		f.Console.PollInterval = DefaultConsolePollInterval
	}
}

// ServiceConfig converts the service section into a service.Config.  Unset fields keep the
// service package defaults.
func (f *File) ServiceConfig() (service.Config, error) {
	cfg := service.Config{
		Name:             f.Service.Name,
		DisplayName:      f.Service.DisplayName,
		Description:      f.Service.Description,
		DelayedAutoStart: f.Service.DelayedAutoStart,
		LogName:          f.Service.LogName,
		DeviceClasses:    f.Notifications.DeviceClasses,
		PowerSettings:    f.Notifications.PowerSettings,
	}
	var err error
	if f.Service.StartType != "" {
		if cfg.StartType, err = service.ParseStartType(f.Service.StartType); err != nil {
			return cfg, err
		}
	}
	if f.Service.ErrorControl != "" {
		if cfg.ErrorControl, err = service.ParseErrorControl(f.Service.ErrorControl); err != nil {
			return cfg, err
		}
	}
	if len(f.Service.Accept) > 0 {
		if cfg.AcceptedControls, err = service.ParseAccepted(f.Service.Accept); err != nil {
			return cfg, err
		}
	}
	return cfg.WithDefaults(), cfg.Validate()
}

// TracingService returns the name spans are reported under, or "" when tracing is disabled
func (f *File) TracingService() string {
	if !f.Tracing.Enabled {
		return ""
	}
	return f.Service.Name
}
