// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package console runs a service interactively when there is no host dispatcher.  Keys typed in
// the console are turned into control events and fed through the same entry point the host
// uses, while a notification pump delivers device, power and session broadcasts.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/pump"
	"github.com/hpe-storage/service-host-libs/service"
	uuid "github.com/satori/go.uuid"
)

const (
	// DefaultPollInterval is how often a key is read
	DefaultPollInterval = 100 * time.Millisecond
	// Extension requested by the additional time key
	additionalTime = 5 * time.Second

	keyEscape = 0x1b
)

// Controller is the part of service.Controller the driver needs
type Controller interface {
	Run(args []string) error
	HandleControl(ev service.ControlEvent) uint32
	DispatchRecord(record notification.Record)
	RequestAdditionalTime(wait time.Duration) error
	Status() service.Status
	Config() service.Config
	Log(severity log.Severity, msg string)
	Close() error
}

// NotificationRegistry subscribes the pump endpoint to host notifications
type NotificationRegistry interface {
	Register(classes, settings []uuid.UUID) error
	Close() error
}

type options struct {
	keys      KeyReader
	out       io.Writer
	pump      *pump.Pump[notification.Record]
	registry  NotificationRegistry
	interval  time.Duration
	args      []string
	sessionID uint32
}

// Option configures a Driver
type Option func(*options)

// WithKeyReader sets the key source.  Stdin is used by default.
func WithKeyReader(keys KeyReader) Option {
	return func(o *options) { o.keys = keys }
}

// WithOutput sets where the menu and status are written.  Stdout is used by default.
func WithOutput(out io.Writer) Option {
	return func(o *options) { o.out = out }
}

// WithPump attaches a notification pump whose records are forwarded to the controller
func WithPump(p *pump.Pump[notification.Record]) Option {
	return func(o *options) { o.pump = p }
}

// WithRegistry subscribes the pump endpoint once it is open
func WithRegistry(registry NotificationRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// WithPollInterval overrides the key poll interval
func WithPollInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// WithArgs sets the arguments passed to Initialize and Start
func WithArgs(args []string) Option {
	return func(o *options) { o.args = args }
}

// WithSessionID sets the session the synthetic session change refers to
func WithSessionID(sessionID uint32) Option {
	return func(o *options) { o.sessionID = sessionID }
}

// Driver emulates the host dispatcher from the keyboard
type Driver struct {
	controller Controller
	keys       KeyReader
	out        io.Writer
	pump       *pump.Pump[notification.Record]
	registry   NotificationRegistry
	interval   time.Duration
	args       []string
	sessionID  uint32
}

// New returns a driver for controller
func New(controller Controller, opts ...Option) *Driver {
	o := &options{interval: DefaultPollInterval, out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}
	return &Driver{
		controller: controller,
		keys:       o.keys,
		out:        o.out,
		pump:       o.pump,
		registry:   o.registry,
		interval:   o.interval,
		args:       o.args,
		sessionID:  o.sessionID,
	}
}

// Run reads keys until Esc or q is pressed, the input ends or ctx is cancelled
func (d *Driver) Run(ctx context.Context) error {
	log.Trace(">>>>> Run")
	defer log.Trace("<<<<< Run")

	if d.keys == nil {
		keys, err := NewTerminalKeyReader(os.Stdin)
		if err != nil {
			return err
		}
		d.keys = keys
	}
	d.startNotifications()
	d.printMenu()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			key, ok, err := d.keys.ReadKey()
			if err == io.EOF {
				log.Infof("console input closed")
				return nil
			}
			if err != nil {
				return err
			}
			if ok && d.handleKey(key) {
				return nil
			}
		}
	}
}

func (d *Driver) startNotifications() {
	if d.pump == nil {
		return
	}
	d.pump.SetCallback(d.controller.DispatchRecord)
	if err := d.pump.Start(); err != nil {
		log.Warnf("running without notifications, err=%v", err)
		return
	}
	if d.registry != nil {
		cfg := d.controller.Config()
		if err := d.registry.Register(cfg.DeviceClasses, cfg.PowerSettings); err != nil {
			log.Warnf("unable to register for notifications, err=%v", err)
		}
	}
}

// handleKey runs the action bound to key and reports whether the driver should exit
func (d *Driver) handleKey(key rune) bool {
	log.Tracef("key %q", key)
	switch key {
	case '1':
		if err := d.controller.Run(d.args); err != nil {
			fmt.Fprintf(d.out, "Start failed: %v\n", err)
		}
	case '2':
		d.control(service.ControlEvent{Code: service.Stop})
	case '3':
		d.control(service.ControlEvent{Code: service.Pause})
	case '4':
		d.control(service.ControlEvent{Code: service.Continue})
	case '5':
		d.control(service.ControlEvent{Code: service.Interrogate})
	case '6':
		d.control(service.ControlEvent{Code: service.Shutdown})
	case '7':
		if err := d.controller.RequestAdditionalTime(additionalTime); err != nil {
			fmt.Fprintf(d.out, "Additional time request failed: %v\n", err)
		}
	case '8':
		d.control(service.ControlEvent{
			Code:      service.SessionChange,
			EventType: uint32(notification.WTS_SESSION_LOCK),
			EventData: notification.EncodeSessionNotification(d.sessionID),
		})
	case '9':
		d.control(service.ControlEvent{Code: service.PowerEvent, EventType: uint32(notification.PBT_APMPOWERSTATUSCHANGE)})
	case '0':
		d.control(service.ControlEvent{Code: service.ParamChange})
	case 'l', 'L':
		d.controller.Log(log.SeverityInformation, fmt.Sprintf("%s console log entry", d.controller.Config().Name))
	case '\r', '\n':
		d.printMenu()
	case keyEscape, 'q', 'Q':
		return true
	default:
		fmt.Fprintf(d.out, "Unknown key %q, press Enter for the menu\n", key)
	}
	return false
}

func (d *Driver) control(ev service.ControlEvent) {
	d.controller.HandleControl(ev)
	fmt.Fprintf(d.out, "%v -> %v\n", ev.Code, d.controller.Status().State)
}

func (d *Driver) printMenu() {
	cfg := d.controller.Config()
	fmt.Fprintf(d.out, "\n%s (%s) - %v\n", cfg.DisplayName, cfg.Name, d.controller.Status().State)
	fmt.Fprint(d.out, `  1  Start
  2  Stop
  3  Pause
  4  Continue
  5  Interrogate
  6  Shutdown
  7  Request additional time
  8  Session change (lock)
  9  Power event (status change)
  0  Parameter change
  l  Write to the service log
  Esc, q  Exit
`)
}

// Close releases the notification registrations, stops the pump and closes the service log
func (d *Driver) Close() error {
	log.Trace(">>>>> Close")
	defer log.Trace("<<<<< Close")

	var errs []error
	if d.registry != nil {
		errs = append(errs, d.registry.Close())
	}
	if d.pump != nil {
		errs = append(errs, d.pump.Stop())
	}
	if d.keys != nil {
		errs = append(errs, d.keys.Close())
	}
	errs = append(errs, d.controller.Close())
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
