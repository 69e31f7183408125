// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

//-------------------------------------------------------------------------------------------------
//
// This winservice package hosts a service.Controller on Windows.  A client builds a Host from its
// configuration and hooks, then hands it the command line:
//
//		func main() {
//			host := winservice.New(cfg, hooks, winservice.Options{})
//			if err := host.Main(os.Args[1:]); err != nil {
//				os.Exit(1)
//			}
//		}
//
// Main installs or uninstalls the service when asked to, runs under the service control manager
// when started by it, and falls back to the interactive console driver otherwise.
//
//-------------------------------------------------------------------------------------------------

package winservice

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hpe-storage/service-host-libs/console"
	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/pump"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/hpe-storage/service-host-libs/windows/powrprof"
	"github.com/hpe-storage/service-host-libs/windows/user32"
	"github.com/hpe-storage/service-host-libs/windows/wmi"
	"github.com/hpe-storage/service-host-libs/windows/wtsapi32"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// Options tune how a Host runs
type Options struct {
	// Notification pump drain interval (pump.DefaultInterval when zero)
	PumpInterval time.Duration
	// Console key poll interval (console.DefaultPollInterval when zero)
	ConsolePollInterval time.Duration
	// Window class of the console notification window
	WindowClass string
	// Log file whose directory is restricted to administrators on install
	LogFile string
	// Usage and console output (stdout when nil)
	Output io.Writer
	// Failure actions set on install, none when empty
	RecoveryActions []mgr.RecoveryAction
	// Seconds without failure after which the failure count resets
	RecoveryResetPeriod uint32
}

// Host runs one service controller in whichever mode the process was started in
type Host struct {
	cfg        service.Config
	controller *service.Controller
	publisher  *Publisher
	opts       Options
	isService  bool
}

// NewDecoder returns a decoder wired to the Windows session, device name and power collaborators
func NewDecoder() *notification.Decoder {
	return &notification.Decoder{
		Sessions:      wtsapi32.SessionQuery{},
		FriendlyNames: wmi.FriendlyNames{},
		SchemeNames:   powrprof.SchemeNames{Fallback: wmi.PowerPlans{}},
		PowerStatus:   powrprof.PowerStatus{},
		RemoteControl: user32.RemoteControl{},
	}
}

// New builds the host and its controller.  Unless cfg names a logger factory, service runs log
// to the event log and console runs to the console.
func New(cfg service.Config, hooks service.Hooks, opts Options, controllerOpts ...service.Option) *Host {
	isService, err := svc.IsWindowsService()
	if err != nil {
		log.Warnf("unable to determine whether running as a service, err=%v", err)
	}
	if cfg.LoggerFactory == nil {
		if isService {
			cfg.LoggerFactory = NewEventLogSink
		} else {
			cfg.LoggerFactory = NewDebugSink
		}
	}
	cfg = cfg.WithDefaults()
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	publisher := NewPublisher()
	controllerOpts = append([]service.Option{service.WithDecoder(NewDecoder())}, controllerOpts...)
	return &Host{
		cfg:        cfg,
		controller: service.NewController(cfg, hooks, publisher, controllerOpts...),
		publisher:  publisher,
		opts:       opts,
		isService:  isService,
	}
}

// Controller returns the controller driven by the host
func (h *Host) Controller() *service.Controller {
	return h.controller
}

// Main dispatches on the command line (without the program name)
func (h *Host) Main(args []string) error {
	log.Tracef(">>>>> Main, args=%v", args)
	defer log.Trace("<<<<< Main")
	defer h.controller.Close()

	switch service.ParseCommand(args) {
	case service.CommandInstall:
		return h.Install()
	case service.CommandUninstall:
		return h.Uninstall()
	case service.CommandConsole:
		return h.RunConsole(context.Background(), nil)
	}

	if !h.isService {
		service.PrintUsage(h.opts.Output, filepath.Base(os.Args[0]), h.cfg)
		return h.RunConsole(context.Background(), nil)
	}
	err := h.RunService()
	if errors.Is(err, windows.ERROR_FAILED_SERVICE_CONTROLLER_CONNECT) {
		log.Infof("%s was not started by the service control manager, running interactively", h.cfg.Name)
		return h.RunConsole(context.Background(), nil)
	}
	return err
}

// RunConsole runs the service interactively until the console driver exits
func (h *Host) RunConsole(ctx context.Context, args []string) error {
	log.Trace(">>>>> RunConsole")
	defer log.Trace("<<<<< RunConsole")

	window := user32.NewWindow(h.opts.WindowClass)
	var pumpOpts []pump.Option
	if h.opts.PumpInterval > 0 {
		pumpOpts = append(pumpOpts, pump.WithInterval(h.opts.PumpInterval))
	}
	p := pump.New(window, h.controller.Decoder().Transform, pumpOpts...)
	registry := notification.NewRegistry(user32.NewWindowRegistrar(window))

	var sessionID uint32
	if err := windows.ProcessIdToSessionId(windows.GetCurrentProcessId(), &sessionID); err != nil {
		log.Debugf("unable to read the console session, err=%v", err)
	}

	driver := console.New(h.controller,
		console.WithPump(p),
		console.WithRegistry(registry),
		console.WithOutput(h.opts.Output),
		console.WithPollInterval(h.opts.ConsolePollInterval),
		console.WithSessionID(sessionID),
		console.WithArgs(args),
	)
	defer driver.Close()
	return driver.Run(ctx)
}
