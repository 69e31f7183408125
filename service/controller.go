// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package service

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/svcerrors"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

const (
	// ERROR_INVALID_FUNCTION, reported when Initialize refuses to start
	initializeFailedExitCode = 1
	// Reported as the service specific exit code when Initialize refuses to start
	initializeFailedServiceExitCode = 1

	// User defined control codes
	customControlFirst ControlCode = 128
	customControlLast  ControlCode = 255
)

type options struct {
	decoder  *notification.Decoder
	tracer   opentracing.Tracer
	waitHint time.Duration
}

// Option configures a Controller
type Option func(*options)

// WithDecoder sets the decoder used for device, power and session payloads
func WithDecoder(decoder *notification.Decoder) Option {
	return func(o *options) { o.decoder = decoder }
}

// WithTracer sets the tracer used for control spans.  The global tracer is used by default.
func WithTracer(tracer opentracing.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithWaitHint overrides the wait hint reported with pending states
func WithWaitHint(waitHint time.Duration) Option {
	return func(o *options) {
		if waitHint > 0 {
			o.waitHint = waitHint
		}
	}
}

// Controller is the service control state machine.  It owns the status record, maps every
// control code to its hook and reports each transition through the StatusPublisher.  Control
// events are expected one at a time, as the host delivers them; Status and RequestAdditionalTime
// may be called from any goroutine.
type Controller struct {
	cfg       Config
	hooks     Hooks
	publisher StatusPublisher
	decoder   *notification.Decoder
	tracer    opentracing.Tracer
	waitHint  time.Duration
	sink      *log.LazySink

	lock       sync.Mutex
	status     Status
	handle     StatusHandle
	registered bool
	ran        bool
	terminated bool
	extending  bool
}

// NewController returns a controller for a stopped service.  Unset configuration fields take
// their defaults.
func NewController(cfg Config, hooks Hooks, publisher StatusPublisher, opts ...Option) *Controller {
	o := &options{waitHint: DefaultWaitHint}
	for _, opt := range opts {
		opt(o)
	}
	if o.decoder == nil {
		o.decoder = &notification.Decoder{}
	}
	if o.tracer == nil {
		o.tracer = opentracing.GlobalTracer()
	}

	cfg = cfg.WithDefaults()
	return &Controller{
		cfg:       cfg,
		hooks:     hooks,
		publisher: publisher,
		decoder:   o.decoder,
		tracer:    o.tracer,
		waitHint:  o.waitHint,
		sink:      log.NewLazySink(cfg.Name, cfg.LoggerFactory),
		status: Status{
			ServiceType: cfg.ServiceType,
			State:       Stopped,
		},
	}
}

// Config returns the effective configuration
func (c *Controller) Config() Config {
	return c.cfg
}

// Decoder returns the decoder used for notification payloads
func (c *Controller) Decoder() *notification.Decoder {
	return c.decoder
}

// Status returns a snapshot of the status record
func (c *Controller) Status() Status {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.status
}

// Handle returns the status handle obtained by Run, or 0 before that
func (c *Controller) Handle() StatusHandle {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.handle
}

// Run is the service entry point.  It registers with the host, runs Initialize and, if that
// succeeds, reports Running and invokes Start.  It may only be called once.
func (c *Controller) Run(args []string) error {
	log.Tracef(">>>>> Run, service=%s args=%v", c.cfg.Name, log.Scrubber(args))
	defer log.Trace("<<<<< Run")

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.lock.Lock()
	if c.ran || c.terminated {
		c.lock.Unlock()
		return svcerrors.Errorf(svcerrors.StartupFailure, "service %s has already been started", c.cfg.Name)
	}
	c.ran = true
	handle, err := c.publisher.Register(c.cfg.Name)
	if err != nil {
		c.lock.Unlock()
		return svcerrors.New(svcerrors.StartupFailure, err)
	}
	c.handle = handle
	c.registered = true
	c.setPendingLocked(StartPending)
	err = c.reportLocked()
	c.lock.Unlock()
	if err != nil {
		return svcerrors.New(svcerrors.StartupFailure, err)
	}

	if !c.initialize(args) {
		c.lock.Lock()
		c.terminated = true
		c.setStableLocked(Stopped)
		c.status.Win32ExitCode = initializeFailedExitCode
		c.status.ServiceSpecificExitCode = initializeFailedServiceExitCode
		err = c.reportLocked()
		c.lock.Unlock()
		c.Log(log.SeverityError, fmt.Sprintf("%s failed to initialize", c.cfg.Name))
		if err != nil {
			log.Errorf("unable to report failed start, err=%v", err)
		}
		return svcerrors.Errorf(svcerrors.StartupFailure, "service %s failed to initialize", c.cfg.Name)
	}

	c.lock.Lock()
	c.setStableLocked(Running)
	err = c.reportLocked()
	c.lock.Unlock()
	if err != nil {
		return err
	}
	log.Infof("service %s is running", c.cfg.Name)

	if c.hooks.Start != nil {
		c.invoke(Start, func() { c.hooks.Start(args) })
	}
	return nil
}

func (c *Controller) initialize(args []string) (ok bool) {
	if c.hooks.Initialize == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Initialize hook panicked, err=%v\n%s", r, debug.Stack())
			ok = false
		}
	}()
	return c.hooks.Initialize(args)
}

// HandleControl is the host boundary: it dispatches ev and always acknowledges it with NO_ERROR.
func (c *Controller) HandleControl(ev ControlEvent) uint32 {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("control %v failed, err=%v\n%s", ev.Code, r, debug.Stack())
		}
	}()
	if err := c.Dispatch(ev); err != nil {
		log.Errorf("control %v failed, err=%v", ev.Code, err)
	}
	return 0
}

// Dispatch maps one control event to its hook.  It returns an error only when the status could
// not be reported; failures inside hooks are logged and never change the reported state.
func (c *Controller) Dispatch(ev ControlEvent) (err error) {
	log.Tracef(">>>>> Dispatch, code=%v eventType=0x%X", ev.Code, ev.EventType)
	defer log.Trace("<<<<< Dispatch")

	span := c.tracer.StartSpan("control." + ev.Code.String())
	span.SetTag("control.code", uint32(ev.Code))
	span.SetTag("control.eventType", ev.EventType)
	defer func() {
		if err != nil {
			ext.Error.Set(span, true)
			span.SetTag("error.message", err.Error())
		}
		span.Finish()
	}()

	switch ev.Code {
	case Stop:
		return c.stop(ev.Code, c.hooks.Stop)
	case Shutdown:
		return c.stop(ev.Code, c.hooks.Shutdown)
	case Pause:
		return c.transition(ev.Code, Paused, c.hooks.Pause)
	case Continue:
		return c.transition(ev.Code, Running, c.hooks.Continue)
	case Interrogate:
		return c.transition(ev.Code, 0, c.hooks.Interrogate)
	case PreShutdown:
		return c.transition(ev.Code, 0, c.hooks.PreShutdown)
	case ParamChange:
		c.customCommand(ev.Code)
	case NetBindAdd, NetBindRemove, NetBindEnable, NetBindDisable:
		if c.accepting(ev.Code) && c.hooks.NetBind != nil {
			c.invoke(ev.Code, func() { c.hooks.NetBind(ev.Code) })
		}
	case DeviceEvent:
		c.deliver(ev.Code, c.decodeDevice(ev))
	case HardwareProfileChange:
		change := notification.HardwareProfileChange(ev.EventType)
		c.deliver(ev.Code, &notification.DeviceEvent{HardwareProfile: &change})
	case PowerEvent:
		c.deliver(ev.Code, c.decodePower(ev))
	case SessionChange:
		c.deliver(ev.Code, c.decodeSession(ev))
	case TimeChange:
		c.timeChange(ev)
	case Start:
		log.Warnf("service %s can only be started through Run", c.cfg.Name)
	default:
		if ev.Code >= customControlFirst && ev.Code <= customControlLast {
			c.customCommand(ev.Code)
			return nil
		}
		log.Infof("unhandled control %v, eventType=0x%X", ev.Code, ev.EventType)
	}
	return nil
}

// DispatchRecord delivers an already decoded notification to the matching hook
func (c *Controller) DispatchRecord(record notification.Record) {
	if record == nil {
		return
	}
	span := c.tracer.StartSpan("notification." + record.Kind().String())
	defer span.Finish()

	switch record.(type) {
	case *notification.DeviceEvent:
		c.deliver(DeviceEvent, record)
	case *notification.PowerEvent:
		c.deliver(PowerEvent, record)
	case *notification.SessionEvent:
		c.deliver(SessionChange, record)
	default:
		log.Infof("unhandled notification %v", record.Kind())
	}
}

// transition sets the state (0 keeps it), reports and then invokes hook
func (c *Controller) transition(code ControlCode, state State, hook func()) error {
	c.lock.Lock()
	if code != Interrogate && (c.terminated || !c.ran) {
		c.lock.Unlock()
		log.Infof("ignoring %v, service %s is not running", code, c.cfg.Name)
		return nil
	}
	if state != 0 {
		c.setStableLocked(state)
	}
	if code == PreShutdown {
		c.extending = true
	}
	err := c.reportLocked()
	c.lock.Unlock()

	if err == nil && hook != nil {
		c.invoke(code, hook)
	}
	if code == PreShutdown {
		c.lock.Lock()
		c.extending = false
		c.lock.Unlock()
	}
	return err
}

// stop reports StopPending while hook runs, then Stopped.  The service cannot leave Stopped.
func (c *Controller) stop(code ControlCode, hook func()) error {
	c.lock.Lock()
	if !c.ran {
		c.lock.Unlock()
		log.Infof("ignoring %v, service %s has not been started", code, c.cfg.Name)
		return nil
	}
	if c.terminated {
		c.lock.Unlock()
		log.Infof("ignoring %v, service %s is already stopped", code, c.cfg.Name)
		return nil
	}
	c.terminated = true
	c.extending = true
	c.setPendingLocked(StopPending)
	err := c.reportLocked()
	c.lock.Unlock()

	if err == nil && hook != nil {
		c.invoke(code, hook)
	}

	c.lock.Lock()
	c.extending = false
	c.setStableLocked(Stopped)
	if stoppedErr := c.reportLocked(); err == nil {
		err = stoppedErr
	}
	c.lock.Unlock()
	log.Infof("service %s stopped (%v)", c.cfg.Name, code)
	return err
}

// RequestAdditionalTime tells the host a pending transition needs up to wait more.  It only has
// an effect while a transition is pending or a Stop, Shutdown or PreShutdown hook is running.
func (c *Controller) RequestAdditionalTime(wait time.Duration) error {
	log.Tracef(">>>>> RequestAdditionalTime, wait=%v", wait)
	defer log.Trace("<<<<< RequestAdditionalTime")

	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.status.State.Pending() && !c.extending {
		log.Debugf("no pending transition, state=%v", c.status.State)
		return nil
	}
	c.status.CheckPoint++
	c.status.WaitHint = uint32(wait / time.Millisecond)
	return c.reportLocked()
}

func (c *Controller) setPendingLocked(state State) {
	c.status.State = state
	c.status.CheckPoint++
	if c.status.CheckPoint == 0 {
		c.status.CheckPoint = 1
	}
	c.status.WaitHint = uint32(c.waitHint / time.Millisecond)
}

func (c *Controller) setStableLocked(state State) {
	c.status.State = state
	c.status.CheckPoint = 0
	c.status.WaitHint = 0
}

// reportLocked publishes the status record.  Nothing is published before Run registered the
// service.
func (c *Controller) reportLocked() error {
	switch c.status.State {
	case StartPending, StopPending, Stopped:
		c.status.Accepts = 0
	default:
		c.status.Accepts = c.cfg.AcceptedControls
	}
	if !c.registered {
		return nil
	}
	log.Tracef("reporting %v", c.status)
	if err := c.publisher.Publish(c.status); err != nil {
		return svcerrors.New(svcerrors.RuntimeFailure, err)
	}
	return nil
}

func (c *Controller) accepting(code ControlCode) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.ran || c.terminated {
		log.Debugf("ignoring %v, service %s is not running", code, c.cfg.Name)
		return false
	}
	return true
}

// invoke runs a hook, containing any panic it raises
func (c *Controller) invoke(code ControlCode, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("%v hook of %s failed: %v", code, c.cfg.Name, r)
			log.Errorf("%s\n%s", msg, debug.Stack())
			c.Log(log.SeverityError, msg)
		}
	}()
	hook()
}

func (c *Controller) customCommand(code ControlCode) {
	if c.accepting(code) && c.hooks.CustomCommand != nil {
		c.invoke(code, func() { c.hooks.CustomCommand(code) })
	}
}

func (c *Controller) deliver(code ControlCode, record notification.Record) {
	if !c.accepting(code) {
		return
	}
	log.Debugf("%v: %v", code, record)
	switch r := record.(type) {
	case *notification.DeviceEvent:
		if r.HardwareProfile != nil && r.Event == nil {
			if c.hooks.HardwareProfileChange != nil {
				c.invoke(HardwareProfileChange, func() { c.hooks.HardwareProfileChange(*r.HardwareProfile) })
			}
			return
		}
		if c.hooks.DeviceEvent != nil {
			c.invoke(code, func() { c.hooks.DeviceEvent(r) })
		}
	case *notification.PowerEvent:
		if c.hooks.PowerEvent != nil {
			c.invoke(code, func() { c.hooks.PowerEvent(r) })
		}
	case *notification.SessionEvent:
		if c.hooks.SessionChange != nil {
			c.invoke(code, func() { c.hooks.SessionChange(r) })
		}
	}
}

func (c *Controller) decodeDevice(ev ControlEvent) *notification.DeviceEvent {
	m := notification.Message{Msg: notification.WM_DEVICECHANGE, WParam: uint64(ev.EventType), Data: ev.EventData}
	if event := c.decoder.DecodeDevice(m); event != nil {
		return event
	}
	eventType := notification.DeviceEventType(ev.EventType)
	return &notification.DeviceEvent{Event: &eventType}
}

func (c *Controller) decodePower(ev ControlEvent) *notification.PowerEvent {
	m := notification.Message{Msg: notification.WM_POWERBROADCAST, WParam: uint64(ev.EventType), Data: ev.EventData}
	if event := c.decoder.DecodePower(m); event != nil {
		return event
	}
	return &notification.PowerEvent{Event: notification.PowerEventType(ev.EventType)}
}

func (c *Controller) decodeSession(ev ControlEvent) *notification.SessionEvent {
	reason := notification.SessionChangeReason(ev.EventType)
	sessionID, ok := notification.DecodeSessionNotification(ev.EventData)
	if !ok {
		log.Debugf("session change without WTSSESSION_NOTIFICATION payload, reason=%v", reason)
	}
	if event := c.decoder.DecodeSession(notification.EncodeSession(reason, sessionID)); event != nil {
		return event
	}
	return &notification.SessionEvent{Reason: reason, SessionID: sessionID}
}

func (c *Controller) timeChange(ev ControlEvent) {
	if !c.accepting(TimeChange) || c.hooks.TimeChange == nil {
		return
	}
	oldTime, newTime, ok := notification.DecodeTimeChange(ev.EventData)
	if !ok {
		log.Debugf("time change without SERVICE_TIMECHANGE_INFO payload")
	}
	c.invoke(TimeChange, func() { c.hooks.TimeChange(oldTime, newTime) })
}

// Install runs the Install hook after the service has been registered with the host
func (c *Controller) Install() (err error) {
	return c.runCLIHook(svcerrors.InstallFailure, c.hooks.Install)
}

// Uninstall runs the Uninstall hook after the service registration has been removed
func (c *Controller) Uninstall() (err error) {
	return c.runCLIHook(svcerrors.UninstallFailure, c.hooks.Uninstall)
}

func (c *Controller) runCLIHook(code svcerrors.ErrorCode, hook func() error) (err error) {
	if hook == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = svcerrors.Errorf(code, "%v", r)
		}
	}()
	if err = hook(); err != nil {
		return svcerrors.New(code, err)
	}
	return nil
}

// Log writes msg to the service log sink, creating the sink on first use
func (c *Controller) Log(severity log.Severity, msg string) {
	switch severity {
	case log.SeverityError:
		log.Error(msg)
	case log.SeverityWarning:
		log.Warn(msg)
	default:
		log.Info(msg)
	}
	if err := c.sink.Log(severity, msg); err != nil {
		log.Debugf("unable to write to the service log, err=%v", err)
	}
}

// Close releases the service log sink
func (c *Controller) Close() error {
	log.Trace(">>>>> Close")
	defer log.Trace("<<<<< Close")
	return c.sink.Close()
}
