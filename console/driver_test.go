// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/pump"
	"github.com/hpe-storage/service-host-libs/service"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	lock    sync.Mutex
	calls   []string
	session *notification.SessionEvent
	device  *notification.DeviceEvent
}

func (r *recorder) record(name string) {
	r.lock.Lock()
	r.calls = append(r.calls, name)
	r.lock.Unlock()
}

func (r *recorder) recorded() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) hooks() service.Hooks {
	return service.Hooks{
		Start:       func([]string) { r.record("Start") },
		Stop:        func() { r.record("Stop") },
		Pause:       func() { r.record("Pause") },
		Continue:    func() { r.record("Continue") },
		Interrogate: func() { r.record("Interrogate") },
		Shutdown:    func() { r.record("Shutdown") },
		SessionChange: func(e *notification.SessionEvent) {
			r.lock.Lock()
			r.session = e
			r.lock.Unlock()
			r.record("SessionChange")
		},
		PowerEvent: func(*notification.PowerEvent) { r.record("PowerEvent") },
		DeviceEvent: func(e *notification.DeviceEvent) {
			r.lock.Lock()
			r.device = e
			r.lock.Unlock()
			r.record("DeviceEvent")
		},
		CustomCommand: func(code service.ControlCode) { r.record(code.String()) },
	}
}

func newController(r *recorder) *service.Controller {
	return service.NewController(service.Config{Name: "ConsoleTest"}, r.hooks(), service.NewLogPublisher())
}

func TestDriverKeys(t *testing.T) {
	r := &recorder{}
	controller := newController(r)
	var out bytes.Buffer
	d := New(controller,
		WithKeyReader(NewKeyReader(strings.NewReader("1345890x7\r6q2"))),
		WithOutput(&out),
		WithPollInterval(time.Millisecond),
		WithSessionID(3),
	)
	defer d.Close()

	require.NoError(t, d.Run(context.Background()))

	// keys after q are not read
	assert.Equal(t, []string{
		"Start", "Pause", "Continue", "Interrogate", "SessionChange", "PowerEvent", "ParamChange", "Shutdown",
	}, r.recorded())
	require.NotNil(t, r.session)
	assert.Equal(t, notification.WTS_SESSION_LOCK, r.session.Reason)
	assert.Equal(t, uint32(3), r.session.SessionID)
	assert.Equal(t, service.Stopped, controller.Status().State)

	assert.Contains(t, out.String(), "Unknown key 'x'")
	assert.Equal(t, 2, strings.Count(out.String(), "Esc, q  Exit"))
}

func TestDriverEndOfInput(t *testing.T) {
	r := &recorder{}
	d := New(newController(r),
		WithKeyReader(NewKeyReader(strings.NewReader("1"))),
		WithOutput(&bytes.Buffer{}),
		WithPollInterval(time.Millisecond),
	)
	defer d.Close()

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []string{"Start"}, r.recorded())
}

// blockingReader never returns
type blockingReader struct{}

func (blockingReader) ReadKey() (rune, bool, error) { return 0, false, nil }
func (blockingReader) Close() error                 { return nil }

func TestDriverContextCancel(t *testing.T) {
	d := New(newController(&recorder{}), WithKeyReader(blockingReader{}), WithOutput(&bytes.Buffer{}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, d.Run(ctx))
}

// channelEndpoint delivers the messages written to it
type channelEndpoint struct {
	messages chan notification.Message
	done     chan struct{}
	once     sync.Once
}

func (e *channelEndpoint) Open() error { return nil }

func (e *channelEndpoint) Receive(deliver func(notification.Message)) error {
	for {
		select {
		case <-e.done:
			return nil
		case m := <-e.messages:
			deliver(m)
		}
	}
}

func (e *channelEndpoint) Close() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

type fakeRegistry struct {
	classes []uuid.UUID
	closed  bool
}

func (f *fakeRegistry) Register(classes, settings []uuid.UUID) error {
	f.classes = classes
	return nil
}

func (f *fakeRegistry) Close() error {
	f.closed = true
	return nil
}

func TestDriverForwardsNotifications(t *testing.T) {
	r := &recorder{}
	controller := newController(r)
	endpoint := &channelEndpoint{messages: make(chan notification.Message, 1), done: make(chan struct{})}
	p := pump.New(endpoint, controller.Decoder().Transform, pump.WithInterval(time.Millisecond))
	registry := &fakeRegistry{}

	keys := &scriptedKeys{keys: make(chan rune, 2)}
	d := New(controller,
		WithKeyReader(keys),
		WithOutput(&bytes.Buffer{}),
		WithPump(p),
		WithRegistry(registry),
		WithPollInterval(time.Millisecond),
	)
	keys.keys <- '1'

	done := make(chan error)
	go func() { done <- d.Run(context.Background()) }()

	assert.Eventually(t, func() bool { return controller.Status().State == service.Running }, 5*time.Second, time.Millisecond)
	endpoint.messages <- notification.EncodeDeviceInterface(notification.DBT_DEVICEARRIVAL,
		notification.GUID_DEVINTERFACE_USB_DEVICE, `\\?\USB#VID_0781&PID_5581#4C530001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`)
	assert.Eventually(t, func() bool {
		r.lock.Lock()
		defer r.lock.Unlock()
		return r.device != nil
	}, 5*time.Second, time.Millisecond)

	keys.keys <- 'q'
	require.NoError(t, <-done)
	assert.Len(t, registry.classes, len(notification.DefaultDeviceClasses()))

	require.NoError(t, d.Close())
	assert.True(t, registry.closed)
	assert.False(t, p.Running())
}

type scriptedKeys struct {
	keys chan rune
}

func (s *scriptedKeys) ReadKey() (rune, bool, error) {
	select {
	case key := <-s.keys:
		return key, true, nil
	default:
		return 0, false, nil
	}
}

func (s *scriptedKeys) Close() error { return nil }
