// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package pump moves host notifications from the thread that receives them to a consumer
// goroutine.  The receiving endpoint lives on a goroutine locked to its own OS thread, so host
// callbacks are never invoked on the service dispatcher thread; a ticker drains the queue and
// hands every item to the callback in arrival order.
package pump

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpe-storage/service-host-libs/concurrent"
	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/svcerrors"
)

// DefaultInterval is the default drain period
const DefaultInterval = 2 * time.Millisecond

// Endpoint is the host object notifications are delivered to, e.g. a hidden window.  Open and
// Receive are always called on the same OS thread; Close may be called from any goroutine and
// must make Receive return.
type Endpoint interface {
	Open() error
	Receive(deliver func(notification.Message)) error
	Close() error
}

type options struct {
	interval time.Duration
}

// Option configures a Pump
type Option func(*options)

// WithInterval overrides the drain period
func WithInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// Pump is a single use notification pump.  It cannot be restarted once stopped.
type Pump[T any] struct {
	endpoint  Endpoint
	transform func(notification.Message) (T, bool)
	interval  time.Duration
	queue     *concurrent.Queue[T]

	lock     sync.Mutex
	callback func(T)
	started  bool
	stopped  bool
	draining int32

	// closed by Start once the endpoint opened or failed to
	ready        chan struct{}
	openErr      error
	stopTicker   chan struct{}
	tickerDone   chan struct{}
	receiverDone chan struct{}
}

// New returns a pump reading from endpoint.  transform runs on the receiving thread and decides
// which messages are queued.
func New[T any](endpoint Endpoint, transform func(notification.Message) (T, bool), opts ...Option) *Pump[T] {
	o := &options{interval: DefaultInterval}
	for _, opt := range opts {
		opt(o)
	}
	return &Pump[T]{
		endpoint:  endpoint,
		transform: transform,
		interval:  o.interval,
		queue:     concurrent.NewQueue[T](),
	}
}

// SetCallback sets the consumer invoked for every queued item
func (p *Pump[T]) SetCallback(callback func(T)) {
	p.lock.Lock()
	p.callback = callback
	p.lock.Unlock()
}

// Running reports whether the pump has been started and not yet stopped
func (p *Pump[T]) Running() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.started && !p.stopped
}

// Start opens the endpoint on a dedicated OS thread and starts draining.  It returns once the
// endpoint is open (or failed to open).
func (p *Pump[T]) Start() error {
	log.Trace(">>>>> Start")
	defer log.Trace("<<<<< Start")

	p.lock.Lock()
	if p.started {
		p.lock.Unlock()
		return svcerrors.New(svcerrors.StartupFailure, "notification pump already started")
	}
	p.started = true
	p.ready = make(chan struct{})
	p.stopTicker = make(chan struct{})
	p.tickerDone = make(chan struct{})
	p.receiverDone = make(chan struct{})
	p.lock.Unlock()
	defer close(p.ready)

	opened := make(chan error, 1)
	go p.receive(opened)
	if err := <-opened; err != nil {
		<-p.receiverDone
		close(p.tickerDone)
		p.lock.Lock()
		p.stopped = true
		p.openErr = err
		p.lock.Unlock()
		return svcerrors.New(svcerrors.StartupFailure, err)
	}

	go p.tick()
	log.Debugf("notification pump started, interval=%v", p.interval)
	return nil
}

func (p *Pump[T]) receive(opened chan<- error) {
	defer close(p.receiverDone)

	// Host callbacks are tied to the thread that created the endpoint
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := p.endpoint.Open(); err != nil {
		log.Errorf("unable to open notification endpoint, err=%v", err)
		opened <- err
		return
	}
	opened <- nil

	err := p.endpoint.Receive(func(m notification.Message) {
		if item, ok := p.transform(m); ok {
			p.queue.Push(item)
		}
	})
	if err != nil {
		log.Errorf("notification endpoint stopped with err=%v", err)
	}
}

func (p *Pump[T]) tick() {
	defer close(p.tickerDone)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopTicker:
			return
		case <-ticker.C:
			p.Flush()
		}
	}
}

// Flush delivers every queued item on the calling goroutine.  It returns immediately if a drain
// is already in progress.  Items queued without a callback set is a programming error and panics.
func (p *Pump[T]) Flush() {
	if !atomic.CompareAndSwapInt32(&p.draining, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&p.draining, 0)

	items := p.queue.DrainAll()
	if len(items) == 0 {
		return
	}
	p.lock.Lock()
	callback := p.callback
	p.lock.Unlock()
	if callback == nil {
		panic("notification pump callback is not set")
	}
	for _, item := range items {
		callback(item)
	}
}

// Stop stops draining, closes the endpoint and waits for both goroutines to exit.  Items still
// queued are discarded.  Calling Stop more than once is harmless.  A Stop racing Start waits for
// the endpoint to finish opening.
func (p *Pump[T]) Stop() error {
	log.Trace(">>>>> Stop")
	defer log.Trace("<<<<< Stop")

	p.lock.Lock()
	if !p.started || p.stopped {
		p.lock.Unlock()
		return nil
	}
	p.stopped = true
	p.lock.Unlock()

	<-p.ready
	p.lock.Lock()
	openErr := p.openErr
	p.lock.Unlock()
	if openErr != nil {
		return nil
	}

	close(p.stopTicker)
	<-p.tickerDone

	err := p.endpoint.Close()
	if err != nil {
		log.Warnf("unable to close notification endpoint, err=%v", err)
	}
	<-p.receiverDone

	if dropped := p.queue.DrainAll(); len(dropped) > 0 {
		log.Debugf("discarded %d pending notifications", len(dropped))
	}
	return err
}
