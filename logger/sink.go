// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package logger

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Severity of a service log entry
type Severity int

const (
	SeverityInformation Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInformation:
		return "Information"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Sink receives the messages a service writes to its own log, e.g. the Windows event log
type Sink interface {
	Log(severity Severity, msg string) error
	Close() error
}

// SinkFactory creates a sink for the named log source
type SinkFactory func(source string) (Sink, error)

// LazySink creates its sink on first use and closes it at most once.  A nil factory, or one that
// fails, leaves the sink unavailable and messages are only written to the process log.
type LazySink struct {
	source  string
	factory SinkFactory

	lock   sync.Mutex
	sink   Sink
	err    error
	tried  bool
	closed bool
}

// NewLazySink returns a sink created on demand by factory
func NewLazySink(source string, factory SinkFactory) *LazySink {
	return &LazySink{source: source, factory: factory}
}

func (l *LazySink) get() Sink {
	if !l.tried && !l.closed && l.factory != nil {
		l.tried = true
		l.sink, l.err = l.factory(l.source)
		if l.err != nil {
			log.Warnf("unable to create log sink for %s, err=%v", l.source, l.err)
		}
	}
	return l.sink
}

// Log writes msg to the sink, creating it if required
func (l *LazySink) Log(severity Severity, msg string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return fmt.Errorf("log sink %s is closed", l.source)
	}
	sink := l.get()
	if sink == nil {
		return l.err
	}
	return sink.Log(severity, msg)
}

// Close releases the sink if it was ever created
func (l *LazySink) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.sink == nil {
		return nil
	}
	err := l.sink.Close()
	l.sink = nil
	return err
}

// ConsoleSink writes service log entries to the process logger
type ConsoleSink struct {
	entry *log.Entry
}

// NewConsoleSink is a SinkFactory for interactive runs
func NewConsoleSink(source string) (Sink, error) {
	return &ConsoleSink{entry: log.WithField("source", source)}, nil
}

func (c *ConsoleSink) Log(severity Severity, msg string) error {
	switch severity {
	case SeverityError:
		c.entry.Error(msg)
	case SeverityWarning:
		c.entry.Warn(msg)
	default:
		c.entry.Info(msg)
	}
	return nil
}

func (c *ConsoleSink) Close() error {
	return nil
}
