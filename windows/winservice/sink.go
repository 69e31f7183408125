// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package winservice

import (
	"fmt"
	"sync"

	log "github.com/hpe-storage/service-host-libs/logger"
	"golang.org/x/sys/windows/svc/debug"
	"golang.org/x/sys/windows/svc/eventlog"
)

// Event identifiers written with each severity
const (
	eventIDInformation = 1
	eventIDWarning     = 2
	eventIDError       = 3
)

// logSink writes service log entries through a debug.Log, which is either the Windows event
// log or the console
type logSink struct {
	lock sync.Mutex
	elog debug.Log
}

// NewEventLogSink opens the event log source
func NewEventLogSink(source string) (log.Sink, error) {
	elog, err := eventlog.Open(source)
	if err != nil {
		return nil, fmt.Errorf("unable to open event log source %s, err=%v", source, err)
	}
	return &logSink{elog: elog}, nil
}

// NewDebugSink writes to the console in the event log format
func NewDebugSink(source string) (log.Sink, error) {
	return &logSink{elog: debug.New(source)}, nil
}

func (s *logSink) Log(severity log.Severity, msg string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.elog == nil {
		return fmt.Errorf("service log is closed")
	}
	switch severity {
	case log.SeverityError:
		return s.elog.Error(eventIDError, msg)
	case log.SeverityWarning:
		return s.elog.Warning(eventIDWarning, msg)
	default:
		return s.elog.Info(eventIDInformation, msg)
	}
}

func (s *logSink) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.elog == nil {
		return nil
	}
	err := s.elog.Close()
	s.elog = nil
	return err
}
