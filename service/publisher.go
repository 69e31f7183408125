// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package service

import (
	"sync"

	log "github.com/hpe-storage/service-host-libs/logger"
)

// LogPublisher is the status publisher used when there is no host: every report is logged and
// the last one kept.
type LogPublisher struct {
	lock    sync.Mutex
	name    string
	history []Status
}

// NewLogPublisher returns a publisher for interactive runs
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Register(name string) (StatusHandle, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.name = name
	return StatusHandle(1), nil
}

func (p *LogPublisher) Publish(status Status) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.history = append(p.history, status)
	log.Infof("%s: %v", p.name, status)
	return nil
}

// History returns every status published so far
func (p *LogPublisher) History() []Status {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]Status(nil), p.history...)
}
