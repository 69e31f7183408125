// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"fmt"
	"sync"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/svcerrors"
	uuid "github.com/satori/go.uuid"
)

// RegistrationKind identifies which host API produced a registration handle
type RegistrationKind int

const (
	RegistrationDevice RegistrationKind = iota
	RegistrationPowerSetting
	RegistrationSession
)

func (k RegistrationKind) String() string {
	switch k {
	case RegistrationDevice:
		return "Device"
	case RegistrationPowerSetting:
		return "PowerSetting"
	case RegistrationSession:
		return "Session"
	}
	return fmt.Sprintf("RegistrationKind(%d)", int(k))
}

// Handle is an opaque host registration handle
type Handle uintptr

// Registration pairs a handle with the API that must release it
type Registration struct {
	Kind   RegistrationKind
	Handle Handle
}

// RegistrationSet is the set of live registrations owned by a Registry
type RegistrationSet []Registration

// Registrar subscribes an endpoint to host notifications
type Registrar interface {
	RegisterDeviceInterface(class uuid.UUID) (Handle, error)
	RegisterPowerSetting(setting uuid.UUID) (Handle, error)
	RegisterSessionNotification() (Handle, error)
	Unregister(r Registration) error
}

// Registry tracks the registrations made for one notification endpoint
type Registry struct {
	registrar Registrar
	lock      sync.Mutex
	set       RegistrationSet
}

// NewRegistry returns an empty registry backed by registrar
func NewRegistry(registrar Registrar) *Registry {
	return &Registry{registrar: registrar}
}

// Register subscribes to every device class and power setting, plus session changes.  Failed
// registrations are logged and skipped; an error is returned only if nothing could be registered.
func (r *Registry) Register(classes, settings []uuid.UUID) error {
	log.Tracef(">>>>> Register, classes=%d settings=%d", len(classes), len(settings))
	defer log.Trace("<<<<< Register")

	r.lock.Lock()
	defer r.lock.Unlock()

	attempted := 0
	for _, class := range classes {
		attempted++
		handle, err := r.registrar.RegisterDeviceInterface(class)
		if err != nil {
			log.Warnf("unable to register for device class %v, err=%v", class, err)
			continue
		}
		r.set = append(r.set, Registration{Kind: RegistrationDevice, Handle: handle})
	}
	for _, setting := range settings {
		attempted++
		handle, err := r.registrar.RegisterPowerSetting(setting)
		if err != nil {
			log.Warnf("unable to register for power setting %v, err=%v", setting, err)
			continue
		}
		r.set = append(r.set, Registration{Kind: RegistrationPowerSetting, Handle: handle})
	}
	attempted++
	if handle, err := r.registrar.RegisterSessionNotification(); err != nil {
		log.Warnf("unable to register for session notifications, err=%v", err)
	} else {
		r.set = append(r.set, Registration{Kind: RegistrationSession, Handle: handle})
	}

	if len(r.set) == 0 {
		return svcerrors.Errorf(svcerrors.StartupFailure, "no notification registration succeeded (%d attempted)", attempted)
	}
	log.Debugf("registered %d of %d notifications", len(r.set), attempted)
	return nil
}

// Registrations returns a copy of the live registration set
func (r *Registry) Registrations() RegistrationSet {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append(RegistrationSet(nil), r.set...)
}

// Close releases every registration and empties the set.  The first failure is returned after
// all handles have been attempted.
func (r *Registry) Close() error {
	log.Trace(">>>>> Close")
	defer log.Trace("<<<<< Close")

	r.lock.Lock()
	set := r.set
	r.set = nil
	r.lock.Unlock()

	var first error
	for _, registration := range set {
		if err := r.registrar.Unregister(registration); err != nil {
			log.Warnf("unable to unregister %v handle 0x%X, err=%v", registration.Kind, registration.Handle, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
