// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"time"

	log "github.com/hpe-storage/service-host-libs/logger"
	uuid "github.com/satori/go.uuid"
)

// SessionQuery returns the extended attributes of a session
type SessionQuery interface {
	QuerySession(sessionID uint32) (*SessionData, error)
}

// FriendlyNameResolver maps a device interface path to a human readable device name
type FriendlyNameResolver interface {
	FriendlyName(devicePath string) (string, error)
}

// PowerSchemeNamer maps a power scheme GUID to its friendly name
type PowerSchemeNamer interface {
	PowerSchemeName(scheme uuid.UUID) (string, error)
}

// PowerStatusSource reports the current system power status
type PowerStatusSource interface {
	SystemPowerStatus() (*SystemPowerStatus, error)
}

// RemoteControlDetector reports whether the current session is being remotely controlled
type RemoteControlDetector interface {
	IsRemotelyControlled() bool
}

// Decoder turns host messages into notification records.  Every collaborator is optional; when
// one is missing (or fails) the corresponding fields are simply left empty.  The zero value is
// usable, as is a nil *Decoder.
type Decoder struct {
	Sessions      SessionQuery
	FriendlyNames FriendlyNameResolver
	SchemeNames   PowerSchemeNamer
	PowerStatus   PowerStatusSource
	RemoteControl RemoteControlDetector
	Now           func() time.Time
}

// Decode routes a message to the decoder for its category.  It never panics and returns nil when
// the message is not a notification.
func (d *Decoder) Decode(m Message) Record {
	switch m.Msg {
	case WM_DEVICECHANGE:
		if event := d.DecodeDevice(m); event != nil {
			return event
		}
	case WM_POWERBROADCAST:
		if event := d.DecodePower(m); event != nil {
			return event
		}
	case WM_WTSSESSION_CHANGE:
		if event := d.DecodeSession(m); event != nil {
			return event
		}
	default:
		if !IsStandardWindowMessage(m.Msg) {
			log.Tracef("unhandled window message 0x%X, wParam=0x%X", m.Msg, m.WParam)
		}
		return nil
	}
	log.Tracef("unhandled notification 0x%X, wParam=0x%X", m.Msg, m.WParam)
	return nil
}

// Transform adapts Decode to the pump transform signature
func (d *Decoder) Transform(m Message) (Record, bool) {
	record := d.Decode(m)
	return record, record != nil
}

func (d *Decoder) now() time.Time {
	if d == nil || d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now()
}

func (d *Decoder) friendlyName(devicePath string) string {
	if d == nil || d.FriendlyNames == nil || devicePath == "" {
		return devicePath
	}
	name, err := d.FriendlyNames.FriendlyName(devicePath)
	if err != nil || name == "" {
		log.Debugf("no friendly name for %s, err=%v", devicePath, err)
		return devicePath
	}
	return name
}

func (d *Decoder) powerSchemeName(scheme uuid.UUID) string {
	if d == nil || d.SchemeNames == nil {
		return ""
	}
	name, err := d.SchemeNames.PowerSchemeName(scheme)
	if err != nil {
		log.Debugf("unable to read power scheme name for %v, err=%v", scheme, err)
		return ""
	}
	return name
}

func (d *Decoder) systemPowerStatus() *SystemPowerStatus {
	if d == nil || d.PowerStatus == nil {
		return nil
	}
	status, err := d.PowerStatus.SystemPowerStatus()
	if err != nil {
		log.Debugf("unable to read system power status, err=%v", err)
		return nil
	}
	return status
}

func (d *Decoder) sessionData(sessionID uint32) *SessionData {
	if d == nil || d.Sessions == nil {
		return nil
	}
	data, err := d.Sessions.QuerySession(sessionID)
	if err != nil {
		log.Debugf("unable to query session %d, err=%v", sessionID, err)
		return nil
	}
	return data
}

func (d *Decoder) remotelyControlled() *bool {
	if d == nil || d.RemoteControl == nil {
		return nil
	}
	remote := d.RemoteControl.IsRemotelyControlled()
	return &remote
}
