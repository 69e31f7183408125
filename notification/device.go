// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"fmt"
	"strings"

	log "github.com/hpe-storage/service-host-libs/logger"
	uuid "github.com/satori/go.uuid"
)

// DeviceEventType is the wParam of WM_DEVICECHANGE (or the event type of a
// SERVICE_CONTROL_DEVICEEVENT request)
type DeviceEventType uint32

const (
	DBT_DEVICEARRIVAL           DeviceEventType = 0x8000
	DBT_DEVICEQUERYREMOVE       DeviceEventType = 0x8001
	DBT_DEVICEQUERYREMOVEFAILED DeviceEventType = 0x8002
	DBT_DEVICEREMOVEPENDING     DeviceEventType = 0x8003
	DBT_DEVICEREMOVECOMPLETE    DeviceEventType = 0x8004
	DBT_DEVICETYPESPECIFIC      DeviceEventType = 0x8005
	DBT_CUSTOMEVENT             DeviceEventType = 0x8006
)

var deviceEventNames = map[DeviceEventType]string{
	DBT_DEVICEARRIVAL:           "DeviceArrival",
	DBT_DEVICEQUERYREMOVE:       "DeviceQueryRemove",
	DBT_DEVICEQUERYREMOVEFAILED: "DeviceQueryRemoveFailed",
	DBT_DEVICEREMOVEPENDING:     "DeviceRemovePending",
	DBT_DEVICEREMOVECOMPLETE:    "DeviceRemoveComplete",
	DBT_DEVICETYPESPECIFIC:      "DeviceTypeSpecific",
	DBT_CUSTOMEVENT:             "CustomEvent",
}

func (e DeviceEventType) String() string {
	if name, ok := deviceEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("DeviceEvent(0x%X)", uint32(e))
}

// HardwareProfileChange is the event type of a hardware profile notification
type HardwareProfileChange uint32

const (
	DBT_QUERYCHANGECONFIG    HardwareProfileChange = 0x0017
	DBT_CONFIGCHANGED        HardwareProfileChange = 0x0018
	DBT_CONFIGCHANGECANCELED HardwareProfileChange = 0x0019
)

func (h HardwareProfileChange) String() string {
	switch h {
	case DBT_QUERYCHANGECONFIG:
		return "QueryChangeConfig"
	case DBT_CONFIGCHANGED:
		return "ConfigChanged"
	case DBT_CONFIGCHANGECANCELED:
		return "ConfigChangeCanceled"
	}
	return fmt.Sprintf("HardwareProfileChange(0x%X)", uint32(h))
}

// DeviceType is the dbch_devicetype discriminator of DEV_BROADCAST_HDR
type DeviceType uint32

const (
	DBT_DEVTYP_OEM             DeviceType = 0
	DBT_DEVTYP_DEVNODE         DeviceType = 1
	DBT_DEVTYP_VOLUME          DeviceType = 2
	DBT_DEVTYP_PORT            DeviceType = 3
	DBT_DEVTYP_NET             DeviceType = 4
	DBT_DEVTYP_DEVICEINTERFACE DeviceType = 5
	DBT_DEVTYP_HANDLE          DeviceType = 6
)

var deviceTypeNames = map[DeviceType]string{
	DBT_DEVTYP_OEM:             "OEM",
	DBT_DEVTYP_DEVNODE:         "DevNode",
	DBT_DEVTYP_VOLUME:          "Volume",
	DBT_DEVTYP_PORT:            "Port",
	DBT_DEVTYP_NET:             "Net",
	DBT_DEVTYP_DEVICEINTERFACE: "DeviceInterface",
	DBT_DEVTYP_HANDLE:          "Handle",
}

func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DeviceType(%d)", uint32(t))
}

// VolumeFlags is dbcv_flags of DEV_BROADCAST_VOLUME
type VolumeFlags uint16

const (
	DBTF_MEDIA VolumeFlags = 0x0001 // Change affects media in drive
	DBTF_NET   VolumeFlags = 0x0002 // Logical volume is a network volume
)

func (f VolumeFlags) String() string {
	var names []string
	if f&DBTF_MEDIA != 0 {
		names = append(names, "Media")
	}
	if f&DBTF_NET != 0 {
		names = append(names, "Net")
	}
	if rest := f &^ (DBTF_MEDIA | DBTF_NET); rest != 0 {
		names = append(names, fmt.Sprintf("0x%X", uint16(rest)))
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// DeviceEvent is a decoded WM_DEVICECHANGE or SERVICE_CONTROL_DEVICEEVENT notification.  Only
// the fields relevant to the event are set.
type DeviceEvent struct {
	Event           *DeviceEventType
	HardwareProfile *HardwareProfileChange
	DeviceType      *DeviceType
	ClassGUID       *uuid.UUID  // DBT_DEVTYP_DEVICEINTERFACE
	EventGUID       *uuid.UUID  // DBT_DEVTYP_HANDLE custom events
	DeviceID        string      // Device interface path
	DeviceName      string      // Friendly name, or a readable rendering of the payload
	Drives          []string    // DBT_DEVTYP_VOLUME drive letters, e.g. "E:"
	VolumeFlags     VolumeFlags // DBT_DEVTYP_VOLUME
}

func (e *DeviceEvent) Kind() Kind { return KindDevice }

func (e *DeviceEvent) String() string {
	var sb strings.Builder
	if e.HardwareProfile != nil {
		fmt.Fprintf(&sb, " Hardware Profile: %v", *e.HardwareProfile)
	}
	if e.Event != nil {
		fmt.Fprintf(&sb, " Device Event: %v", *e.Event)
	}
	if e.DeviceType != nil {
		fmt.Fprintf(&sb, " Device Type: %v", *e.DeviceType)
	}
	if e.DeviceID != "" {
		fmt.Fprintf(&sb, " Device Id: %s", e.DeviceID)
	}
	if e.DeviceName != "" {
		fmt.Fprintf(&sb, " Device Name: %s", e.DeviceName)
	}
	return strings.TrimSpace(sb.String())
}

// DEV_BROADCAST_HDR layout
const (
	dbchSizeOffset       = 0
	dbchDeviceTypeOffset = 4
	dbchHeaderSize       = 12
)

// DecodeDevice decodes a WM_DEVICECHANGE message.  It returns nil for sub-codes that carry no
// device or hardware profile notification.
func (d *Decoder) DecodeDevice(m Message) (event *DeviceEvent) {
	if m.Msg != WM_DEVICECHANGE {
		return nil
	}

	switch HardwareProfileChange(m.WParam) {
	case DBT_QUERYCHANGECONFIG, DBT_CONFIGCHANGED, DBT_CONFIGCHANGECANCELED:
		change := HardwareProfileChange(m.WParam)
		return &DeviceEvent{HardwareProfile: &change}
	}

	eventType := DeviceEventType(m.WParam)
	if _, ok := deviceEventNames[eventType]; !ok {
		return nil
	}

	event = &DeviceEvent{Event: &eventType}
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("device payload decode failed, event=%v, err=%v", eventType, r)
			event = &DeviceEvent{Event: &eventType, DeviceType: event.DeviceType}
		}
	}()

	p := payload(m.Data)
	rawType, ok := p.uint32At(dbchDeviceTypeOffset)
	if !ok {
		return event
	}
	deviceType := DeviceType(rawType)
	event.DeviceType = &deviceType

	// Never trust bytes beyond the structure size the host declared
	if size, ok := p.uint32At(dbchSizeOffset); ok && int(size) >= dbchHeaderSize && int(size) < len(p) {
		p = p[:size]
	}

	switch deviceType {
	case DBT_DEVTYP_DEVICEINTERFACE:
		d.decodeDeviceInterface(p, event)
	case DBT_DEVTYP_HANDLE:
		decodeDeviceHandle(p, event)
	case DBT_DEVTYP_OEM:
		decodeDeviceOEM(p, event)
	case DBT_DEVTYP_PORT:
		decodeDevicePort(p, event)
	case DBT_DEVTYP_VOLUME:
		decodeDeviceVolume(p, event)
	}
	return event
}

// DEV_BROADCAST_DEVICEINTERFACE: header, dbcc_classguid, dbcc_name[]
func (d *Decoder) decodeDeviceInterface(p payload, event *DeviceEvent) {
	class, ok := p.guidAt(dbchHeaderSize)
	if !ok {
		return
	}
	name, ok := p.utf16StringAt(dbchHeaderSize + guidSize)
	if !ok {
		return
	}
	event.ClassGUID = &class
	event.DeviceID = name
	event.DeviceName = d.friendlyName(name)
}

// DEV_BROADCAST_HANDLE: header, dbch_handle, dbch_hdevnotify, dbch_eventguid, dbch_nameoffset
func decodeDeviceHandle(p payload, event *DeviceEvent) {
	handleOffset := alignUp(dbchHeaderSize, pointerSize)
	handle, ok := p.pointerAt(handleOffset)
	if !ok {
		return
	}
	event.DeviceName = fmt.Sprintf("Handle Id %d", handle)

	guidOffset := handleOffset + 2*pointerSize
	if eventGUID, ok := p.guidAt(guidOffset); ok && !uuid.Equal(eventGUID, uuid.Nil) {
		event.EventGUID = &eventGUID
	}
}

// DEV_BROADCAST_OEM: header, dbco_identifier, dbco_suppfunc
func decodeDeviceOEM(p payload, event *DeviceEvent) {
	identifier, ok1 := p.uint32At(dbchHeaderSize)
	suppfunc, ok2 := p.uint32At(dbchHeaderSize + 4)
	if !ok1 || !ok2 {
		return
	}
	event.DeviceName = fmt.Sprintf("OEM: %d Value: %d", identifier, suppfunc)
}

// DEV_BROADCAST_PORT: header, dbcp_name[]
func decodeDevicePort(p payload, event *DeviceEvent) {
	if name, ok := p.utf16StringAt(dbchHeaderSize); ok {
		event.DeviceName = name
	}
}

// DEV_BROADCAST_VOLUME: header, dbcv_unitmask, dbcv_flags
func decodeDeviceVolume(p payload, event *DeviceEvent) {
	unitmask, ok := p.uint32At(dbchHeaderSize)
	if !ok {
		return
	}
	event.Drives = DrivesFromUnitMask(unitmask)
	if flags, ok := p.uint16At(dbchHeaderSize + 4); ok {
		event.VolumeFlags = VolumeFlags(flags)
	}
	event.DeviceName = strings.Join(event.Drives, ",")
	if event.VolumeFlags != 0 {
		event.DeviceName += " " + event.VolumeFlags.String()
	}
}

// DrivesFromUnitMask converts a logical unit mask (bit 0 = A:) into drive names
func DrivesFromUnitMask(unitmask uint32) []string {
	var drives []string
	for i := 0; i < 26; i++ {
		if unitmask&(1<<uint(i)) != 0 {
			drives = append(drives, string(rune('A'+i))+":")
		}
	}
	return drives
}
