// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"fmt"
	"strings"
	"time"

	log "github.com/hpe-storage/service-host-libs/logger"
	uuid "github.com/satori/go.uuid"
)

// PowerEventType is the wParam of WM_POWERBROADCAST (or the event type of a
// SERVICE_CONTROL_POWEREVENT request)
type PowerEventType uint32

const (
	PBT_APMQUERYSUSPEND       PowerEventType = 0x0000
	PBT_APMQUERYSTANDBY       PowerEventType = 0x0001
	PBT_APMQUERYSUSPENDFAILED PowerEventType = 0x0002
	PBT_APMQUERYSTANDBYFAILED PowerEventType = 0x0003
	PBT_APMSUSPEND            PowerEventType = 0x0004
	PBT_APMSTANDBY            PowerEventType = 0x0005
	PBT_APMRESUMECRITICAL     PowerEventType = 0x0006
	PBT_APMRESUMESUSPEND      PowerEventType = 0x0007
	PBT_APMRESUMESTANDBY      PowerEventType = 0x0008
	PBT_APMBATTERYLOW         PowerEventType = 0x0009
	PBT_APMPOWERSTATUSCHANGE  PowerEventType = 0x000A
	PBT_APMOEMEVENT           PowerEventType = 0x000B
	PBT_APMRESUMEAUTOMATIC    PowerEventType = 0x0012
	PBT_POWERSETTINGCHANGE    PowerEventType = 0x8013
)

var powerEventNames = map[PowerEventType]string{
	PBT_APMQUERYSUSPEND:       "QuerySuspend",
	PBT_APMQUERYSTANDBY:       "QueryStandby",
	PBT_APMQUERYSUSPENDFAILED: "QuerySuspendFailed",
	PBT_APMQUERYSTANDBYFAILED: "QueryStandbyFailed",
	PBT_APMSUSPEND:            "Suspend",
	PBT_APMSTANDBY:            "Standby",
	PBT_APMRESUMECRITICAL:     "ResumeCritical",
	PBT_APMRESUMESUSPEND:      "ResumeSuspend",
	PBT_APMRESUMESTANDBY:      "ResumeStandby",
	PBT_APMBATTERYLOW:         "BatteryLow",
	PBT_APMPOWERSTATUSCHANGE:  "PowerStatusChange",
	PBT_APMOEMEVENT:           "OemEvent",
	PBT_APMRESUMEAUTOMATIC:    "ResumeAutomatic",
	PBT_POWERSETTINGCHANGE:    "PowerSettingChange",
}

func (e PowerEventType) String() string {
	if name, ok := powerEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("PowerEvent(0x%X)", uint32(e))
}

// PowerSavings is the power scheme personality
type PowerSavings int

const (
	PowerSavingsMax PowerSavings = iota
	PowerSavingsMin
	PowerSavingsTypical
)

func (p PowerSavings) String() string {
	switch p {
	case PowerSavingsMax:
		return "Max"
	case PowerSavingsMin:
		return "Min"
	case PowerSavingsTypical:
		return "Typical"
	}
	return fmt.Sprintf("PowerSavings(%d)", int(p))
}

// PowerSource is the GUID_ACDC_POWER_SOURCE value
type PowerSource int32

const (
	PoweredByAC  PowerSource = 0
	PoweredByDC  PowerSource = 1
	PoweredByHot PowerSource = 2 // Short term source such as a UPS
)

func (p PowerSource) String() string {
	switch p {
	case PoweredByAC:
		return "Ac"
	case PoweredByDC:
		return "Dc"
	case PoweredByHot:
		return "Hot"
	}
	return fmt.Sprintf("PowerSource(%d)", int32(p))
}

// MonitorDisplayState is the GUID_CONSOLE_DISPLAY_STATE / GUID_MONITOR_POWER_ON value
type MonitorDisplayState int32

const (
	MonitorOff    MonitorDisplayState = 0
	MonitorOn     MonitorDisplayState = 1
	MonitorDimmed MonitorDisplayState = 2
)

func (m MonitorDisplayState) String() string {
	switch m {
	case MonitorOff:
		return "Off"
	case MonitorOn:
		return "On"
	case MonitorDimmed:
		return "Dimmed"
	}
	return fmt.Sprintf("MonitorDisplayState(%d)", int32(m))
}

// SystemPowerStatus mirrors SYSTEM_POWER_STATUS
type SystemPowerStatus struct {
	ACLineStatus        byte   `json:"acLineStatus"`
	BatteryFlag         byte   `json:"batteryFlag"`
	BatteryLifePercent  byte   `json:"batteryLifePercent"`
	SystemStatusFlag    byte   `json:"systemStatusFlag"`
	BatteryLifeTime     uint32 `json:"batteryLifeTime"`
	BatteryFullLifeTime uint32 `json:"batteryFullLifeTime"`
}

func (s SystemPowerStatus) String() string {
	return fmt.Sprintf("ACLineStatus=%d BatteryFlag=%d BatteryLifePercent=%d BatteryLifeTime=%d BatteryFullLifeTime=%d",
		s.ACLineStatus, s.BatteryFlag, s.BatteryLifePercent, s.BatteryLifeTime, s.BatteryFullLifeTime)
}

// PowerEvent is a decoded WM_POWERBROADCAST or SERVICE_CONTROL_POWEREVENT notification
type PowerEvent struct {
	Event             PowerEventType
	Setting           *uuid.UUID // PBT_POWERSETTINGCHANGE only
	SystemPowerStatus *SystemPowerStatus
	PowerSavings      *PowerSavings
	OEMEventCode      *int32
	PoweredBy         *PowerSource
	ActiveSchemeID    *uuid.UUID
	ActiveSchemeName  string
	MonitorState      *MonitorDisplayState
	BatteryRemaining  *int32
	LidOpen           *bool
	Idle              *time.Time
}

func (e *PowerEvent) Kind() Kind { return KindPower }

func (e *PowerEvent) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Event: %v", e.Event)
	if e.SystemPowerStatus != nil {
		fmt.Fprintf(&sb, " Status: %v", *e.SystemPowerStatus)
	}
	if e.PowerSavings != nil {
		fmt.Fprintf(&sb, " Mode: %v", *e.PowerSavings)
	}
	if e.OEMEventCode != nil {
		fmt.Fprintf(&sb, " OEM Code: %d", *e.OEMEventCode)
	}
	if e.PoweredBy != nil {
		fmt.Fprintf(&sb, " Powered By: %v", *e.PoweredBy)
	}
	if e.ActiveSchemeID != nil {
		fmt.Fprintf(&sb, " Current Power Scheme: %s(%v)", e.ActiveSchemeName, *e.ActiveSchemeID)
	}
	if e.MonitorState != nil {
		fmt.Fprintf(&sb, " Monitor Display State: %v", *e.MonitorState)
	}
	if e.Idle != nil {
		fmt.Fprintf(&sb, " System is Idle: %v", e.Idle.Format(time.RFC3339))
	}
	if e.BatteryRemaining != nil {
		fmt.Fprintf(&sb, " Battery Power Remaining: %d", *e.BatteryRemaining)
	}
	if e.LidOpen != nil {
		fmt.Fprintf(&sb, " Lid Open: %v", *e.LidOpen)
	}
	return sb.String()
}

// POWERBROADCAST_SETTING layout
const (
	pbsDataLengthOffset = guidSize
	pbsDataOffset       = guidSize + 4
)

// DecodePower decodes a WM_POWERBROADCAST message.  It returns nil for unknown sub-codes.
func (d *Decoder) DecodePower(m Message) (event *PowerEvent) {
	if m.Msg != WM_POWERBROADCAST {
		return nil
	}
	eventType := PowerEventType(m.WParam)
	if _, ok := powerEventNames[eventType]; !ok {
		return nil
	}

	event = &PowerEvent{Event: eventType}
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("power payload decode failed, event=%v, err=%v", eventType, r)
			event = &PowerEvent{Event: eventType}
		}
	}()

	switch eventType {
	case PBT_APMOEMEVENT:
		code := int32(m.LParam)
		event.OEMEventCode = &code
	case PBT_APMPOWERSTATUSCHANGE:
		event.SystemPowerStatus = d.systemPowerStatus()
	case PBT_POWERSETTINGCHANGE:
		d.decodePowerSetting(payload(m.Data), event)
	}
	return event
}

func (d *Decoder) decodePowerSetting(p payload, event *PowerEvent) {
	setting, ok := p.guidAt(0)
	if !ok {
		return
	}
	event.Setting = &setting

	dataLength, ok := p.uint32At(pbsDataLengthOffset)
	if !ok {
		return
	}
	data := payload(nil)
	if end := pbsDataOffset + int(dataLength); dataLength <= uint32(len(p)) && end <= len(p) {
		data = p[pbsDataOffset:end]
	}
	isGUID := dataLength == guidSize && len(data) == guidSize
	isInt32 := dataLength == 4 && len(data) == 4

	switch {
	case uuid.Equal(setting, GUID_POWERSCHEME_PERSONALITY) && isGUID:
		personality, _ := data.guidAt(0)
		switch {
		case uuid.Equal(personality, GUID_MAX_POWER_SAVINGS):
			event.PowerSavings = powerSavingsPtr(PowerSavingsMax)
		case uuid.Equal(personality, GUID_MIN_POWER_SAVINGS):
			event.PowerSavings = powerSavingsPtr(PowerSavingsMin)
		case uuid.Equal(personality, GUID_TYPICAL_POWER_SAVINGS):
			event.PowerSavings = powerSavingsPtr(PowerSavingsTypical)
		default:
			log.Debugf("switched to unknown power savings personality %v", personality)
		}
	case uuid.Equal(setting, GUID_ACDC_POWER_SOURCE) && isInt32:
		v, _ := data.int32At(0)
		source := PowerSource(v)
		event.PoweredBy = &source
	case uuid.Equal(setting, GUID_ACTIVE_POWERSCHEME) && isGUID:
		scheme, _ := data.guidAt(0)
		event.ActiveSchemeID = &scheme
		event.ActiveSchemeName = d.powerSchemeName(scheme)
	case (uuid.Equal(setting, GUID_CONSOLE_DISPLAY_STATE) || uuid.Equal(setting, GUID_MONITOR_POWER_ON)) && isInt32:
		v, _ := data.int32At(0)
		state := MonitorDisplayState(v)
		event.MonitorState = &state
	case uuid.Equal(setting, GUID_IDLE_BACKGROUND_TASK):
		now := d.now()
		event.Idle = &now
	case uuid.Equal(setting, GUID_BATTERY_PERCENTAGE_REMAINING) && isInt32:
		v, _ := data.int32At(0)
		event.BatteryRemaining = &v
	case uuid.Equal(setting, GUID_LIDSWITCH_STATE_CHANGE) && isInt32:
		v, _ := data.int32At(0)
		open := v == 1
		event.LidOpen = &open
	default:
		log.Debugf("unknown power setting %v, dataLength=%d", setting, dataLength)
	}
}

func powerSavingsPtr(p PowerSavings) *PowerSavings {
	return &p
}
