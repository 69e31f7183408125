// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package service

import (
	"fmt"
	"strconv"
	"strings"
)

// ControlCode is a host control request.  Values are the SERVICE_CONTROL_* codes.
type ControlCode uint32

const (
	// Start is never sent by the host; it stands for the service entry point
	Start                 ControlCode = 0x00
	Stop                  ControlCode = 0x01
	Pause                 ControlCode = 0x02
	Continue              ControlCode = 0x03
	Interrogate           ControlCode = 0x04
	Shutdown              ControlCode = 0x05
	ParamChange           ControlCode = 0x06
	NetBindAdd            ControlCode = 0x07
	NetBindRemove         ControlCode = 0x08
	NetBindEnable         ControlCode = 0x09
	NetBindDisable        ControlCode = 0x0A
	DeviceEvent           ControlCode = 0x0B
	HardwareProfileChange ControlCode = 0x0C
	PowerEvent            ControlCode = 0x0D
	SessionChange         ControlCode = 0x0E
	PreShutdown           ControlCode = 0x0F
	TimeChange            ControlCode = 0x10
	TriggerEvent          ControlCode = 0x20
)

var controlCodeNames = map[ControlCode]string{
	Start:                 "Start",
	Stop:                  "Stop",
	Pause:                 "Pause",
	Continue:              "Continue",
	Interrogate:           "Interrogate",
	Shutdown:              "Shutdown",
	ParamChange:           "ParamChange",
	NetBindAdd:            "NetBindAdd",
	NetBindRemove:         "NetBindRemove",
	NetBindEnable:         "NetBindEnable",
	NetBindDisable:        "NetBindDisable",
	DeviceEvent:           "DeviceEvent",
	HardwareProfileChange: "HardwareProfileChange",
	PowerEvent:            "PowerEvent",
	SessionChange:         "SessionChange",
	PreShutdown:           "PreShutdown",
	TimeChange:            "TimeChange",
	TriggerEvent:          "TriggerEvent",
}

func (c ControlCode) String() string {
	if name, ok := controlCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ControlCode(0x%X)", uint32(c))
}

// ParseControlCode accepts a control name (case insensitive) or a numeric code
func ParseControlCode(s string) (ControlCode, error) {
	for code, name := range controlCodeNames {
		if strings.EqualFold(name, s) {
			return code, nil
		}
	}
	value, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown control code %q", s)
	}
	return ControlCode(value), nil
}

// State is the SERVICE_* current state
type State uint32

const (
	Stopped         State = 1
	StartPending    State = 2
	StopPending     State = 3
	Running         State = 4
	ContinuePending State = 5
	PausePending    State = 6
	Paused          State = 7
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case StartPending:
		return "StartPending"
	case StopPending:
		return "StopPending"
	case Running:
		return "Running"
	case ContinuePending:
		return "ContinuePending"
	case PausePending:
		return "PausePending"
	case Paused:
		return "Paused"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Pending reports whether s is a transitional state
func (s State) Pending() bool {
	switch s {
	case StartPending, StopPending, ContinuePending, PausePending:
		return true
	}
	return false
}

// Accepted is the SERVICE_ACCEPT_* bitmask of controls a service handles
type Accepted uint32

const (
	AcceptStop                  Accepted = 0x0001
	AcceptPauseContinue         Accepted = 0x0002
	AcceptShutdown              Accepted = 0x0004
	AcceptParamChange           Accepted = 0x0008
	AcceptNetBindChange         Accepted = 0x0010
	AcceptHardwareProfileChange Accepted = 0x0020
	AcceptPowerEvent            Accepted = 0x0040
	AcceptSessionChange         Accepted = 0x0080
	AcceptPreShutdown           Accepted = 0x0100
	AcceptTimeChange            Accepted = 0x0200
	AcceptTriggerEvent          Accepted = 0x0400

	AcceptAll = AcceptStop | AcceptPauseContinue | AcceptShutdown | AcceptParamChange | AcceptNetBindChange |
		AcceptHardwareProfileChange | AcceptPowerEvent | AcceptSessionChange | AcceptPreShutdown |
		AcceptTimeChange | AcceptTriggerEvent
)

var acceptedNames = []struct {
	flag Accepted
	name string
}{
	{AcceptStop, "Stop"},
	{AcceptPauseContinue, "PauseContinue"},
	{AcceptShutdown, "Shutdown"},
	{AcceptParamChange, "ParamChange"},
	{AcceptNetBindChange, "NetBindChange"},
	{AcceptHardwareProfileChange, "HardwareProfileChange"},
	{AcceptPowerEvent, "PowerEvent"},
	{AcceptSessionChange, "SessionChange"},
	{AcceptPreShutdown, "PreShutdown"},
	{AcceptTimeChange, "TimeChange"},
	{AcceptTriggerEvent, "TriggerEvent"},
}

func (a Accepted) String() string {
	var names []string
	for _, entry := range acceptedNames {
		if a&entry.flag != 0 {
			names = append(names, entry.name)
		}
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// ParseAccepted converts a list of control names into a bitmask.  "All" selects every control.
func ParseAccepted(names []string) (Accepted, error) {
	var accepted Accepted
	for _, name := range names {
		if strings.EqualFold(name, "All") {
			accepted |= AcceptAll
			continue
		}
		found := false
		for _, entry := range acceptedNames {
			if strings.EqualFold(entry.name, name) {
				accepted |= entry.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown accepted control %q", name)
		}
	}
	return accepted, nil
}

// ServiceType is the SERVICE_* type bitmask
type ServiceType uint32

const (
	KernelDriver       ServiceType = 0x001
	FileSystemDriver   ServiceType = 0x002
	Adapter            ServiceType = 0x004
	RecognizerDriver   ServiceType = 0x008
	OwnProcess         ServiceType = 0x010
	ShareProcess       ServiceType = 0x020
	InteractiveProcess ServiceType = 0x100
)

// StartType is the SERVICE_*_START value
type StartType uint32

const (
	BootStart   StartType = 0
	SystemStart StartType = 1
	AutoStart   StartType = 2
	DemandStart StartType = 3
	Disabled    StartType = 4
)

var startTypeNames = map[StartType]string{
	BootStart:   "Boot",
	SystemStart: "System",
	AutoStart:   "Auto",
	DemandStart: "Demand",
	Disabled:    "Disabled",
}

func (s StartType) String() string {
	if name, ok := startTypeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StartType(%d)", uint32(s))
}

// ParseStartType accepts Boot, System, Auto, Demand (or Manual) and Disabled
func ParseStartType(s string) (StartType, error) {
	if strings.EqualFold(s, "Manual") {
		return DemandStart, nil
	}
	for value, name := range startTypeNames {
		if strings.EqualFold(name, s) {
			return value, nil
		}
	}
	return 0, fmt.Errorf("unknown start type %q", s)
}

// ErrorControl is the SERVICE_ERROR_* severity
type ErrorControl uint32

const (
	ErrorIgnore   ErrorControl = 0
	ErrorNormal   ErrorControl = 1
	ErrorSevere   ErrorControl = 2
	ErrorCritical ErrorControl = 3
)

var errorControlNames = map[ErrorControl]string{
	ErrorIgnore:   "Ignore",
	ErrorNormal:   "Normal",
	ErrorSevere:   "Severe",
	ErrorCritical: "Critical",
}

func (e ErrorControl) String() string {
	if name, ok := errorControlNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ErrorControl(%d)", uint32(e))
}

// ParseErrorControl accepts Ignore, Normal, Severe and Critical
func ParseErrorControl(s string) (ErrorControl, error) {
	for value, name := range errorControlNames {
		if strings.EqualFold(name, s) {
			return value, nil
		}
	}
	return 0, fmt.Errorf("unknown error control %q", s)
}

// Status is the status record reported to the host
type Status struct {
	ServiceType             ServiceType `json:"serviceType"`
	State                   State       `json:"state"`
	Accepts                 Accepted    `json:"accepts"`
	Win32ExitCode           uint32      `json:"win32ExitCode"`
	ServiceSpecificExitCode uint32      `json:"serviceSpecificExitCode"`
	CheckPoint              uint32      `json:"checkPoint"`
	WaitHint                uint32      `json:"waitHint"` // milliseconds
}

func (s Status) String() string {
	return fmt.Sprintf("State=%v Accepts=%v CheckPoint=%d WaitHint=%dms Win32ExitCode=%d ServiceSpecificExitCode=%d",
		s.State, s.Accepts, s.CheckPoint, s.WaitHint, s.Win32ExitCode, s.ServiceSpecificExitCode)
}

// ControlEvent is one control request.  EventData is a private copy of the host payload.
type ControlEvent struct {
	Code      ControlCode
	EventType uint32
	EventData []byte
}

// StatusHandle identifies the service to the host once registered
type StatusHandle uintptr

// StatusPublisher reports the status record to the host
type StatusPublisher interface {
	Register(name string) (StatusHandle, error)
	Publish(status Status) error
}
