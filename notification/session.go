// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"fmt"
	"strings"

	log "github.com/hpe-storage/service-host-libs/logger"
)

// SessionChangeReason is the wParam of WM_WTSSESSION_CHANGE (or the event type of a
// SERVICE_CONTROL_SESSIONCHANGE request)
type SessionChangeReason uint32

const (
	WTS_CONSOLE_CONNECT        SessionChangeReason = 0x1
	WTS_CONSOLE_DISCONNECT     SessionChangeReason = 0x2
	WTS_REMOTE_CONNECT         SessionChangeReason = 0x3
	WTS_REMOTE_DISCONNECT      SessionChangeReason = 0x4
	WTS_SESSION_LOGON          SessionChangeReason = 0x5
	WTS_SESSION_LOGOFF         SessionChangeReason = 0x6
	WTS_SESSION_LOCK           SessionChangeReason = 0x7
	WTS_SESSION_UNLOCK         SessionChangeReason = 0x8
	WTS_SESSION_REMOTE_CONTROL SessionChangeReason = 0x9
	WTS_SESSION_CREATE         SessionChangeReason = 0xA
	WTS_SESSION_TERMINATE      SessionChangeReason = 0xB
)

var sessionReasonNames = map[SessionChangeReason]string{
	WTS_CONSOLE_CONNECT:        "ConsoleConnect",
	WTS_CONSOLE_DISCONNECT:     "ConsoleDisconnect",
	WTS_REMOTE_CONNECT:         "RemoteConnect",
	WTS_REMOTE_DISCONNECT:      "RemoteDisconnect",
	WTS_SESSION_LOGON:          "Logon",
	WTS_SESSION_LOGOFF:         "Logoff",
	WTS_SESSION_LOCK:           "Lock",
	WTS_SESSION_UNLOCK:         "Unlock",
	WTS_SESSION_REMOTE_CONTROL: "RemoteControl",
	WTS_SESSION_CREATE:         "Create",
	WTS_SESSION_TERMINATE:      "Terminate",
}

func (r SessionChangeReason) String() string {
	if name, ok := sessionReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("SessionChangeReason(0x%X)", uint32(r))
}

// ConnectState mirrors WTS_CONNECTSTATE_CLASS
type ConnectState uint32

const (
	WTSActive ConnectState = iota
	WTSConnected
	WTSConnectQuery
	WTSShadow
	WTSDisconnected
	WTSIdle
	WTSListen
	WTSReset
	WTSDown
	WTSInit
)

func (c ConnectState) String() string {
	names := []string{"Active", "Connected", "ConnectQuery", "Shadow", "Disconnected", "Idle", "Listen", "Reset", "Down", "Init"}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("ConnectState(%d)", uint32(c))
}

// ProtocolType is the WTSClientProtocolType value
type ProtocolType uint16

const (
	ProtocolConsole ProtocolType = 0
	ProtocolICA     ProtocolType = 1
	ProtocolRDP     ProtocolType = 2
)

// ClientAddress mirrors WTS_CLIENT_ADDRESS, with Address rendered as text
type ClientAddress struct {
	Family  uint32 `json:"family"`
	Address string `json:"address"`
}

// ClientDisplay mirrors WTS_CLIENT_DISPLAY
type ClientDisplay struct {
	HorizontalResolution uint32 `json:"horizontalResolution"`
	VerticalResolution   uint32 `json:"verticalResolution"`
	ColorDepth           uint32 `json:"colorDepth"`
}

// SessionData holds the extended attributes of a session as reported by the session query
// collaborator.  Unavailable attributes are left empty.
type SessionData struct {
	SessionID       uint32         `json:"sessionId"`
	UserName        string         `json:"userName,omitempty"`
	DomainName      string         `json:"domainName,omitempty"`
	WinStationName  string         `json:"winStationName,omitempty"`
	ClientName      string         `json:"clientName,omitempty"`
	ClientAddress   *ClientAddress `json:"clientAddress,omitempty"`
	ClientDisplay   *ClientDisplay `json:"clientDisplay,omitempty"`
	ConnectState    *ConnectState  `json:"connectState,omitempty"`
	ProtocolType    *ProtocolType  `json:"protocolType,omitempty"`
	IsRemoteSession *bool          `json:"isRemoteSession,omitempty"`
}

// SessionEvent is a decoded WM_WTSSESSION_CHANGE or SERVICE_CONTROL_SESSIONCHANGE notification
type SessionEvent struct {
	Reason             SessionChangeReason
	SessionID          uint32
	Data               *SessionData
	RemotelyControlled *bool // WTS_SESSION_REMOTE_CONTROL only
}

func (e *SessionEvent) Kind() Kind { return KindSession }

func (e *SessionEvent) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reason: %v Session: %d", e.Reason, e.SessionID)
	if e.Data != nil {
		if e.Data.UserName != "" {
			fmt.Fprintf(&sb, " User: %s\\%s", e.Data.DomainName, e.Data.UserName)
		}
		if e.Data.ConnectState != nil {
			fmt.Fprintf(&sb, " State: %v", *e.Data.ConnectState)
		}
	}
	if e.RemotelyControlled != nil {
		fmt.Fprintf(&sb, " Remotely Controlled: %v", *e.RemotelyControlled)
	}
	return sb.String()
}

// DecodeSession decodes a WM_WTSSESSION_CHANGE message.  The session attributes are looked up
// through the session query collaborator for every recognised reason.
func (d *Decoder) DecodeSession(m Message) (event *SessionEvent) {
	if m.Msg != WM_WTSSESSION_CHANGE {
		return nil
	}
	reason := SessionChangeReason(m.WParam)
	if _, ok := sessionReasonNames[reason]; !ok {
		log.Debugf("invalid session change reason 0x%X", m.WParam)
		return nil
	}

	sessionID := uint32(m.LParam)
	event = &SessionEvent{Reason: reason, SessionID: sessionID}
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("session query failed, sessionID=%d, err=%v", sessionID, r)
			event = &SessionEvent{Reason: reason, SessionID: sessionID}
		}
	}()

	event.Data = d.sessionData(sessionID)
	if reason == WTS_SESSION_REMOTE_CONTROL {
		event.RemotelyControlled = d.remotelyControlled()
	}
	return event
}
