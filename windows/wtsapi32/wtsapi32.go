// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package wtsapi32

import (
	"encoding/binary"
	"syscall"
	"unsafe"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"golang.org/x/sys/windows"
)

// Lazy load our wtsapi32.dll APIs
var (
	wtsapi32                             = windows.NewLazySystemDLL("wtsapi32.dll")
	procWTSRegisterSessionNotification   = wtsapi32.NewProc("WTSRegisterSessionNotification")
	procWTSUnRegisterSessionNotification = wtsapi32.NewProc("WTSUnRegisterSessionNotification")
	procWTSQuerySessionInformationW      = wtsapi32.NewProc("WTSQuerySessionInformationW")
)

// WTSRegisterSessionNotification flags
const (
	NOTIFY_FOR_THIS_SESSION = 0
	NOTIFY_FOR_ALL_SESSIONS = 1
)

const WTS_CURRENT_SERVER_HANDLE = 0

// WTS_INFO_CLASS values we query
const (
	WTSUserName           = 5
	WTSWinStationName     = 6
	WTSDomainName         = 7
	WTSConnectState       = 8
	WTSClientName         = 10
	WTSClientAddress      = 14
	WTSClientDisplay      = 15
	WTSClientProtocolType = 16
	WTSIsRemoteSession    = 29
)

// RegisterSessionNotification -- Registers the specified window to receive session change
// notifications.
// https://docs.microsoft.com/en-us/windows/win32/api/wtsapi32/nf-wtsapi32-wtsregistersessionnotification
func RegisterSessionNotification(hwnd windows.Handle, flags uint32) error {
	ret, _, err := procWTSRegisterSessionNotification.Call(uintptr(hwnd), uintptr(flags))
	if ret == 0 {
		return lastError(err)
	}
	return nil
}

// UnregisterSessionNotification -- Unregisters the specified window so that it receives no
// further session change notifications.
// https://docs.microsoft.com/en-us/windows/win32/api/wtsapi32/nf-wtsapi32-wtsunregistersessionnotification
func UnregisterSessionNotification(hwnd windows.Handle) error {
	ret, _, err := procWTSUnRegisterSessionNotification.Call(uintptr(hwnd))
	if ret == 0 {
		return lastError(err)
	}
	return nil
}

// QuerySessionInformation -- Retrieves session information for the specified session on the
// local server.  The returned buffer is a copy.
// https://docs.microsoft.com/en-us/windows/win32/api/wtsapi32/nf-wtsapi32-wtsquerysessioninformationw
func QuerySessionInformation(sessionID uint32, infoClass uint32) ([]byte, error) {
	var buffer *byte
	var size uint32
	ret, _, err := procWTSQuerySessionInformationW.Call(
		WTS_CURRENT_SERVER_HANDLE,
		uintptr(sessionID),
		uintptr(infoClass),
		uintptr(unsafe.Pointer(&buffer)),
		uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		return nil, lastError(err)
	}
	defer windows.WTSFreeMemory(uintptr(unsafe.Pointer(buffer)))
	if buffer == nil || size == 0 {
		return nil, nil
	}
	data := make([]byte, size)
	copy(data, unsafe.Slice(buffer, size))
	return data, nil
}

func queryString(sessionID uint32, infoClass uint32) string {
	data, err := QuerySessionInformation(sessionID, infoClass)
	if err != nil {
		log.Tracef("session %d info class %d unavailable, err=%v", sessionID, infoClass, err)
		return ""
	}
	chars := make([]uint16, len(data)/2)
	for i := range chars {
		chars[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return windows.UTF16ToString(chars)
}

// SessionQuery implements notification.SessionQuery
type SessionQuery struct{}

// QuerySession returns the extended attributes of a session.  Only the connect state is
// required; other attributes are left empty when unavailable.
func (SessionQuery) QuerySession(sessionID uint32) (*notification.SessionData, error) {
	log.Tracef(">>>>> QuerySession, sessionID=%d", sessionID)
	defer log.Trace("<<<<< QuerySession")

	state, err := QuerySessionInformation(sessionID, WTSConnectState)
	if err != nil {
		return nil, err
	}
	data := &notification.SessionData{
		SessionID:      sessionID,
		UserName:       queryString(sessionID, WTSUserName),
		DomainName:     queryString(sessionID, WTSDomainName),
		WinStationName: queryString(sessionID, WTSWinStationName),
		ClientName:     queryString(sessionID, WTSClientName),
	}
	if len(state) >= 4 {
		connectState := notification.ConnectState(binary.LittleEndian.Uint32(state))
		data.ConnectState = &connectState
	}
	// WTS_CLIENT_ADDRESS is {DWORD AddressFamily; BYTE Address[20]}
	if b, err := QuerySessionInformation(sessionID, WTSClientAddress); err == nil && len(b) >= 24 {
		family := binary.LittleEndian.Uint32(b)
		if family != AF_UNSPEC {
			data.ClientAddress = &notification.ClientAddress{Family: family, Address: FormatClientAddress(family, b[4:24])}
		}
	}
	if b, err := QuerySessionInformation(sessionID, WTSClientDisplay); err == nil && len(b) >= 12 {
		data.ClientDisplay = &notification.ClientDisplay{
			HorizontalResolution: binary.LittleEndian.Uint32(b),
			VerticalResolution:   binary.LittleEndian.Uint32(b[4:]),
			ColorDepth:           binary.LittleEndian.Uint32(b[8:]),
		}
	}
	if b, err := QuerySessionInformation(sessionID, WTSClientProtocolType); err == nil && len(b) >= 2 {
		protocol := notification.ProtocolType(binary.LittleEndian.Uint16(b))
		data.ProtocolType = &protocol
	}
	if b, err := QuerySessionInformation(sessionID, WTSIsRemoteSession); err == nil && len(b) >= 1 {
		remote := b[0] != 0
		data.IsRemoteSession = &remote
	}
	return data, nil
}

// ListSessions enumerates the sessions on the local server
func ListSessions() ([]*notification.SessionData, error) {
	log.Trace(">>>>> ListSessions")
	defer log.Trace("<<<<< ListSessions")

	var sessions *windows.WTS_SESSION_INFO
	var count uint32
	if err := windows.WTSEnumerateSessions(WTS_CURRENT_SERVER_HANDLE, 0, 1, &sessions, &count); err != nil {
		return nil, err
	}
	defer windows.WTSFreeMemory(uintptr(unsafe.Pointer(sessions)))

	var query SessionQuery
	var list []*notification.SessionData
	for _, session := range unsafe.Slice(sessions, count) {
		data, err := query.QuerySession(session.SessionID)
		if err != nil {
			log.Debugf("skipping session %d, err=%v", session.SessionID, err)
			continue
		}
		if data.WinStationName == "" {
			data.WinStationName = windows.UTF16PtrToString(session.WindowStationName)
		}
		list = append(list, data)
	}
	return list, nil
}

func lastError(err error) error {
	if errno, ok := err.(syscall.Errno); ok && errno != 0 {
		return errno
	}
	return syscall.EINVAL
}
