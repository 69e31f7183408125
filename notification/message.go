// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package notification decodes the device, power and session broadcasts delivered by the host
// into owned, immutable records.  Host memory is never referenced directly: callers copy the
// payload into Message.Data before decoding.
package notification

// Window message codes carrying notifications
const (
	WM_POWERBROADCAST    = 0x0218
	WM_DEVICECHANGE      = 0x0219
	WM_WTSSESSION_CHANGE = 0x02B1
)

// Message is a host message captured by a notification endpoint or rebuilt from a service
// control request.  Data holds a private copy of the structure lParam pointed to, if any.
type Message struct {
	Msg    uint32
	WParam uint64
	LParam uint64
	Data   []byte
}

// Kind identifies the variant held by a Record
type Kind int

const (
	KindNone Kind = iota
	KindDevice
	KindPower
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "Device"
	case KindPower:
		return "Power"
	case KindSession:
		return "Session"
	}
	return "None"
}

// Record is a decoded notification.  A nil Record means the message carried no notification.
// The concrete types are *DeviceEvent, *PowerEvent and *SessionEvent.
type Record interface {
	Kind() Kind
	String() string
}

// Standard window traffic seen by a hidden top-level window.  These are dropped without logging.
var standardWindowMessages = map[uint32]bool{
	0x0001: true, // WM_CREATE
	0x0003: true, // WM_MOVE
	0x0005: true, // WM_SIZE
	0x0006: true, // WM_ACTIVATE
	0x0007: true, // WM_SETFOCUS
	0x0008: true, // WM_KILLFOCUS
	0x000D: true, // WM_GETTEXT
	0x000E: true, // WM_GETTEXTLENGTH
	0x0014: true, // WM_ERASEBKGND
	0x0018: true, // WM_SHOWWINDOW
	0x001C: true, // WM_ACTIVATEAPP
	0x0024: true, // WM_GETMINMAXINFO
	0x0030: true, // WM_SETFONT
	0x0046: true, // WM_WINDOWPOSCHANGING
	0x0047: true, // WM_WINDOWPOSCHANGED
	0x007C: true, // WM_STYLECHANGING
	0x007D: true, // WM_STYLECHANGED
	0x007F: true, // WM_GETICON
	0x0080: true, // WM_SETICON
	0x0081: true, // WM_NCCREATE
	0x0083: true, // WM_NCCALCSIZE
	0x0085: true, // WM_NCPAINT
	0x0086: true, // WM_NCACTIVATE
	0x0281: true, // WM_IME_SETCONTEXT
	0x0282: true, // WM_IME_NOTIFY
	0x031F: true, // WM_DWMNCRENDERINGCHANGED
	0x0348: true,
	0xC0F2: true,
	0xC348: true,
}

// IsStandardWindowMessage reports whether msg is ordinary window traffic rather than a
// notification.
func IsStandardWindowMessage(msg uint32) bool {
	return standardWindowMessages[msg]
}
