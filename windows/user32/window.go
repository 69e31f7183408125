// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package user32

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const (
	// DefaultClassName is the window class of the notification window
	DefaultClassName = "ServiceHostNotificationWindow"

	ERROR_CLASS_ALREADY_EXISTS = 1410

	// POWERBROADCAST_SETTING layout
	powerSettingDataLengthOffset = 16
	powerSettingDataOffset       = 20

	// Upper bound on a copied broadcast structure
	maxPayloadSize = 64 << 10
)

var (
	wndProcCallback = syscall.NewCallback(wndProc)

	windowsLock     sync.Mutex
	windowsByHandle = map[win.HWND]*Window{}
)

// Window is a hidden top-level window used as a pump.Endpoint.  Message-only windows do not
// receive broadcasts, so the window is a regular one that is never shown.
type Window struct {
	className string

	lock sync.Mutex
	hwnd win.HWND

	// only used on the window thread
	deliver func(notification.Message)
}

// NewWindow returns an endpoint creating a window of the given class.  An empty class name
// selects DefaultClassName.
func NewWindow(className string) *Window {
	if className == "" {
		className = DefaultClassName
	}
	return &Window{className: className}
}

// Open creates the window.  It must run on the thread that will call Receive.
func (w *Window) Open() error {
	log.Tracef(">>>>> Open, className=%v", w.className)
	defer log.Trace("<<<<< Open")

	hInst := win.GetModuleHandle(nil)
	className, err := syscall.UTF16PtrFromString(w.className)
	if err != nil {
		return err
	}

	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   wndProcCallback,
		HInstance:     hInst,
		LpszClassName: className,
	}
	if win.RegisterClassEx(&wc) == 0 {
		if errno := windows.GetLastError(); errno != syscall.Errno(ERROR_CLASS_ALREADY_EXISTS) {
			return fmt.Errorf("RegisterClassEx failed, err=%v", errno)
		}
	}

	hwnd := win.CreateWindowEx(0, className, className, 0, 0, 0, 0, 0, 0, 0, hInst, nil)
	if hwnd == 0 {
		return fmt.Errorf("CreateWindowEx failed, err=%v", windows.GetLastError())
	}

	w.lock.Lock()
	w.hwnd = hwnd
	w.lock.Unlock()

	windowsLock.Lock()
	windowsByHandle[hwnd] = w
	windowsLock.Unlock()
	return nil
}

// Receive runs the message loop until the window is destroyed
func (w *Window) Receive(deliver func(notification.Message)) error {
	log.Trace(">>>>> Receive")
	defer log.Trace("<<<<< Receive")

	w.deliver = deliver
	var msg win.MSG
	for {
		switch win.GetMessage(&msg, 0, 0, 0) {
		case 0:
			return nil
		case -1:
			return fmt.Errorf("GetMessage failed, err=%v", windows.GetLastError())
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

// Close asks the window thread to destroy the window, which ends Receive
func (w *Window) Close() error {
	log.Trace(">>>>> Close")
	defer log.Trace("<<<<< Close")

	w.lock.Lock()
	hwnd := w.hwnd
	w.lock.Unlock()
	if hwnd == 0 {
		return nil
	}
	if win.PostMessage(hwnd, win.WM_CLOSE, 0, 0) == 0 {
		return fmt.Errorf("PostMessage failed, err=%v", windows.GetLastError())
	}
	return nil
}

// Handle returns the window handle, 0 when the window is not open
func (w *Window) Handle() windows.Handle {
	w.lock.Lock()
	defer w.lock.Unlock()
	return windows.Handle(w.hwnd)
}

func lookupWindow(hwnd win.HWND) *Window {
	windowsLock.Lock()
	defer windowsLock.Unlock()
	return windowsByHandle[hwnd]
}

func wndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0
	case win.WM_DESTROY:
		windowsLock.Lock()
		w := windowsByHandle[hwnd]
		delete(windowsByHandle, hwnd)
		windowsLock.Unlock()
		if w != nil {
			w.lock.Lock()
			w.hwnd = 0
			w.lock.Unlock()
		}
		win.PostQuitMessage(0)
		return 0
	}

	w := lookupWindow(hwnd)
	if w == nil || w.deliver == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}
	w.deliver(notification.Message{
		Msg:    msg,
		WParam: uint64(wParam),
		LParam: uint64(lParam),
		Data:   BroadcastPayload(msg, wParam, lParam),
	})

	switch msg {
	case notification.WM_DEVICECHANGE, notification.WM_POWERBROADCAST:
		// grant queries
		return win.TRUE
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// BroadcastPayload copies the structure lParam points to, for the messages that carry one
func BroadcastPayload(msg uint32, wParam, lParam uintptr) []byte {
	if lParam == 0 {
		return nil
	}
	switch msg {
	case notification.WM_DEVICECHANGE:
		event := notification.DeviceEventType(wParam)
		if event < notification.DBT_DEVICEARRIVAL || event > notification.DBT_CUSTOMEVENT {
			return nil
		}
		size := *(*uint32)(unsafe.Pointer(lParam))
		return CopyMemory(lParam, int(size))
	case notification.WM_POWERBROADCAST:
		if notification.PowerEventType(wParam) != notification.PBT_POWERSETTINGCHANGE {
			return nil
		}
		dataLength := *(*uint32)(unsafe.Pointer(lParam + powerSettingDataLengthOffset))
		return CopyMemory(lParam, powerSettingDataOffset+int(dataLength))
	}
	return nil
}

// CopyMemory copies size bytes at address.  Sizes beyond 64KiB are rejected.
func CopyMemory(address uintptr, size int) []byte {
	if size <= 0 || size > maxPayloadSize {
		return nil
	}
	data := make([]byte, size)
	copy(data, unsafe.Slice((*byte)(unsafe.Pointer(address)), size))
	return data
}
