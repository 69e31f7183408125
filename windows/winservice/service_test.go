// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package winservice

import (
	"testing"
	"unsafe"

	"github.com/hpe-storage/service-host-libs/notification"
	"github.com/hpe-storage/service-host-libs/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows/svc"
)

func TestControlEventSessionChange(t *testing.T) {
	// WTSSESSION_NOTIFICATION{cbSize: 8, dwSessionId: 7}
	data := []byte{8, 0, 0, 0, 7, 0, 0, 0}
	ev := ControlEvent(svc.ChangeRequest{
		Cmd:       svc.SessionChange,
		EventType: uint32(notification.WTS_SESSION_LOCK),
		EventData: uintptr(unsafe.Pointer(&data[0])),
	})
	assert.Equal(t, service.SessionChange, ev.Code)
	assert.Equal(t, uint32(notification.WTS_SESSION_LOCK), ev.EventType)
	assert.Equal(t, data, ev.EventData)

	// the copy is private
	data[4] = 9
	assert.Equal(t, byte(7), ev.EventData[4])
}

func TestControlEventDeviceArrival(t *testing.T) {
	// DEV_BROADCAST_HDR{dbch_size: 12, dbch_devicetype: DBT_DEVTYP_PORT}
	data := []byte{12, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0}
	ev := ControlEvent(svc.ChangeRequest{
		Cmd:       svc.DeviceEvent,
		EventType: uint32(notification.DBT_DEVICEARRIVAL),
		EventData: uintptr(unsafe.Pointer(&data[0])),
	})
	assert.Equal(t, service.DeviceEvent, ev.Code)
	assert.Equal(t, data, ev.EventData)
}

func TestControlEventWithoutData(t *testing.T) {
	ev := ControlEvent(svc.ChangeRequest{Cmd: svc.Stop})
	assert.Equal(t, service.Stop, ev.Code)
	assert.Nil(t, ev.EventData)
}

func TestPublisherAttachDetach(t *testing.T) {
	p := NewPublisher()

	// detached reports go to the log
	handle, err := p.Register("Example")
	require.NoError(t, err)
	assert.NotZero(t, handle)
	assert.NoError(t, p.Publish(service.Status{State: service.StartPending}))

	changes := make(chan svc.Status, 1)
	p.attach(changes)
	require.NoError(t, p.Publish(service.Status{
		State:      service.Running,
		Accepts:    service.AcceptStop | service.AcceptShutdown,
		CheckPoint: 2,
		WaitHint:   3000,
	}))
	status := <-changes
	assert.Equal(t, svc.Running, status.State)
	assert.Equal(t, svc.AcceptStop|svc.AcceptShutdown, status.Accepts)
	assert.Equal(t, uint32(2), status.CheckPoint)
	assert.Equal(t, uint32(3000), status.WaitHint)

	p.detach()
	assert.NoError(t, p.Publish(service.Status{State: service.Stopped}))
	assert.Empty(t, changes)
}
