// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package wmi

import (
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
)

func TestInstanceID(t *testing.T) {
	assert.Equal(t, `USB\VID_0781&PID_5581\4C530001`,
		InstanceID(`\\?\usb#vid_0781&pid_5581#4C530001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`))
	assert.Equal(t, `HID\VID_046D&PID_C52B&MI_00\7&1A2B3C&0&0000`,
		InstanceID(`\\?\HID#VID_046D&PID_C52B&MI_00#7&1a2b3c&0&0000#{4d1e55b2-f16f-11cf-88cb-001111000030}`))
	assert.Equal(t, "COM3", InstanceID("COM3"))
	assert.Equal(t, `STORAGE\VOLUME\1`, InstanceID(`\??\storage#volume#1`))
	assert.Equal(t, `STORAGE\VOLUME\1`, InstanceID(`\\.\storage#volume#1`))
}

func TestQueries(t *testing.T) {
	assert.Equal(t, `SELECT Name FROM Win32_PnPEntity WHERE DeviceID = 'USB\\VID_0781&PID_5581\\4C530001'`,
		pnpEntityQuery(`\\?\USB#VID_0781&PID_5581#4C530001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`))
	assert.Equal(t, `SELECT Name FROM Win32_PnPEntity WHERE DeviceID = 'O\'BRIEN'`, pnpEntityQuery("o'brien"))

	scheme := uuid.FromStringOrNil("381b4222-f694-41f0-9685-ff5bb260df2e")
	assert.Equal(t, `SELECT ElementName FROM Win32_PowerPlan WHERE InstanceID = 'Microsoft:PowerPlan\\{381b4222-f694-41f0-9685-ff5bb260df2e}'`,
		powerPlanQuery(scheme))
}
