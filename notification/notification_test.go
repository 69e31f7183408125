// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"errors"
	"testing"
	"time"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	data *SessionData
	err  error
}

func (s stubSessions) QuerySession(sessionID uint32) (*SessionData, error) {
	if s.err != nil {
		return nil, s.err
	}
	data := *s.data
	data.SessionID = sessionID
	return &data, nil
}

type stubNames map[string]string

func (s stubNames) FriendlyName(devicePath string) (string, error) {
	if name, ok := s[devicePath]; ok {
		return name, nil
	}
	return "", errors.New("not found")
}

type stubSchemes map[uuid.UUID]string

func (s stubSchemes) PowerSchemeName(scheme uuid.UUID) (string, error) {
	return s[scheme], nil
}

type stubPowerStatus struct{}

func (stubPowerStatus) SystemPowerStatus() (*SystemPowerStatus, error) {
	return &SystemPowerStatus{ACLineStatus: 1, BatteryLifePercent: 80}, nil
}

type stubRemote bool

func (s stubRemote) IsRemotelyControlled() bool { return bool(s) }

const usbPath = `\\?\USB#VID_0781&PID_5567#4C530001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}`

func TestGUIDConversion(t *testing.T) {
	b := GUIDBytes(GUID_DEVINTERFACE_USB_DEVICE)
	// Data1 is little endian in memory
	assert.Equal(t, []byte{0x10, 0xbf, 0xdc, 0xa5}, b[:4])
	u, ok := GUIDFromBytes(b)
	assert.True(t, ok)
	assert.True(t, uuid.Equal(GUID_DEVINTERFACE_USB_DEVICE, u))

	_, ok = GUIDFromBytes(b[:15])
	assert.False(t, ok)
}

func TestDeviceInterfaceArrival(t *testing.T) {
	d := &Decoder{FriendlyNames: stubNames{usbPath: "SanDisk Cruzer Blade"}}
	record := d.Decode(EncodeDeviceInterface(DBT_DEVICEARRIVAL, GUID_DEVINTERFACE_USB_DEVICE, usbPath))
	require.NotNil(t, record)
	assert.Equal(t, KindDevice, record.Kind())

	event := record.(*DeviceEvent)
	require.NotNil(t, event.Event)
	assert.Equal(t, DBT_DEVICEARRIVAL, *event.Event)
	require.NotNil(t, event.DeviceType)
	assert.Equal(t, DBT_DEVTYP_DEVICEINTERFACE, *event.DeviceType)
	require.NotNil(t, event.ClassGUID)
	assert.True(t, uuid.Equal(GUID_DEVINTERFACE_USB_DEVICE, *event.ClassGUID))
	assert.Equal(t, usbPath, event.DeviceID)
	assert.Equal(t, "SanDisk Cruzer Blade", event.DeviceName)
}

func TestDeviceInterfaceFriendlyNameFallback(t *testing.T) {
	var d *Decoder
	event := d.DecodeDevice(EncodeDeviceInterface(DBT_DEVICEREMOVECOMPLETE, GUID_DEVCLASS_USB, usbPath))
	require.NotNil(t, event)
	assert.Equal(t, usbPath, event.DeviceName)
}

func TestDeviceVolume(t *testing.T) {
	d := &Decoder{}
	// E: and G:
	event := d.DecodeDevice(EncodeDeviceVolume(DBT_DEVICEARRIVAL, 1<<4|1<<6, DBTF_MEDIA))
	require.NotNil(t, event)
	assert.Equal(t, []string{"E:", "G:"}, event.Drives)
	assert.Equal(t, DBTF_MEDIA, event.VolumeFlags)
	assert.Equal(t, "E:,G: Media", event.DeviceName)
}

func TestDevicePortOEMAndHandle(t *testing.T) {
	d := &Decoder{}

	event := d.DecodeDevice(EncodeDevicePort(DBT_DEVICEARRIVAL, "COM3"))
	require.NotNil(t, event)
	assert.Equal(t, "COM3", event.DeviceName)

	event = d.DecodeDevice(EncodeDeviceOEM(DBT_DEVICEARRIVAL, 12, 34))
	require.NotNil(t, event)
	assert.Equal(t, "OEM: 12 Value: 34", event.DeviceName)

	eventGUID := uuid.Must(uuid.FromString("d07433c0-a98e-11d2-917a-00a0c9068ff3"))
	event = d.DecodeDevice(EncodeDeviceHandle(DBT_CUSTOMEVENT, 42, eventGUID))
	require.NotNil(t, event)
	assert.Equal(t, "Handle Id 42", event.DeviceName)
	require.NotNil(t, event.EventGUID)
	assert.True(t, uuid.Equal(eventGUID, *event.EventGUID))
}

func TestDeviceHardwareProfile(t *testing.T) {
	event := (&Decoder{}).DecodeDevice(EncodeHardwareProfile(DBT_CONFIGCHANGED))
	require.NotNil(t, event)
	require.NotNil(t, event.HardwareProfile)
	assert.Equal(t, DBT_CONFIGCHANGED, *event.HardwareProfile)
	assert.Nil(t, event.Event)
	assert.Nil(t, event.DeviceType)
}

func TestDeviceTruncatedAndUnknown(t *testing.T) {
	d := &Decoder{}

	// unknown sub-code
	assert.Nil(t, d.Decode(Message{Msg: WM_DEVICECHANGE, WParam: 0x0007}))

	// header too short: only the event is known
	event := d.DecodeDevice(Message{Msg: WM_DEVICECHANGE, WParam: uint64(DBT_DEVICEARRIVAL), Data: []byte{1, 2}})
	require.NotNil(t, event)
	assert.NotNil(t, event.Event)
	assert.Nil(t, event.DeviceType)

	// device interface cut off in the middle of the class GUID
	m := EncodeDeviceInterface(DBT_DEVICEARRIVAL, GUID_DEVCLASS_USB, usbPath)
	m.Data = m.Data[:20]
	event = d.DecodeDevice(m)
	require.NotNil(t, event)
	require.NotNil(t, event.DeviceType)
	assert.Equal(t, DBT_DEVTYP_DEVICEINTERFACE, *event.DeviceType)
	assert.Nil(t, event.ClassGUID)
	assert.Empty(t, event.DeviceID)

	// unknown device type
	m = EncodeDeviceOEM(DBT_DEVICEARRIVAL, 1, 1)
	m.Data[dbchDeviceTypeOffset] = 0x40
	event = d.DecodeDevice(m)
	require.NotNil(t, event)
	assert.Equal(t, DeviceType(0x40), *event.DeviceType)
	assert.Empty(t, event.DeviceName)
}

func TestPowerActiveScheme(t *testing.T) {
	balanced := GUID_TYPICAL_POWER_SAVINGS
	d := &Decoder{SchemeNames: stubSchemes{balanced: "Balanced"}}
	record := d.Decode(EncodePowerSettingGUID(GUID_ACTIVE_POWERSCHEME, balanced))
	require.NotNil(t, record)
	assert.Equal(t, KindPower, record.Kind())

	event := record.(*PowerEvent)
	assert.Equal(t, PBT_POWERSETTINGCHANGE, event.Event)
	require.NotNil(t, event.Setting)
	assert.True(t, uuid.Equal(GUID_ACTIVE_POWERSCHEME, *event.Setting))
	require.NotNil(t, event.ActiveSchemeID)
	assert.True(t, uuid.Equal(balanced, *event.ActiveSchemeID))
	assert.Equal(t, "Balanced", event.ActiveSchemeName)
}

func TestPowerUnknownSetting(t *testing.T) {
	unknown := uuid.Must(uuid.FromString("00000000-1111-2222-3333-444444444444"))
	event := (&Decoder{}).DecodePower(EncodePowerSettingInt32(unknown, 1))
	require.NotNil(t, event)
	require.NotNil(t, event.Setting)
	assert.Nil(t, event.PowerSavings)
	assert.Nil(t, event.PoweredBy)
	assert.Nil(t, event.ActiveSchemeID)
	assert.Nil(t, event.MonitorState)
	assert.Nil(t, event.BatteryRemaining)
	assert.Nil(t, event.LidOpen)
	assert.Nil(t, event.Idle)
}

func TestPowerDataLengthMismatch(t *testing.T) {
	// a GUID setting carrying a DWORD is ignored
	event := (&Decoder{}).DecodePower(EncodePowerSettingInt32(GUID_ACTIVE_POWERSCHEME, 1))
	require.NotNil(t, event)
	assert.Nil(t, event.ActiveSchemeID)

	m := EncodePowerSettingInt32(GUID_ACDC_POWER_SOURCE, 1)
	m.Data = m.Data[:pbsDataOffset+2]
	event = (&Decoder{}).DecodePower(m)
	require.NotNil(t, event)
	assert.Nil(t, event.PoweredBy)
}

func TestPowerSettings(t *testing.T) {
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	d := &Decoder{Now: func() time.Time { return now }}

	event := d.DecodePower(EncodePowerSettingInt32(GUID_ACDC_POWER_SOURCE, int32(PoweredByDC)))
	require.NotNil(t, event.PoweredBy)
	assert.Equal(t, PoweredByDC, *event.PoweredBy)

	event = d.DecodePower(EncodePowerSettingGUID(GUID_POWERSCHEME_PERSONALITY, GUID_MAX_POWER_SAVINGS))
	require.NotNil(t, event.PowerSavings)
	assert.Equal(t, PowerSavingsMax, *event.PowerSavings)

	event = d.DecodePower(EncodePowerSettingInt32(GUID_MONITOR_POWER_ON, int32(MonitorDimmed)))
	require.NotNil(t, event.MonitorState)
	assert.Equal(t, MonitorDimmed, *event.MonitorState)

	event = d.DecodePower(EncodePowerSettingInt32(GUID_BATTERY_PERCENTAGE_REMAINING, 57))
	require.NotNil(t, event.BatteryRemaining)
	assert.Equal(t, int32(57), *event.BatteryRemaining)

	event = d.DecodePower(EncodePowerSettingInt32(GUID_LIDSWITCH_STATE_CHANGE, 1))
	require.NotNil(t, event.LidOpen)
	assert.True(t, *event.LidOpen)

	event = d.DecodePower(EncodePowerSetting(GUID_IDLE_BACKGROUND_TASK, nil))
	require.NotNil(t, event.Idle)
	assert.Equal(t, now, *event.Idle)
}

func TestPowerEvents(t *testing.T) {
	d := &Decoder{PowerStatus: stubPowerStatus{}}

	event := d.DecodePower(EncodePowerEvent(PBT_APMPOWERSTATUSCHANGE, 0))
	require.NotNil(t, event)
	require.NotNil(t, event.SystemPowerStatus)
	assert.Equal(t, byte(80), event.SystemPowerStatus.BatteryLifePercent)

	event = d.DecodePower(EncodePowerEvent(PBT_APMOEMEVENT, 0x200))
	require.NotNil(t, event.OEMEventCode)
	assert.Equal(t, int32(0x200), *event.OEMEventCode)

	event = d.DecodePower(EncodePowerEvent(PBT_APMRESUMEAUTOMATIC, 0))
	require.NotNil(t, event)
	assert.Equal(t, "Event: ResumeAutomatic", event.String())

	assert.Nil(t, d.DecodePower(EncodePowerEvent(PowerEventType(0x13), 0)))
}

func TestSessionLock(t *testing.T) {
	d := &Decoder{Sessions: stubSessions{data: &SessionData{UserName: "jdoe", DomainName: "CORP"}}}
	record := d.Decode(EncodeSession(WTS_SESSION_LOCK, 7))
	require.NotNil(t, record)
	assert.Equal(t, KindSession, record.Kind())

	event := record.(*SessionEvent)
	assert.Equal(t, WTS_SESSION_LOCK, event.Reason)
	assert.Equal(t, uint32(7), event.SessionID)
	require.NotNil(t, event.Data)
	assert.Equal(t, uint32(7), event.Data.SessionID)
	assert.Equal(t, "jdoe", event.Data.UserName)
	assert.Nil(t, event.RemotelyControlled)
	assert.Equal(t, `Reason: Lock Session: 7 User: CORP\jdoe`, event.String())
}

func TestSessionQueryFailureAndRemoteControl(t *testing.T) {
	d := &Decoder{Sessions: stubSessions{err: errors.New("access denied")}, RemoteControl: stubRemote(true)}

	event := d.DecodeSession(EncodeSession(WTS_SESSION_REMOTE_CONTROL, 2))
	require.NotNil(t, event)
	assert.Nil(t, event.Data)
	require.NotNil(t, event.RemotelyControlled)
	assert.True(t, *event.RemotelyControlled)

	assert.Nil(t, d.DecodeSession(EncodeSession(SessionChangeReason(0xC), 2)))
}

func TestDecodeIgnoresWindowTraffic(t *testing.T) {
	d := &Decoder{}
	assert.Nil(t, d.Decode(Message{Msg: 0x0001}))
	assert.Nil(t, d.Decode(Message{Msg: 0x1234}))

	record, ok := d.Transform(Message{Msg: 0x0047})
	assert.False(t, ok)
	assert.Nil(t, record)
}

func TestTimeChange(t *testing.T) {
	oldTime := time.Date(2021, 3, 28, 1, 0, 0, 0, time.UTC)
	newTime := oldTime.Add(time.Hour)
	decodedOld, decodedNew, ok := DecodeTimeChange(EncodeTimeChange(oldTime, newTime))
	assert.True(t, ok)
	assert.True(t, oldTime.Equal(decodedOld))
	assert.True(t, newTime.Equal(decodedNew))

	_, _, ok = DecodeTimeChange(make([]byte, 12))
	assert.False(t, ok)

	assert.Equal(t, int64(fileTimeUnixOffset), TimeToFileTime(time.Unix(0, 0)))
}

func TestSessionNotification(t *testing.T) {
	id, ok := DecodeSessionNotification(EncodeSessionNotification(5))
	assert.True(t, ok)
	assert.Equal(t, uint32(5), id)

	_, ok = DecodeSessionNotification([]byte{8, 0, 0})
	assert.False(t, ok)
}
