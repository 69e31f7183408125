// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"encoding/binary"

	uuid "github.com/satori/go.uuid"
)

// The encoders below build the structures the host would deliver, so that notifications can be
// synthesized by the console driver, the status API and tests.  They produce the x64 layout on
// 64 bit builds and the x86 layout otherwise, matching what the decoders expect.

func deviceHeader(size int, deviceType DeviceType) []byte {
	b := make([]byte, size)
	binary.LittleEndian.PutUint32(b[dbchSizeOffset:], uint32(size))
	binary.LittleEndian.PutUint32(b[dbchDeviceTypeOffset:], uint32(deviceType))
	return b
}

// EncodeDeviceInterface builds a WM_DEVICECHANGE message carrying DEV_BROADCAST_DEVICEINTERFACE
func EncodeDeviceInterface(event DeviceEventType, class uuid.UUID, name string) Message {
	encodedName := encodeUTF16(name)
	b := deviceHeader(dbchHeaderSize+guidSize+len(encodedName), DBT_DEVTYP_DEVICEINTERFACE)
	copy(b[dbchHeaderSize:], GUIDBytes(class))
	copy(b[dbchHeaderSize+guidSize:], encodedName)
	return Message{Msg: WM_DEVICECHANGE, WParam: uint64(event), Data: b}
}

// EncodeDeviceVolume builds a WM_DEVICECHANGE message carrying DEV_BROADCAST_VOLUME
func EncodeDeviceVolume(event DeviceEventType, unitmask uint32, flags VolumeFlags) Message {
	b := deviceHeader(dbchHeaderSize+8, DBT_DEVTYP_VOLUME)
	binary.LittleEndian.PutUint32(b[dbchHeaderSize:], unitmask)
	binary.LittleEndian.PutUint16(b[dbchHeaderSize+4:], uint16(flags))
	return Message{Msg: WM_DEVICECHANGE, WParam: uint64(event), Data: b}
}

// EncodeDevicePort builds a WM_DEVICECHANGE message carrying DEV_BROADCAST_PORT
func EncodeDevicePort(event DeviceEventType, name string) Message {
	encodedName := encodeUTF16(name)
	b := deviceHeader(dbchHeaderSize+len(encodedName), DBT_DEVTYP_PORT)
	copy(b[dbchHeaderSize:], encodedName)
	return Message{Msg: WM_DEVICECHANGE, WParam: uint64(event), Data: b}
}

// EncodeDeviceOEM builds a WM_DEVICECHANGE message carrying DEV_BROADCAST_OEM
func EncodeDeviceOEM(event DeviceEventType, identifier, suppfunc uint32) Message {
	b := deviceHeader(dbchHeaderSize+8, DBT_DEVTYP_OEM)
	binary.LittleEndian.PutUint32(b[dbchHeaderSize:], identifier)
	binary.LittleEndian.PutUint32(b[dbchHeaderSize+4:], suppfunc)
	return Message{Msg: WM_DEVICECHANGE, WParam: uint64(event), Data: b}
}

// EncodeDeviceHandle builds a WM_DEVICECHANGE message carrying DEV_BROADCAST_HANDLE.  A nil
// event GUID is encoded as GUID_NULL.
func EncodeDeviceHandle(event DeviceEventType, handle uint64, eventGUID uuid.UUID) Message {
	handleOffset := alignUp(dbchHeaderSize, pointerSize)
	guidOffset := handleOffset + 2*pointerSize
	// dbch_nameoffset (LONG) and one byte of dbch_data follow the GUID
	size := alignUp(guidOffset+guidSize+4+1, pointerSize)
	b := deviceHeader(size, DBT_DEVTYP_HANDLE)
	if pointerSize == 4 {
		binary.LittleEndian.PutUint32(b[handleOffset:], uint32(handle))
	} else {
		binary.LittleEndian.PutUint64(b[handleOffset:], handle)
	}
	copy(b[guidOffset:], GUIDBytes(eventGUID))
	binary.LittleEndian.PutUint32(b[guidOffset+guidSize:], 0xFFFFFFFF)
	return Message{Msg: WM_DEVICECHANGE, WParam: uint64(event), Data: b}
}

// EncodeHardwareProfile builds a WM_DEVICECHANGE message for a hardware profile change
func EncodeHardwareProfile(change HardwareProfileChange) Message {
	return Message{Msg: WM_DEVICECHANGE, WParam: uint64(change)}
}

// EncodePowerEvent builds a WM_POWERBROADCAST message without a payload.  For PBT_APMOEMEVENT
// lParam is the OEM event code.
func EncodePowerEvent(event PowerEventType, lParam uint64) Message {
	return Message{Msg: WM_POWERBROADCAST, WParam: uint64(event), LParam: lParam}
}

// EncodePowerSetting builds a PBT_POWERSETTINGCHANGE message carrying POWERBROADCAST_SETTING
func EncodePowerSetting(setting uuid.UUID, data []byte) Message {
	b := make([]byte, pbsDataOffset+len(data))
	copy(b, GUIDBytes(setting))
	binary.LittleEndian.PutUint32(b[pbsDataLengthOffset:], uint32(len(data)))
	copy(b[pbsDataOffset:], data)
	return Message{Msg: WM_POWERBROADCAST, WParam: uint64(PBT_POWERSETTINGCHANGE), Data: b}
}

// EncodePowerSettingInt32 builds a power setting change whose data is a DWORD
func EncodePowerSettingInt32(setting uuid.UUID, value int32) Message {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, uint32(value))
	return EncodePowerSetting(setting, data)
}

// EncodePowerSettingGUID builds a power setting change whose data is a GUID
func EncodePowerSettingGUID(setting uuid.UUID, value uuid.UUID) Message {
	return EncodePowerSetting(setting, GUIDBytes(value))
}

// EncodeSession builds a WM_WTSSESSION_CHANGE message
func EncodeSession(reason SessionChangeReason, sessionID uint32) Message {
	return Message{Msg: WM_WTSSESSION_CHANGE, WParam: uint64(reason), LParam: uint64(sessionID)}
}

// wtsSessionNotificationSize is sizeof(WTSSESSION_NOTIFICATION)
const wtsSessionNotificationSize = 8

// EncodeSessionNotification builds the WTSSESSION_NOTIFICATION payload of a
// SERVICE_CONTROL_SESSIONCHANGE request
func EncodeSessionNotification(sessionID uint32) []byte {
	b := make([]byte, wtsSessionNotificationSize)
	binary.LittleEndian.PutUint32(b, wtsSessionNotificationSize)
	binary.LittleEndian.PutUint32(b[4:], sessionID)
	return b
}

// DecodeSessionNotification reads the session id from a WTSSESSION_NOTIFICATION payload
func DecodeSessionNotification(data []byte) (uint32, bool) {
	return payload(data).uint32At(4)
}
