// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	uuid "github.com/satori/go.uuid"
)

const guidSize = 16

// GUIDFromBytes converts a Windows GUID, as laid out in memory (Data1, Data2 and Data3 little
// endian followed by the 8 byte Data4 array), into a canonical UUID.
func GUIDFromBytes(b []byte) (uuid.UUID, bool) {
	var u uuid.UUID
	if len(b) < guidSize {
		return u, false
	}
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:16])
	return u, true
}

// GUIDBytes is the inverse of GUIDFromBytes
func GUIDBytes(u uuid.UUID) []byte {
	b := make([]byte, guidSize)
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:])
	return b
}

// Device interface classes registered by default
var (
	GUID_DEVCLASS_USB            = uuid.Must(uuid.FromString("36fc9e60-c465-11cf-8056-444553540000"))
	GUID_DEVCLASS_VOLUME         = uuid.Must(uuid.FromString("71a27cdd-812a-11d0-bec7-08002be2092f"))
	GUID_IO_VOLUME_MOUNT         = uuid.Must(uuid.FromString("b5804878-1a96-11d2-8ffd-00a0c9a06d32"))
	GUID_DEVCLASS_WCEUSBS        = uuid.Must(uuid.FromString("25dbce51-6c8f-4a72-8a6d-b54c2b4fc835"))
	GUID_DEVINTERFACE_DISK       = uuid.Must(uuid.FromString("53f56307-b6bf-11d0-94f2-00a0c91efb8b"))
	GUID_DEVINTERFACE_USB_DEVICE = uuid.Must(uuid.FromString("a5dcbf10-6530-11d2-901f-00c04fb951ed"))
)

// Power settings
var (
	GUID_ACDC_POWER_SOURCE            = uuid.Must(uuid.FromString("5d3e9a59-e9d5-4b00-a6bd-ff34ff516548"))
	GUID_ACTIVE_POWERSCHEME           = uuid.Must(uuid.FromString("31f9f286-5084-42fe-b720-2b0264993763"))
	GUID_BATTERY_PERCENTAGE_REMAINING = uuid.Must(uuid.FromString("a7ad8041-b45a-4cae-87a3-eecbb468a9e1"))
	GUID_CONSOLE_DISPLAY_STATE        = uuid.Must(uuid.FromString("6fe69556-704a-47a0-8f24-c28d936fda47"))
	GUID_GLOBAL_USER_PRESENCE         = uuid.Must(uuid.FromString("786e8a1d-b427-4344-9207-09e70bdcbea9"))
	GUID_IDLE_BACKGROUND_TASK         = uuid.Must(uuid.FromString("515c31d8-f734-163d-a0fd-11a08c91e8f1"))
	GUID_LIDSWITCH_STATE_CHANGE       = uuid.Must(uuid.FromString("ba3e0f4d-b817-4094-a2d1-d56379e6a0f3"))
	GUID_MONITOR_POWER_ON             = uuid.Must(uuid.FromString("02731015-4510-4526-99e6-e5a17ebd1aea"))
	GUID_POWERSCHEME_PERSONALITY      = uuid.Must(uuid.FromString("245d8541-3943-4422-b025-13a784f679b7"))
	GUID_SESSION_DISPLAY_STATUS       = uuid.Must(uuid.FromString("2b84c20e-ad23-4ddf-93db-05ffbd7efca5"))
	GUID_SESSION_USER_PRESENCE        = uuid.Must(uuid.FromString("3c0f4548-c03f-4c4d-b9f2-237ede686376"))
	GUID_SYSTEM_AWAYMODE              = uuid.Must(uuid.FromString("98a7f580-01f7-48aa-9c0f-44352c29e5c0"))
)

// Power scheme personalities
var (
	GUID_MAX_POWER_SAVINGS     = uuid.Must(uuid.FromString("a1841308-3541-4fab-bc81-f71556f20b4a"))
	GUID_MIN_POWER_SAVINGS     = uuid.Must(uuid.FromString("8c5e7fda-e8bf-4a96-9a85-a6e23a8c635c"))
	GUID_TYPICAL_POWER_SAVINGS = uuid.Must(uuid.FromString("381b4222-f694-41f0-9685-ff5bb260df2e"))
)

// DefaultDeviceClasses returns the device interface classes a service subscribes to unless
// configured otherwise.
func DefaultDeviceClasses() []uuid.UUID {
	return []uuid.UUID{
		GUID_DEVCLASS_USB,
		GUID_DEVCLASS_VOLUME,
		GUID_IO_VOLUME_MOUNT,
		GUID_DEVCLASS_WCEUSBS,
		GUID_DEVINTERFACE_DISK,
		GUID_DEVINTERFACE_USB_DEVICE,
	}
}

// DefaultPowerSettings returns the power settings a service subscribes to unless configured
// otherwise.
func DefaultPowerSettings() []uuid.UUID {
	return []uuid.UUID{
		GUID_ACDC_POWER_SOURCE,
		GUID_BATTERY_PERCENTAGE_REMAINING,
		GUID_CONSOLE_DISPLAY_STATE,
		GUID_GLOBAL_USER_PRESENCE,
		GUID_IDLE_BACKGROUND_TASK,
		GUID_MONITOR_POWER_ON,
		GUID_POWERSCHEME_PERSONALITY,
		GUID_SESSION_DISPLAY_STATUS,
		GUID_SESSION_USER_PRESENCE,
		GUID_SYSTEM_AWAYMODE,
		GUID_ACTIVE_POWERSCHEME,
		GUID_LIDSWITCH_STATE_CHANGE,
	}
}
