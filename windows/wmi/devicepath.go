// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package wmi looks up device and power plan names through WMI
package wmi

import (
	"fmt"
	"strings"

	uuid "github.com/satori/go.uuid"
)

// InstanceID converts a device interface path such as
//
//	\\?\USB#VID_0781&PID_5581#4C530001#{a5dcbf10-6530-11d2-901f-00c04fb951ed}
//
// into the PnP device instance ID USB\VID_0781&PID_5581\4C530001
func InstanceID(devicePath string) string {
	id := strings.TrimPrefix(devicePath, `\\?\`)
	id = strings.TrimPrefix(id, `\\.\`)
	id = strings.TrimPrefix(id, `\??\`)
	if i := strings.LastIndex(id, "#{"); i >= 0 && strings.HasSuffix(id, "}") {
		id = id[:i]
	}
	return strings.ToUpper(strings.ReplaceAll(id, "#", `\`))
}

// quote returns s as a WQL string literal
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// pnpEntityQuery selects the device with the instance ID behind devicePath
func pnpEntityQuery(devicePath string) string {
	return fmt.Sprintf("SELECT Name FROM Win32_PnPEntity WHERE DeviceID = %s", quote(InstanceID(devicePath)))
}

// powerPlanQuery selects the power plan with the given scheme GUID
func powerPlanQuery(scheme uuid.UUID) string {
	return fmt.Sprintf("SELECT ElementName FROM Win32_PowerPlan WHERE InstanceID = %s",
		quote(fmt.Sprintf(`Microsoft:PowerPlan\{%s}`, scheme.String())))
}
