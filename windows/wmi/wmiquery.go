// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package wmi

import (
	"fmt"
	"runtime"
	"sync"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	log "github.com/hpe-storage/service-host-libs/logger"
	uuid "github.com/satori/go.uuid"
)

// Namespaces we use for WMI queries
const (
	rootCIMV2 = `ROOT\CIMV2`
	rootPower = `ROOT\CIMV2\power`
)

// HRESULT values
const (
	S_OK    = 0
	S_FALSE = 1
)

// WMI queries are serialized; each one runs on its own COM apartment
var lock sync.Mutex

// execQuery runs wql in namespace and calls fn with every returned object
func execQuery(namespace, wql string, fn func(item *ole.IDispatch) error) error {
	log.Tracef(">>>>> execQuery, namespace=%v, wql=%v", namespace, wql)
	defer log.Trace("<<<<< execQuery")

	lock.Lock()
	defer lock.Unlock()

	// COM initialization is per thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		if !ok || (oleErr.Code() != S_OK && oleErr.Code() != S_FALSE) {
			return err
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return err
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return err
	}
	defer locator.Release()

	servicesRaw, err := oleutil.CallMethod(locator, "ConnectServer", nil, namespace)
	if err != nil {
		return err
	}
	services := servicesRaw.ToIDispatch()
	defer servicesRaw.Clear()

	resultRaw, err := oleutil.CallMethod(services, "ExecQuery", wql)
	if err != nil {
		return err
	}
	result := resultRaw.ToIDispatch()
	defer resultRaw.Clear()

	countVar, err := oleutil.GetProperty(result, "Count")
	if err != nil {
		return err
	}
	count := int(countVar.Val)
	countVar.Clear()

	for i := 0; i < count; i++ {
		itemRaw, err := oleutil.CallMethod(result, "ItemIndex", i)
		if err != nil {
			return err
		}
		err = fn(itemRaw.ToIDispatch())
		itemRaw.Clear()
		if err != nil {
			return err
		}
	}
	return nil
}

// stringProperty returns a string property of item, "" when it is null
func stringProperty(item *ole.IDispatch, name string) (string, error) {
	v, err := oleutil.GetProperty(item, name)
	if err != nil {
		return "", err
	}
	defer v.Clear()
	if v.VT == ole.VT_NULL || v.VT == ole.VT_EMPTY {
		return "", nil
	}
	return v.ToString(), nil
}

// firstString returns the named property of the first object returned by wql
func firstString(namespace, wql, property string) (string, error) {
	var value string
	found := false
	err := execQuery(namespace, wql, func(item *ole.IDispatch) error {
		if found {
			return nil
		}
		var err error
		value, err = stringProperty(item, property)
		found = err == nil
		return err
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("no result for %s", wql)
	}
	return value, nil
}

// FriendlyNames resolves device friendly names from Win32_PnPEntity
type FriendlyNames struct{}

// FriendlyName returns the Name of the PnP entity behind devicePath
func (FriendlyNames) FriendlyName(devicePath string) (string, error) {
	return firstString(rootCIMV2, pnpEntityQuery(devicePath), "Name")
}

// PowerPlans resolves power scheme names from Win32_PowerPlan
type PowerPlans struct{}

// PowerSchemeName returns the ElementName of the power plan with the given scheme GUID
func (PowerPlans) PowerSchemeName(scheme uuid.UUID) (string, error) {
	return firstString(rootPower, powerPlanQuery(scheme), "ElementName")
}
