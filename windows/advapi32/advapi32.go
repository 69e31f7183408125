// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

// Package advapi32 restricts access to the files a service writes and checks whether the process
// is elevated.
package advapi32

import (
	"syscall"
	"unsafe"

	"github.com/hectane/go-acl/api"
	log "github.com/hpe-storage/service-host-libs/logger"
	"golang.org/x/sys/windows"
)

// Lazy load our advapi32.dll APIs
var (
	advapi32                  = windows.NewLazySystemDLL("advapi32.dll")
	procSetEntriesInAclW      = advapi32.NewProc("SetEntriesInAclW")
	procSetNamedSecurityInfoW = advapi32.NewProc("SetNamedSecurityInfoW")
)

// SetEntriesInAcl -- Creates a new access control list (ACL) by merging new access control or audit
// control information into an existing ACL structure.
// https://docs.microsoft.com/en-us/windows/desktop/api/aclapi/nf-aclapi-setentriesinacla
func SetEntriesInAcl(ea []api.ExplicitAccess, OldAcl windows.Handle, NewAcl *windows.Handle) error {
	ret, _, _ := procSetEntriesInAclW.Call(
		uintptr(len(ea)),
		uintptr(unsafe.Pointer(&ea[0])),
		uintptr(OldAcl),
		uintptr(unsafe.Pointer(NewAcl)),
	)
	if ret != 0 {
		return syscall.Errno(ret)
	}
	return nil
}

// SetNamedSecurityInfo -- Sets specified security information in the security descriptor of a
// specified object. The caller identifies the object by name.
// https://docs.microsoft.com/en-us/windows/desktop/api/aclapi/nf-aclapi-setnamedsecurityinfow
func SetNamedSecurityInfo(objectName string, objectType int32, secInfo uint32, owner, group *windows.SID, dacl, sacl windows.Handle) error {
	ret, _, _ := procSetNamedSecurityInfoW.Call(
		uintptr(unsafe.Pointer(windows.StringToUTF16Ptr(objectName))),
		uintptr(objectType),
		uintptr(secInfo),
		uintptr(unsafe.Pointer(owner)),
		uintptr(unsafe.Pointer(group)),
		uintptr(dacl),
		uintptr(sacl),
	)
	if ret != 0 {
		return syscall.Errno(ret)
	}
	return nil
}

// IsElevated reports whether the current process runs with an elevated token
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// SetAdministratorOnlyAccess replaces the DACL of path so that only Administrators and the local
// system account can access it.  Inherited entries are removed.
func SetAdministratorOnlyAccess(path string) error {
	log.Tracef(">>>>> SetAdministratorOnlyAccess, path=%v", path)
	defer log.Trace("<<<<< SetAdministratorOnlyAccess")

	admins, err := windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
	if err != nil {
		log.Errorf("Unexpected CreateWellKnownSid failure, %v", err)
		return err
	}
	system, err := windows.CreateWellKnownSid(windows.WinLocalSystemSid)
	if err != nil {
		log.Errorf("Unexpected CreateWellKnownSid failure, %v", err)
		return err
	}

	ea := []api.ExplicitAccess{
		fullControl(admins, api.TRUSTEE_IS_GROUP),
		fullControl(system, api.TRUSTEE_IS_USER),
	}

	var acl windows.Handle
	if err = SetEntriesInAcl(ea, 0, &acl); err != nil {
		log.Errorf("Unexpected SetEntriesInAcl failure, %v", err)
		return err
	}
	defer windows.LocalFree(acl)

	var secInfo uint32 = api.DACL_SECURITY_INFORMATION | api.PROTECTED_DACL_SECURITY_INFORMATION
	if err = SetNamedSecurityInfo(path, api.SE_FILE_OBJECT, secInfo, nil, nil, acl, 0); err != nil {
		log.Errorf("Unexpected SetNamedSecurityInfo failure, %v", err)
		return err
	}
	return nil
}

func fullControl(sid *windows.SID, trusteeType int32) api.ExplicitAccess {
	var ea api.ExplicitAccess
	ea.AccessPermissions = syscall.GENERIC_ALL
	ea.AccessMode = api.SET_ACCESS
	ea.Inheritance = api.SUB_CONTAINERS_AND_OBJECTS_INHERIT
	ea.Trustee.TrusteeForm = api.TRUSTEE_IS_SID
	ea.Trustee.TrusteeType = trusteeType
	ea.Trustee.Name = (*uint16)(unsafe.Pointer(sid))
	return ea
}
