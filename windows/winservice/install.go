// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

//go:build windows
// +build windows

package winservice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/hpe-storage/service-host-libs/logger"
	"github.com/hpe-storage/service-host-libs/svcerrors"
	"github.com/hpe-storage/service-host-libs/windows/advapi32"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	eventLogKey      = `SYSTEM\CurrentControlSet\Services\EventLog`
	applicationLog   = "Application"
	eventMessageFile = `%SystemRoot%\System32\EventCreate.exe`
	eventTypes       = eventlog.Error | eventlog.Warning | eventlog.Info
)

// Install registers the service with the service control manager, creates its event log source
// and then runs the Install hook
func (h *Host) Install() error {
	log.Tracef(">>>>> Install, name=%s", h.cfg.Name)
	defer log.Trace("<<<<< Install")

	if !advapi32.IsElevated() {
		fmt.Fprintf(h.opts.Output, "Installing %s requires an elevated (Administrator) prompt\n", h.cfg.Name)
		log.Warnf("installing %s from a process that is not elevated", h.cfg.Name)
	}

	if err := h.createService(); err != nil {
		return svcerrors.New(svcerrors.InstallFailure, err)
	}
	if err := installEventSource(h.cfg.LogName, h.cfg.Name); err != nil {
		log.Errorf("unable to create event source %s, err=%v", h.cfg.Name, err)
		if removeErr := h.deleteService(); removeErr != nil {
			log.Warnf("unable to roll back %s, err=%v", h.cfg.Name, removeErr)
		}
		return svcerrors.New(svcerrors.InstallFailure, err)
	}
	if h.opts.LogFile != "" {
		h.protectLogDirectory(filepath.Dir(h.opts.LogFile))
	}
	fmt.Fprintf(h.opts.Output, "%s installed\n", h.cfg.DisplayName)
	return h.controller.Install()
}

// Uninstall removes the service and its event log source, then runs the Uninstall hook
func (h *Host) Uninstall() error {
	log.Tracef(">>>>> Uninstall, name=%s", h.cfg.Name)
	defer log.Trace("<<<<< Uninstall")

	if err := h.deleteService(); err != nil {
		return svcerrors.New(svcerrors.UninstallFailure, err)
	}
	if err := removeEventSource(h.cfg.LogName, h.cfg.Name); err != nil {
		log.Warnf("unable to remove event source %s, err=%v", h.cfg.Name, err)
	}
	fmt.Fprintf(h.opts.Output, "%s uninstalled\n", h.cfg.DisplayName)
	return h.controller.Uninstall()
}

func (h *Host) createService() error {
	exepath, err := os.Executable()
	if err != nil {
		return err
	}
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()

	s, err := m.OpenService(h.cfg.Name)
	if err == nil {
		s.Close()
		return fmt.Errorf("service %s already exists", h.cfg.Name)
	}
	s, err = m.CreateService(h.cfg.Name, exepath, mgr.Config{
		ServiceType:      uint32(h.cfg.ServiceType),
		StartType:        uint32(h.cfg.StartType),
		ErrorControl:     uint32(h.cfg.ErrorControl),
		DisplayName:      h.cfg.DisplayName,
		Description:      h.cfg.Description,
		DelayedAutoStart: h.cfg.DelayedAutoStart,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	// If no recovery options provided, service has been successfully installed
	if len(h.opts.RecoveryActions) == 0 {
		return nil
	}
	return s.SetRecoveryActions(h.opts.RecoveryActions, h.opts.RecoveryResetPeriod)
}

func (h *Host) deleteService() error {
	m, err := mgr.Connect()
	if err != nil {
		return err
	}
	defer m.Disconnect()
	s, err := m.OpenService(h.cfg.Name)
	if err != nil {
		return fmt.Errorf("service %s is not installed", h.cfg.Name)
	}
	defer s.Close()
	return s.Delete()
}

func (h *Host) protectLogDirectory(dir string) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		log.Warnf("unable to create log directory %s, err=%v", dir, err)
		return
	}
	if err := advapi32.SetAdministratorOnlyAccess(dir); err != nil {
		log.Warnf("unable to restrict access to %s, err=%v", dir, err)
	}
}

// installEventSource registers source under logName.  The Application log goes through
// eventlog; custom logs are created in the registry the same way.
func installEventSource(logName, source string) error {
	if logName == "" || strings.EqualFold(logName, applicationLog) {
		return eventlog.InstallAsEventCreate(source, eventTypes)
	}

	logKey, _, err := registry.CreateKey(registry.LOCAL_MACHINE, eventLogKey+`\`+logName, registry.ALL_ACCESS)
	if err != nil {
		return err
	}
	logKey.Close()

	key, existing, err := registry.CreateKey(registry.LOCAL_MACHINE, eventLogKey+`\`+logName+`\`+source, registry.ALL_ACCESS)
	if err != nil {
		return err
	}
	defer key.Close()
	if existing {
		return fmt.Errorf("event source %s already exists in %s", source, logName)
	}
	if err = key.SetExpandStringValue("EventMessageFile", eventMessageFile); err != nil {
		return err
	}
	if err = key.SetDWordValue("TypesSupported", eventTypes); err != nil {
		return err
	}
	return key.SetDWordValue("CustomSource", 1)
}

func removeEventSource(logName, source string) error {
	if logName == "" || strings.EqualFold(logName, applicationLog) {
		return eventlog.Remove(source)
	}
	return registry.DeleteKey(registry.LOCAL_MACHINE, eventLogKey+`\`+logName+`\`+source)
}
