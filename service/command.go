// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package service

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Command is the action selected by the process command line
type Command int

const (
	// CommandRun runs under the host, or in the console when there is no host connection
	CommandRun Command = iota
	CommandInstall
	CommandUninstall
	CommandConsole
)

func (c Command) String() string {
	switch c {
	case CommandRun:
		return "run"
	case CommandInstall:
		return "install"
	case CommandUninstall:
		return "uninstall"
	case CommandConsole:
		return "console"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// ParseCommand selects the action for the process arguments, excluding the program name.  No
// arguments means the process was started by the host (or interactively without a switch, in
// which case usage is printed before falling back to the console).
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandRun
	}
	switch strings.ToLower(strings.TrimLeft(args[0], "-/")) {
	case "i", "install":
		return CommandInstall
	case "u", "uninstall":
		return CommandUninstall
	}
	return CommandConsole
}

// PrintUsage writes the supported command line switches
func PrintUsage(w io.Writer, program string, cfg Config) {
	name := filepath.Base(program)
	fmt.Fprintf(w, "%s - %s\n\n", cfg.DisplayName, cfg.Description)
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s i | install     install the %s service\n", name, cfg.Name)
	fmt.Fprintf(w, "  %s u | uninstall   uninstall the %s service\n", name, cfg.Name)
	fmt.Fprintf(w, "  %s c | console     run interactively in this console\n", name)
}
