// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package wtsapi32 queries Remote Desktop Services session information and registers windows for
// session change notifications.
package wtsapi32

import (
	"encoding/hex"
	"net"
)

// Address families of WTS_CLIENT_ADDRESS
const (
	AF_UNSPEC = 0
	AF_INET   = 2
	AF_INET6  = 23
)

// FormatClientAddress renders the Address bytes of a WTS_CLIENT_ADDRESS.  IP addresses start at
// offset 2; other families are rendered in hex.
func FormatClientAddress(family uint32, address []byte) string {
	switch family {
	case AF_INET:
		if len(address) >= 6 {
			return net.IP(address[2:6]).String()
		}
	case AF_INET6:
		if len(address) >= 18 {
			return net.IP(address[2:18]).String()
		}
	case AF_UNSPEC:
		return ""
	}
	return hex.EncodeToString(address)
}
