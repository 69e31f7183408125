// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package wtsapi32

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatClientAddress(t *testing.T) {
	var address [20]byte
	copy(address[2:], []byte{192, 168, 10, 25})
	assert.Equal(t, "192.168.10.25", FormatClientAddress(AF_INET, address[:]))

	address = [20]byte{}
	address[2], address[3], address[17] = 0xfe, 0x80, 0x01
	assert.Equal(t, "fe80::1", FormatClientAddress(AF_INET6, address[:]))

	assert.Equal(t, "", FormatClientAddress(AF_UNSPEC, address[:]))
	assert.Equal(t, "0a0b", FormatClientAddress(6, []byte{0x0a, 0x0b}))
	assert.Equal(t, "0102", FormatClientAddress(AF_INET, []byte{1, 2}))
}
