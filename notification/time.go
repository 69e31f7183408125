// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package notification

import (
	"encoding/binary"
	"time"
)

const (
	// 100ns intervals between 1601-01-01 and 1970-01-01
	fileTimeUnixOffset = 116444736000000000
	timeChangeInfoSize = 16
)

// TimeToFileTime converts t into a FILETIME tick count
func TimeToFileTime(t time.Time) int64 {
	return t.UnixNano()/100 + fileTimeUnixOffset
}

// FileTimeToTime converts a FILETIME tick count into a UTC time
func FileTimeToTime(ticks int64) time.Time {
	return time.Unix(0, (ticks-fileTimeUnixOffset)*100).UTC()
}

// EncodeTimeChange builds the SERVICE_TIMECHANGE_INFO payload of a SERVICE_CONTROL_TIMECHANGE
// request
func EncodeTimeChange(oldTime, newTime time.Time) []byte {
	b := make([]byte, timeChangeInfoSize)
	binary.LittleEndian.PutUint64(b, uint64(TimeToFileTime(newTime)))
	binary.LittleEndian.PutUint64(b[8:], uint64(TimeToFileTime(oldTime)))
	return b
}

// DecodeTimeChange reads a SERVICE_TIMECHANGE_INFO payload
func DecodeTimeChange(data []byte) (oldTime, newTime time.Time, ok bool) {
	p := payload(data)
	newTicks, ok1 := p.uint64At(0)
	oldTicks, ok2 := p.uint64At(8)
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	return FileTimeToTime(int64(oldTicks)), FileTimeToTime(int64(newTicks)), true
}
