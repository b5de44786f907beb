package capture

import (
	"fmt"
	"strings"
	"time"
)

// DeviceFromID builds the driver for a device id:
//
//	screen:0         primary display
//	dir:<path>       image replay
//	http(s)://...    IP camera snapshot URL
func DeviceFromID(id string, timeout time.Duration) (Device, error) {
	switch {
	case id == ScreenDeviceID:
		return NewScreenDevice(), nil
	case strings.HasPrefix(id, FolderDevicePrefix):
		dir := strings.TrimPrefix(id, FolderDevicePrefix)
		if dir == "" {
			return nil, fmt.Errorf("device %q: empty directory", id)
		}
		return NewFolderDevice(dir), nil
	case IsURLDeviceID(id):
		return NewURLDevice(id, timeout), nil
	}
	return nil, &DeviceError{Kind: DeviceNotFound, DeviceID: id, Err: ErrNoDevice}
}
