package cliconfig

import (
	"encoding/hex"
	"errors"
	"net"
)

// ErrNoDevice is returned when no interface carries a hardware address.
var ErrNoDevice = errors.New("no network interface with a hardware address")

// DeviceID returns the hardware address of the first non-loopback network
// interface as lowercase hex without separators.
func DeviceID() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	return deviceID(ifaces)
}

func deviceID(ifaces []net.Interface) (string, error) {
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagLoopback != 0 || len(ifi.HardwareAddr) == 0 {
			continue
		}
		return hex.EncodeToString(ifi.HardwareAddr), nil
	}
	return "", ErrNoDevice
}
